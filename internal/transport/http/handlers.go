package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"geoproof/internal/authz"
	"geoproof/internal/domain"
	"geoproof/internal/dto"
	"geoproof/internal/netutil"
	"geoproof/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxBodyBytes = 1 << 20

type handler struct {
	accounts    service.AccountService
	devices     service.DeviceService
	validations service.ValidationService
	ledger      service.LedgerService
	trustProxy  bool
}

type accountKey struct{}

// withAccount resolves the token subject to a local account, creating it on first sight.
func (h *handler) withAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sub, _ := authz.SubjectFrom(r.Context())
		id, err := uuid.Parse(sub)
		if err != nil || id == uuid.Nil {
			http.Error(w, "subject is not an account id", http.StatusUnauthorized)
			return
		}
		acct, err := h.accounts.Ensure(r.Context(), id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, acct)))
	})
}

func accountFrom(ctx context.Context) *domain.Account {
	acct, _ := ctx.Value(accountKey{}).(*domain.Account)
	return acct
}

func (h *handler) validate(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	deviceID := pathParam(r, "deviceID")

	out, err := h.validations.Validate(r.Context(), service.ValidationRequest{
		DeviceID:   deviceID,
		Payload:    pathParam(r, "payload"),
		AccountID:  acct.ID,
		RemoteAddr: netutil.ClientIP(r, h.trustProxy),
		UserAgent:  r.UserAgent(),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if !out.Succeeded() {
		status := http.StatusBadRequest
		if out.Reason == domain.ReasonDeviceNotFound {
			status = http.StatusNotFound
		}
		writeJSON(w, status, dto.ValidateFailureResponse{
			Status:       "error",
			DeviceID:     deviceID,
			Reason:       string(out.Reason),
			Message:      out.Reason.Message(),
			ValidationID: out.Record.ID,
		})
		return
	}
	writeJSON(w, http.StatusOK, dto.ValidateSuccessResponse{
		Status:       "success",
		DeviceID:     deviceID,
		Location:     out.Location,
		ValidationID: out.Record.ID,
		TokenAddress: out.TokenAddress,
	})
}

func (h *handler) me(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	writeJSON(w, http.StatusOK, dto.MeResponse{
		AccountID:         acct.ID.String(),
		CollectionAddress: acct.CollectionAddress,
		CreatedAt:         acct.CreatedAt,
	})
}

func (h *handler) listDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.devices.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	owners, err := h.ownerAddresses(r.Context(), devices)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.DeviceResponse, 0, len(devices))
	for i := range devices {
		out = append(out, deviceResponse(&devices[i], owners[devices[i].OwnerID], false))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) getDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.devices.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	owners, err := h.ownerAddresses(r.Context(), []domain.Device{*device})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse(device, owners[device.OwnerID], false))
}

func (h *handler) myDevices(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	devices, err := h.devices.ListByOwner(r.Context(), acct.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.DeviceResponse, 0, len(devices))
	for i := range devices {
		out = append(out, deviceResponse(&devices[i], acct.CollectionAddress, true))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) registerDevice(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	var req dto.DeviceCreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	device, err := h.devices.Register(r.Context(), acct.ID, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, deviceResponse(device, acct.CollectionAddress, true))
}

func (h *handler) updateDevice(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	var req dto.DeviceUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	device, err := h.devices.Update(r.Context(), acct.ID, pathParam(r, "id"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse(device, acct.CollectionAddress, true))
}

func (h *handler) deleteDevice(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	if err := h.devices.Delete(r.Context(), acct.ID, pathParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) provisionSecret(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	var req dto.ProvisionSecretRequest
	// The body is optional for devices without a stored key hash.
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	id := pathParam(r, "id")
	p, err := h.devices.ProvisionSecret(r.Context(), acct.ID, id, req.DeviceKey)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ProvisionSecretResponse{DeviceID: id, Secret: p.Secret, URI: p.URI})
}

func (h *handler) deviceValidations(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recs, err := h.devices.Validations(r.Context(), acct.ID, pathParam(r, "id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]dto.ValidationRecordResponse, 0, len(recs))
	for i := range recs {
		rec := &recs[i]
		row := dto.ValidationRecordResponse{
			ID:         rec.ID,
			DeviceID:   rec.DeviceID,
			AccountID:  rec.AccountID.String(),
			Result:     string(rec.Result),
			Reason:     string(rec.Reason),
			RemoteAddr: rec.RemoteAddr,
			CreatedAt:  rec.CreatedAt,
		}
		if rec.Latitude != nil && rec.Longitude != nil {
			row.Location = []float64{*rec.Latitude, *rec.Longitude}
		}
		out = append(out, row)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) myTransactions(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	recs, err := h.ledger.OwnedBy(r.Context(), acct.CollectionAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionRows(recs))
}

func (h *handler) sendToken(w http.ResponseWriter, r *http.Request) {
	acct := accountFrom(r.Context())
	var req dto.SendTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := h.ledger.Transfer(r.Context(), acct.CollectionAddress, req.TokenAddresses, req.RecipientAddress)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.SendTokenResponse{Transferred: n})
}

func (h *handler) token(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	recs, err := h.ledger.History(r.Context(), address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	latest := recs[len(recs)-1]
	writeJSON(w, http.StatusOK, dto.TokenResponse{
		TokenAddress: address,
		Owner:        latest.Receiver,
		Status:       string(latest.Status),
		History:      transactionRows(recs),
	})
}

func (h *handler) ownerAddresses(ctx context.Context, devices []domain.Device) (map[domain.AccountID]string, error) {
	ids := make([]domain.AccountID, 0, len(devices))
	for i := range devices {
		ids = append(ids, devices[i].OwnerID)
	}
	accts, err := h.accounts.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.AccountID]string, len(accts))
	for _, a := range accts {
		out[a.ID] = a.CollectionAddress
	}
	return out, nil
}

func deviceResponse(d *domain.Device, owner string, ownerView bool) dto.DeviceResponse {
	resp := dto.DeviceResponse{
		ID:             d.ID,
		Name:           d.Name,
		Description:    d.Description,
		Owner:          owner,
		Status:         string(d.Status),
		Location:       d.Location(),
		Address:        d.Address,
		Image:          d.Image,
		QRRefreshTime:  d.QRRefreshTime,
		MaxValidations: d.MaxValidations,
		HasSecret:      d.HasSecret(),
		LastValidation: d.LastValidation,
		CreatedAt:      d.CreatedAt,
	}
	if ownerView {
		resp.Secret = d.Secret
	}
	return resp
}

func transactionRows(recs []domain.TransitionRecord) []dto.TransactionRow {
	out := make([]dto.TransactionRow, 0, len(recs))
	for _, rec := range recs {
		out = append(out, dto.TransactionRow{
			ID:           rec.ID,
			ValidationID: rec.ValidationID,
			DeviceID:     rec.DeviceID,
			TokenAddress: rec.TokenAddress,
			Timestamp:    rec.Timestamp,
			Sender:       rec.Sender,
			Receiver:     rec.Receiver,
			Status:       string(rec.Status),
		})
	}
	return out
}

// pathParam returns the unescaped chi URL parameter.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		msg := "invalid JSON body"
		if errors.Is(err, io.EOF) {
			msg = "empty body"
		}
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msg})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

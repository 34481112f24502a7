package impl

import (
	"context"
	"errors"
	"strings"
	"time"

	"geoproof/internal/domain"
	"geoproof/internal/events"
	"geoproof/internal/netutil"
	"geoproof/internal/observability/logging"
	"geoproof/internal/observability/metrics"
	"geoproof/internal/payload"
	"geoproof/internal/service"
	"geoproof/internal/store"
	"geoproof/internal/totp"

	"github.com/google/uuid"
)

var _ service.ValidationService = (*ValidationServiceImpl)(nil)

// Detail strings recorded next to invalid_code.
const (
	detailUnusableSecret = "unusable_secret"
	detailCodeMismatch   = "code_mismatch"
)

type ValidationServiceImpl struct {
	store    *store.Store
	ledger   service.LedgerService
	accounts service.AccountService
	sink     events.Sink
	now      func() time.Time

	// afterEvaluate runs between the checks and the record transaction.
	afterEvaluate func()
}

func NewValidationServiceImpl(st *store.Store, ledger service.LedgerService, accounts service.AccountService, sink events.Sink) *ValidationServiceImpl {
	if sink == nil {
		sink = events.Discard
	}
	return &ValidationServiceImpl{
		store:    st,
		ledger:   ledger,
		accounts: accounts,
		sink:     sink,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// check is the classified result of running the payload through the device's secret.
type check struct {
	device  *domain.Device
	reason  domain.FailureReason
	detail  string
	reading payload.Reading
}

func (v *ValidationServiceImpl) Validate(ctx context.Context, req service.ValidationRequest) (*service.ValidationOutcome, error) {
	if v.store == nil || v.ledger == nil || v.accounts == nil {
		return nil, ErrStoreMissing
	}
	if req.AccountID == uuid.Nil {
		return nil, domain.ErrInvalidRequest
	}
	acct, err := v.accounts.Ensure(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}

	now := v.nowTime().UTC().Truncate(time.Microsecond)
	c, err := v.evaluate(ctx, req, now)
	if err != nil {
		logging.FromContext(ctx).Error("validation device lookup failed", "device_id", req.DeviceID, "error", err)
		return nil, err
	}
	if v.afterEvaluate != nil {
		v.afterEvaluate()
	}

	submitted := strings.ToValidUTF8(req.DeviceID, "")
	if len(submitted) > domain.MaxDeviceIDLength {
		submitted = strings.ToValidUTF8(submitted[:domain.MaxDeviceIDLength], "")
	}
	origin, _ := netutil.NormalizeIP(req.RemoteAddr)
	rec := &domain.ValidationRecord{
		DeviceID:   submitted,
		AccountID:  acct.ID,
		Result:     domain.ValidationFailure,
		Reason:     c.reason,
		Detail:     c.detail,
		RemoteAddr: origin,
		UserAgent:  netutil.TruncateUserAgent(req.UserAgent),
		CreatedAt:  now,
	}
	if c.reason == domain.ReasonNone {
		rec.Result = domain.ValidationSuccess
		lat, lng := c.reading.Lat, c.reading.Lng
		rec.Latitude, rec.Longitude = &lat, &lng
		err = v.store.WithTx(ctx, func(tx *store.Store) error {
			if err := tx.Devices().TouchLastValidation(ctx, c.device.ID, now); err != nil {
				return err
			}
			return tx.Validations().Create(ctx, rec)
		})
		if errors.Is(err, store.ErrRecordNotFound) {
			// Deleted after the lookup.
			c = check{reason: domain.ReasonDeviceNotFound}
			rec.Result, rec.Reason = domain.ValidationFailure, c.reason
			rec.Latitude, rec.Longitude = nil, nil
			err = v.store.Validations().Create(ctx, rec)
		}
	} else {
		err = v.store.Validations().Create(ctx, rec)
	}
	if err != nil {
		err = domain.Storage("record validation", err)
		logging.FromContext(ctx).Error("validation record not written", "device_id", req.DeviceID, "error", err)
		return nil, err
	}

	metrics.ValidationsTotal.WithLabelValues(string(rec.Result), string(rec.Reason)).Inc()
	v.sink.Emit(ctx, events.ValidationRecorded{
		ValidationID: rec.ID,
		DeviceID:     rec.DeviceID,
		AccountID:    rec.AccountID.String(),
		Result:       string(rec.Result),
		Reason:       string(rec.Reason),
		Detail:       rec.Detail,
		At:           rec.CreatedAt,
	})

	out := &service.ValidationOutcome{
		Record: rec,
		Reason: rec.Reason,
		Detail: rec.Detail,
	}
	if !rec.Succeeded() {
		return out, nil
	}
	out.Location = []float64{c.reading.Lat, c.reading.Lng}

	minted, err := v.ledger.Mint(ctx, rec, c.device.ID, acct.CollectionAddress)
	if err != nil {
		// The proof stands without its token.
		v.sink.Emit(ctx, events.MintFailed{
			ValidationID: rec.ID,
			DeviceID:     c.device.ID,
			Receiver:     acct.CollectionAddress,
			Error:        err.Error(),
			At:           now,
		})
		return out, nil
	}
	out.TokenAddress = minted.TokenAddress
	return out, nil
}

// evaluate runs the checks in order and stops at the first failing one. The
// error is reserved for storage failures during the device lookup.
func (v *ValidationServiceImpl) evaluate(ctx context.Context, req service.ValidationRequest, now time.Time) (check, error) {
	deviceID := strings.TrimSpace(req.DeviceID)
	if deviceID == "" || len(deviceID) > domain.MaxDeviceIDLength {
		return check{reason: domain.ReasonDeviceNotFound}, nil
	}
	device, err := v.store.Devices().Get(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return check{reason: domain.ReasonDeviceNotFound}, nil
		}
		return check{}, domain.Storage("get device", err)
	}

	c := check{device: device}
	if !device.HasSecret() {
		c.reason = domain.ReasonMissingSecret
		return c, nil
	}

	plaintext, err := payload.Decrypt(device.Secret, req.Payload)
	if err != nil {
		c.reason = domain.ReasonDecryptionError
		var de *payload.DecryptionError
		if errors.As(err, &de) {
			c.detail = de.Detail
		}
		return c, nil
	}

	reading, err := payload.ParseReading(plaintext)
	if err != nil {
		c.reason = domain.ReasonInvalidFormat
		return c, nil
	}
	c.reading = reading

	ok, err := totp.Verify(device.Secret, reading.Code, now)
	switch {
	case errors.Is(err, totp.ErrUnusableSecret):
		c.reason, c.detail = domain.ReasonInvalidCode, detailUnusableSecret
	case err != nil || !ok:
		c.reason, c.detail = domain.ReasonInvalidCode, detailCodeMismatch
	}
	return c, nil
}

func (v *ValidationServiceImpl) nowTime() time.Time {
	if v.now != nil {
		return v.now()
	}
	return time.Now().UTC()
}

package http

import (
	"errors"
	"net/http"

	"geoproof/internal/domain"
	"geoproof/internal/dto"
	"geoproof/internal/observability/logging"
)

// writeError maps service errors to status codes. Storage failures and
// anything unrecognised become a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrDeviceNotFound),
		errors.Is(err, domain.ErrTokenNotFound),
		errors.Is(err, domain.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotDeviceOwner),
		errors.Is(err, domain.ErrNotTokenOwner),
		errors.Is(err, domain.ErrInvalidDeviceKey):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrDeviceExists),
		errors.Is(err, domain.ErrDeviceReferenced),
		errors.Is(err, domain.ErrTransferConflict):
		status = http.StatusConflict
	}

	body := dto.ErrorResponse{Error: err.Error()}
	if status == http.StatusInternalServerError {
		logging.FromContext(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
		body.Error = "internal error"
	}
	var te *domain.TokenError
	if errors.As(err, &te) {
		body.Token = te.Token
	}
	writeJSON(w, status, body)
}

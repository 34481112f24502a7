package service

import (
	"context"

	"geoproof/internal/domain"
)

// ValidationRequest is one submitted location proof.
type ValidationRequest struct {
	DeviceID   string
	Payload    string
	AccountID  domain.AccountID
	RemoteAddr string
	UserAgent  string
}

// ValidationOutcome is the classified result of a validation attempt. Reason is
// ReasonNone exactly when the attempt succeeded. TokenAddress stays empty if the
// validation succeeded but the mint did not.
type ValidationOutcome struct {
	Record       *domain.ValidationRecord
	Reason       domain.FailureReason
	Detail       string
	Location     []float64
	TokenAddress string
}

func (o *ValidationOutcome) Succeeded() bool { return o.Reason == domain.ReasonNone }

type ValidationService interface {
	// Validate always records the attempt. The error is non-nil only when the
	// attempt could not be recorded.
	Validate(ctx context.Context, req ValidationRequest) (*ValidationOutcome, error)
}

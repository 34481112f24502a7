package service

import (
	"context"

	"geoproof/internal/domain"
	"geoproof/internal/dto"
	"geoproof/internal/totp"
)

type DeviceService interface {
	Register(ctx context.Context, owner domain.AccountID, req dto.DeviceCreateRequest) (*domain.Device, error)
	Get(ctx context.Context, id string) (*domain.Device, error)
	List(ctx context.Context) ([]domain.Device, error)
	ListByOwner(ctx context.Context, owner domain.AccountID) ([]domain.Device, error)
	Update(ctx context.Context, owner domain.AccountID, id string, req dto.DeviceUpdateRequest) (*domain.Device, error)
	Delete(ctx context.Context, owner domain.AccountID, id string) error
	ProvisionSecret(ctx context.Context, owner domain.AccountID, id, deviceKey string) (*totp.Provisioned, error)
	Validations(ctx context.Context, owner domain.AccountID, id string, limit int) ([]domain.ValidationRecord, error)
}

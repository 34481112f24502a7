package service

import (
	"context"

	"geoproof/internal/domain"
)

type AccountService interface {
	// Ensure returns the account, creating it with a fresh collection address on first sight.
	Ensure(ctx context.Context, id domain.AccountID) (*domain.Account, error)
	ByCollectionAddress(ctx context.Context, addr string) (*domain.Account, error)
	// ByIDs returns the known accounts among ids; unknown ids are skipped.
	ByIDs(ctx context.Context, ids []domain.AccountID) ([]domain.Account, error)
}

package service

import (
	"context"

	"geoproof/internal/domain"
)

type LedgerService interface {
	Mint(ctx context.Context, validation *domain.ValidationRecord, deviceID, receiver string) (*domain.TransitionRecord, error)
	// CurrentOwner returns the receiver of the token's latest record.
	CurrentOwner(ctx context.Context, token string) (string, error)
	// Transfer moves every token or none and returns how many were moved.
	Transfer(ctx context.Context, sender string, tokens []string, receiver string) (int, error)
	// OwnedBy returns the latest holding record of each token held by owner, newest first.
	OwnedBy(ctx context.Context, owner string) ([]domain.TransitionRecord, error)
	History(ctx context.Context, token string) ([]domain.TransitionRecord, error)
}

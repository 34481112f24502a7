package store

import (
	"context"
	"time"

	"geoproof/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountStore struct{ db *gorm.DB }

func (s *Store) Accounts() *AccountStore { return &AccountStore{db: s.DB} }

// Ensure inserts the account unless a row with the same id exists, then
// returns the stored row. A concurrent first sight keeps whichever
// collection address was written first.
func (a *AccountStore) Ensure(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	acct := domain.Account{
		ID:                id,
		CollectionAddress: domain.NewAddress(),
		CreatedAt:         time.Now().UTC(),
	}
	if err := a.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}).
		Create(&acct).Error; err != nil {
		return nil, err
	}
	return a.GetByID(ctx, id)
}

func (a *AccountStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var acct domain.Account
	if err := a.db.WithContext(ctx).First(&acct, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &acct, nil
}

func (a *AccountStore) GetByCollectionAddress(ctx context.Context, addr string) (*domain.Account, error) {
	var acct domain.Account
	if err := a.db.WithContext(ctx).First(&acct, "collection_address = ?", addr).Error; err != nil {
		return nil, notFound(err)
	}
	return &acct, nil
}

func (a *AccountStore) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Account, error) {
	var out []domain.Account
	if len(ids) == 0 {
		return out, nil
	}
	if err := a.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

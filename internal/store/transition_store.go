package store

import (
	"context"

	"geoproof/internal/domain"

	"gorm.io/gorm"
)

type TransitionStore struct{ db *gorm.DB }

func (s *Store) Transitions() *TransitionStore { return &TransitionStore{db: s.DB} }

func (t *TransitionStore) Create(ctx context.Context, rec *domain.TransitionRecord) error {
	return t.db.WithContext(ctx).Create(rec).Error
}

// ListByTokens returns every record of the given tokens, ordered by token and sequence id.
func (t *TransitionStore) ListByTokens(ctx context.Context, tokens []string) ([]domain.TransitionRecord, error) {
	var recs []domain.TransitionRecord
	if len(tokens) == 0 {
		return recs, nil
	}
	if err := t.db.WithContext(ctx).
		Where("token_address IN ?", tokens).
		Order("token_address ASC, id ASC").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// TokensReceivedBy lists every token the address has ever been a receiver of.
func (t *TransitionStore) TokensReceivedBy(ctx context.Context, receiver string) ([]string, error) {
	var tokens []string
	if err := t.db.WithContext(ctx).
		Model(&domain.TransitionRecord{}).
		Where("receiver = ?", receiver).
		Distinct().
		Pluck("token_address", &tokens).Error; err != nil {
		return nil, err
	}
	return tokens, nil
}

// MarkSpent tombstones a holding record. It reports false when the record was
// already spent, which means another transfer got there first.
func (t *TransitionStore) MarkSpent(ctx context.Context, id uint64) (bool, error) {
	tx := t.db.WithContext(ctx).
		Model(&domain.TransitionRecord{}).
		Where("id = ? AND status IN ?", id, []domain.TransitionStatus{domain.StatusMint, domain.StatusTransferred}).
		Update("status", domain.StatusSpent)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected == 1, nil
}

func (t *TransitionStore) CountByDevice(ctx context.Context, deviceID string) (int64, error) {
	var n int64
	if err := t.db.WithContext(ctx).Model(&domain.TransitionRecord{}).Where("device_id = ?", deviceID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

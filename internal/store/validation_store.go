package store

import (
	"context"

	"geoproof/internal/domain"

	"gorm.io/gorm"
)

type ValidationStore struct{ db *gorm.DB }

func (s *Store) Validations() *ValidationStore { return &ValidationStore{db: s.DB} }

func (v *ValidationStore) Create(ctx context.Context, rec *domain.ValidationRecord) error {
	return v.db.WithContext(ctx).Create(rec).Error
}

func (v *ValidationStore) Get(ctx context.Context, id uint64) (*domain.ValidationRecord, error) {
	var rec domain.ValidationRecord
	if err := v.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

// ListByDevice returns the newest records first.
func (v *ValidationStore) ListByDevice(ctx context.Context, deviceID string, limit int) ([]domain.ValidationRecord, error) {
	var recs []domain.ValidationRecord
	tx := v.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

func (v *ValidationStore) CountByDevice(ctx context.Context, deviceID string) (int64, error) {
	var n int64
	if err := v.db.WithContext(ctx).Model(&domain.ValidationRecord{}).Where("device_id = ?", deviceID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

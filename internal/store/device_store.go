package store

import (
	"context"
	"time"

	"geoproof/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DeviceStore struct{ db *gorm.DB }

func (s *Store) Devices() *DeviceStore { return &DeviceStore{db: s.DB} }

func (d *DeviceStore) Create(ctx context.Context, device *domain.Device) error {
	return d.db.WithContext(ctx).Create(device).Error
}

func (d *DeviceStore) Get(ctx context.Context, id string) (*domain.Device, error) {
	var device domain.Device
	if err := d.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &device, nil
}

// GetForUpdate reads a device and holds its row lock until the transaction
// ends. SQLite has no row locks; its database lock already serializes writers.
func (d *DeviceStore) GetForUpdate(ctx context.Context, id string) (*domain.Device, error) {
	var device domain.Device
	if err := d.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&device, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &device, nil
}

func (d *DeviceStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := d.db.WithContext(ctx).Model(&domain.Device{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *DeviceStore) List(ctx context.Context) ([]domain.Device, error) {
	var devices []domain.Device
	if err := d.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func (d *DeviceStore) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]domain.Device, error) {
	var devices []domain.Device
	if err := d.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

// Save writes every column of an existing device.
func (d *DeviceStore) Save(ctx context.Context, device *domain.Device) error {
	return d.db.WithContext(ctx).Save(device).Error
}

// TouchLastValidation is a single-row atomic update; concurrent validations of
// the same device contend only here.
func (d *DeviceStore) TouchLastValidation(ctx context.Context, id string, at time.Time) error {
	tx := d.db.WithContext(ctx).
		Model(&domain.Device{}).
		Where("id = ?", id).
		Update("last_validation", at)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (d *DeviceStore) Delete(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Delete(&domain.Device{}, "id = ?", id).Error
}

package domain

import (
	"strings"
	"time"
)

type DeviceStatus string

const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
)

func (s DeviceStatus) Valid() bool {
	return s == DeviceActive || s == DeviceInactive
}

const (
	DefaultQRRefreshTime  = 60
	DefaultMaxValidations = 5

	// MaxDeviceIDLength bounds device ids, including the ids recorded for
	// attempts against unknown devices.
	MaxDeviceIDLength = 128
)

type Device struct {
	ID              string       `gorm:"type:varchar(128);primaryKey" db:"id"`
	OwnerID         AccountID    `gorm:"type:varchar(36);not null;index" db:"owner_id"`
	Name            string       `gorm:"type:text;not null" db:"name"`
	Description     string       `gorm:"type:text" db:"description"`
	Secret          string       `gorm:"type:text" db:"secret"`
	HashedDeviceKey string       `gorm:"type:text" db:"hashed_device_key"`
	KeySalt         []byte       `db:"key_salt"`
	KeyParamsJSON   []byte       `db:"key_params_json"`
	KeyAlgo         string       `gorm:"type:text" db:"key_algo"`
	Status          DeviceStatus `gorm:"type:varchar(16);not null;default:active" db:"status"`
	QRRefreshTime   int          `gorm:"not null;default:60" db:"qr_refresh_time"`
	MaxValidations  int          `gorm:"not null;default:5" db:"max_validations"`
	Latitude        *float64     `db:"latitude"`
	Longitude       *float64     `db:"longitude"`
	Address         string       `gorm:"type:text" db:"address"`
	Image           string       `gorm:"type:text" db:"image"`
	LastValidation  *time.Time   `db:"last_validation"`
	CreatedAt       time.Time    `gorm:"not null" db:"created_at"`
	UpdatedAt       time.Time    `gorm:"not null" db:"updated_at"`
}

func (Device) TableName() string { return "devices" }

// HasSecret reports whether the device can decrypt payloads and verify codes.
func (d *Device) HasSecret() bool {
	return strings.TrimSpace(d.Secret) != ""
}

// Location returns the registered coordinates, or nil when either is unset.
func (d *Device) Location() []float64 {
	if d.Latitude == nil || d.Longitude == nil {
		return nil
	}
	return []float64{*d.Latitude, *d.Longitude}
}

// Argon2id key material accessors, shaped for service.DeviceKeyHasher.
func (d *Device) GetAlgo() string       { return d.KeyAlgo }
func (d *Device) GetHash() string       { return d.HashedDeviceKey }
func (d *Device) GetSalt() []byte       { return d.KeySalt }
func (d *Device) GetParamsJSON() []byte { return d.KeyParamsJSON }

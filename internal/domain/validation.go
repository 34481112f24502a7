package domain

import "time"

type ValidationResult string

const (
	ValidationSuccess ValidationResult = "success"
	ValidationFailure ValidationResult = "failure"
)

// FailureReason is the closed set of reasons a validation attempt can fail with.
type FailureReason string

const (
	ReasonNone            FailureReason = ""
	ReasonDeviceNotFound  FailureReason = "device_not_found"
	ReasonMissingSecret   FailureReason = "missing_secret"
	ReasonDecryptionError FailureReason = "decryption_error"
	ReasonInvalidFormat   FailureReason = "invalid_format"
	ReasonInvalidCode     FailureReason = "invalid_code"
)

// Message is the stable human readable text sent back to clients.
func (r FailureReason) Message() string {
	switch r {
	case ReasonDeviceNotFound:
		return "Device not found"
	case ReasonMissingSecret:
		return "Device missing secret key"
	case ReasonDecryptionError:
		return "Decryption error"
	case ReasonInvalidFormat:
		return "Invalid data format"
	case ReasonInvalidCode:
		return "Invalid code"
	default:
		return ""
	}
}

// ValidationRecord is written once per validation attempt and never updated.
// DeviceID holds the submitted identifier and is deliberately not a foreign
// key: attempts against unknown devices are recorded too.
type ValidationRecord struct {
	ID         uint64           `gorm:"primaryKey;autoIncrement" db:"id"`
	DeviceID   string           `gorm:"type:varchar(128);not null;index" db:"device_id"`
	AccountID  AccountID        `gorm:"type:varchar(36);not null;index" db:"account_id"`
	Result     ValidationResult `gorm:"type:varchar(16);not null" db:"result"`
	Reason     FailureReason    `gorm:"type:varchar(32)" db:"reason"`
	Detail     string           `gorm:"type:text" db:"detail"`
	Latitude   *float64         `db:"latitude"`
	Longitude  *float64         `db:"longitude"`
	RemoteAddr string           `gorm:"type:text" db:"remote_addr"`
	UserAgent  string           `gorm:"type:text" db:"user_agent"`
	CreatedAt  time.Time        `gorm:"not null;index" db:"created_at"`
}

func (ValidationRecord) TableName() string { return "validation_records" }

func (v *ValidationRecord) Succeeded() bool { return v.Result == ValidationSuccess }

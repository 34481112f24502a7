package dto

import "time"

type DeviceCreateRequest struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	Location        []float64 `json:"location"`
	Address         string    `json:"address"`
	Image           string    `json:"image"`
	QRRefreshTime   *int      `json:"qrRefreshTime,omitempty"`
	MaxValidations  *int      `json:"maxValidations,omitempty"`
	DeviceKey       string    `json:"deviceKey,omitempty"`
	HashedDeviceKey string    `json:"hashedDeviceKey,omitempty"`
	Secret          string    `json:"secret,omitempty"`
}

// DeviceUpdateRequest is a partial update; nil fields are left unchanged.
type DeviceUpdateRequest struct {
	Name           *string   `json:"name,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Location       []float64 `json:"location,omitempty"`
	Address        *string   `json:"address,omitempty"`
	Image          *string   `json:"image,omitempty"`
	Status         *string   `json:"status,omitempty"`
	QRRefreshTime  *int      `json:"qrRefreshTime,omitempty"`
	MaxValidations *int      `json:"maxValidations,omitempty"`
}

type ProvisionSecretRequest struct {
	DeviceKey string `json:"deviceKey"`
}

type ProvisionSecretResponse struct {
	DeviceID string `json:"deviceId"`
	Secret   string `json:"secret"`
	URI      string `json:"uri"`
}

// DeviceResponse is the public view of a device; Secret is only set for its owner.
type DeviceResponse struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	Owner          string     `json:"owner,omitempty"`
	Status         string     `json:"status"`
	Location       []float64  `json:"location"`
	Address        string     `json:"address,omitempty"`
	Image          string     `json:"image,omitempty"`
	QRRefreshTime  int        `json:"qrRefreshTime"`
	MaxValidations int        `json:"maxValidations"`
	HasSecret      bool       `json:"hasSecret"`
	Secret         string     `json:"secret,omitempty"`
	LastValidation *time.Time `json:"lastValidation,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

type ValidationRecordResponse struct {
	ID         uint64    `json:"id"`
	DeviceID   string    `json:"deviceId"`
	AccountID  string    `json:"accountId"`
	Result     string    `json:"result"`
	Reason     string    `json:"reason,omitempty"`
	Location   []float64 `json:"location,omitempty"`
	RemoteAddr string    `json:"remoteAddr,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

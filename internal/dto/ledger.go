package dto

import "time"

type SendTokenRequest struct {
	RecipientAddress string   `json:"recipient_address"`
	TokenAddresses   []string `json:"token_addresses"`
}

type SendTokenResponse struct {
	Transferred int `json:"transferred"`
}

// TransactionRow is one transition record as the collection page renders it.
type TransactionRow struct {
	ID           uint64    `json:"id"`
	ValidationID *uint64   `json:"validation_id"`
	DeviceID     *string   `json:"device_id"`
	TokenAddress string    `json:"token_address"`
	Timestamp    time.Time `json:"timestamp"`
	Sender       *string   `json:"sender"`
	Receiver     string    `json:"receiver"`
	Status       string    `json:"status"`
}

type TokenResponse struct {
	TokenAddress string           `json:"token_address"`
	Owner        string           `json:"owner"`
	Status       string           `json:"status"`
	History      []TransactionRow `json:"history"`
}

type MeResponse struct {
	AccountID         string    `json:"accountId"`
	CollectionAddress string    `json:"collectionAddress"`
	CreatedAt         time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Token string `json:"token,omitempty"`
}

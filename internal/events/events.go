package events

import "time"

// Event is anything emitted through a Sink. Name is stable and used as the log message.
type Event interface {
	EventName() string
}

type ValidationRecorded struct {
	ValidationID uint64    `json:"validationId"`
	DeviceID     string    `json:"deviceId"`
	AccountID    string    `json:"accountId"`
	Result       string    `json:"result"`
	Reason       string    `json:"reason,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	At           time.Time `json:"at"`
}

type TokenMinted struct {
	TokenAddress string    `json:"tokenAddress"`
	ValidationID uint64    `json:"validationId"`
	DeviceID     string    `json:"deviceId"`
	Receiver     string    `json:"receiver"`
	At           time.Time `json:"at"`
}

// MintFailed is raised when a validation succeeded but its token could not be written.
type MintFailed struct {
	ValidationID uint64    `json:"validationId"`
	DeviceID     string    `json:"deviceId"`
	Receiver     string    `json:"receiver"`
	Error        string    `json:"error"`
	At           time.Time `json:"at"`
}

type TokensTransferred struct {
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Tokens   []string  `json:"tokens"`
	At       time.Time `json:"at"`
}

type TransferRejected struct {
	Sender   string    `json:"sender"`
	Receiver string    `json:"receiver"`
	Token    string    `json:"token,omitempty"`
	Reason   string    `json:"reason"`
	At       time.Time `json:"at"`
}

type DeviceRegistered struct {
	DeviceID string    `json:"deviceId"`
	OwnerID  string    `json:"ownerId"`
	At       time.Time `json:"at"`
}

type DeviceDeleted struct {
	DeviceID string    `json:"deviceId"`
	OwnerID  string    `json:"ownerId"`
	At       time.Time `json:"at"`
}

func (ValidationRecorded) EventName() string { return "validation.recorded" }
func (TokenMinted) EventName() string        { return "token.minted" }
func (MintFailed) EventName() string         { return "token.mint_failed" }
func (TokensTransferred) EventName() string  { return "token.transferred" }
func (TransferRejected) EventName() string   { return "token.transfer_rejected" }
func (DeviceRegistered) EventName() string   { return "device.registered" }
func (DeviceDeleted) EventName() string      { return "device.deleted" }

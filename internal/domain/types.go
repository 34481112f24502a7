package domain

import (
	"encoding/hex"

	"github.com/google/uuid"
)

type AccountID = uuid.UUID

// NewAddress returns a fresh opaque ledger address ("0x" followed by 32 hex digits).
// Collection addresses and token addresses share the format.
func NewAddress() string {
	id := uuid.New()
	return "0x" + hex.EncodeToString(id[:])
}

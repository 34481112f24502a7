package domain

import "time"

// TransitionStatus tags a TransitionRecord. Mint and transferred records hold
// the token for their receiver; a spent record has been superseded by a later
// transfer and no longer confers ownership.
type TransitionStatus string

const (
	StatusMint        TransitionStatus = "mint"
	StatusTransferred TransitionStatus = "transferred"
	StatusSpent       TransitionStatus = "spent"
)

// Holding reports whether a record with this status still confers ownership.
func (s TransitionStatus) Holding() bool {
	return s == StatusMint || s == StatusTransferred
}

// TransitionRecord is one link of a token's ownership chain. Only the Status
// column is ever rewritten (to StatusSpent) and only by a transfer.
type TransitionRecord struct {
	ID           uint64           `gorm:"primaryKey;autoIncrement" db:"id"`
	TokenAddress string           `gorm:"type:varchar(66);not null;index:ix_transitions_token" db:"token_address"`
	ValidationID *uint64          `gorm:"index" db:"validation_id"`
	DeviceID     *string          `gorm:"type:varchar(128);index" db:"device_id"`
	Sender       *string          `gorm:"type:varchar(66)" db:"sender"`
	Receiver     string           `gorm:"type:varchar(66);not null;index:ix_transitions_receiver" db:"receiver"`
	Status       TransitionStatus `gorm:"type:varchar(16);not null" db:"status"`
	Timestamp    time.Time        `gorm:"not null" db:"timestamp"`
}

func (TransitionRecord) TableName() string { return "transition_records" }

// After reports whether r supersedes other in a token's chain: the later
// timestamp wins, equal timestamps fall back to the higher sequence id.
func (r *TransitionRecord) After(other *TransitionRecord) bool {
	if c := r.Timestamp.Compare(other.Timestamp); c != 0 {
		return c > 0
	}
	return r.ID > other.ID
}

// LatestByToken picks the latest record for every token address present in records.
func LatestByToken(records []TransitionRecord) map[string]*TransitionRecord {
	out := make(map[string]*TransitionRecord)
	for i := range records {
		rec := &records[i]
		cur, ok := out[rec.TokenAddress]
		if !ok || rec.After(cur) {
			out[rec.TokenAddress] = rec
		}
	}
	return out
}

// NextTimestamp returns a timestamp for a record following prev, never earlier
// than or equal to prev's so the chain stays strictly ordered in time.
func NextTimestamp(now time.Time, prev *TransitionRecord) time.Time {
	now = now.UTC().Truncate(time.Microsecond)
	if prev != nil && !now.After(prev.Timestamp) {
		return prev.Timestamp.Add(time.Microsecond)
	}
	return now
}

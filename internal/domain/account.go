package domain

import "time"

// Account is the local projection of an externally authenticated user.
type Account struct {
	ID                AccountID `gorm:"type:varchar(36);primaryKey" db:"id" json:"id"`
	CollectionAddress string    `gorm:"type:varchar(66);not null;uniqueIndex:ux_accounts_collection_address" db:"collection_address" json:"collectionAddress"`
	CreatedAt         time.Time `gorm:"not null" db:"created_at" json:"createdAt"`
}

func (Account) TableName() string { return "accounts" }

package store

import (
	"context"
	"database/sql"
	"errors"

	"geoproof/internal/domain"

	"gorm.io/gorm"
)

var ErrRecordNotFound = errors.New("record not found")

type Store struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *Store { return &Store{DB: db} }

func (s *Store) AutoMigrate(ctx context.Context) error {
	return s.DB.WithContext(ctx).AutoMigrate(
		&domain.Account{},
		&domain.Device{},
		&domain.ValidationRecord{},
		&domain.TransitionRecord{},
	)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	})
}

// WithSerializableTx runs fn at serializable isolation on servers that support
// choosing it. SQLite transactions are already serialized by its database lock.
func (s *Store) WithSerializableTx(ctx context.Context, fn func(tx *Store) error) error {
	var opts []*sql.TxOptions
	switch s.DB.Dialector.Name() {
	case "postgres", "mysql":
		opts = append(opts, &sql.TxOptions{Isolation: sql.LevelSerializable})
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{DB: tx})
	}, opts...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrRecordNotFound
	}
	return err
}

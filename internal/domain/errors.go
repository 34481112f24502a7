package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest   = errors.New("invalid request")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceExists     = errors.New("device already exists")
	ErrNotDeviceOwner   = errors.New("not authorized for this device")
	ErrDeviceReferenced = errors.New("device is referenced by validation history")
	ErrInvalidDeviceKey = errors.New("invalid device key")
	ErrAccountNotFound  = errors.New("account not found")
	ErrTokenNotFound    = errors.New("token not found")
	ErrNotTokenOwner    = errors.New("token not held by sender")
	ErrTransferConflict = errors.New("concurrent transfer conflict")
	ErrStorage          = errors.New("storage failure")
)

// StorageError wraps a driver failure. It matches ErrStorage and keeps the
// driver error reachable for classification; its text is never sent to clients.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// Storage wraps err as a StorageError unless it is nil or already one.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// TokenError names the token that made a ledger operation fail.
type TokenError struct {
	Token string
	Err   error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Token)
}

func (e *TokenError) Unwrap() error { return e.Err }

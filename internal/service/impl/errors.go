package impl

import (
	"errors"

	"geoproof/internal/domain"
)

var (
	ErrEmptyDeviceKey = errors.New("empty device key")
	ErrStoreMissing   = errors.New("store not configured")
)

// passthrough errors are returned to callers unchanged; everything else that
// comes out of the store is reported as a StorageError.
var passthrough = []error{
	domain.ErrInvalidRequest,
	domain.ErrDeviceNotFound,
	domain.ErrDeviceExists,
	domain.ErrNotDeviceOwner,
	domain.ErrDeviceReferenced,
	domain.ErrInvalidDeviceKey,
	domain.ErrAccountNotFound,
	domain.ErrTokenNotFound,
	domain.ErrNotTokenOwner,
	domain.ErrTransferConflict,
	domain.ErrStorage,
	ErrEmptyDeviceKey,
}

func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range passthrough {
		if errors.Is(err, known) {
			return err
		}
	}
	return domain.Storage(op, err)
}

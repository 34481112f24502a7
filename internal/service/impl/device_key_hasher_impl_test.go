package impl

import (
	"errors"
	"testing"

	"geoproof/internal/domain"
)

func TestDeviceKeyHasherRoundTrip(t *testing.T) {
	h := NewDeviceKeyHasherWithParams(Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8})

	hash, salt, params, algo, err := h.Hash("s3cret-device-key")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	dev := &domain.Device{HashedDeviceKey: hash, KeySalt: salt, KeyParamsJSON: params, KeyAlgo: algo}

	if !h.Verify("s3cret-device-key", dev) {
		t.Fatalf("expected matching key to verify")
	}
	if h.Verify("other-key", dev) {
		t.Fatalf("expected wrong key to fail")
	}
	if h.Verify("", dev) {
		t.Fatalf("expected empty key to fail")
	}

	// Stored params win over the hasher's current policy.
	stronger := NewDeviceKeyHasherWithParams(Argon2Params{Time: 2, Memory: 128, Threads: 1, KeyLen: 32, SaltLen: 16})
	if !stronger.Verify("s3cret-device-key", dev) {
		t.Fatalf("expected verification with stored params")
	}

	dev.KeyAlgo = AlgoExternal
	if h.Verify("s3cret-device-key", dev) {
		t.Fatalf("external hashes must never verify")
	}

	if _, _, _, _, err := h.Hash(""); !errors.Is(err, ErrEmptyDeviceKey) {
		t.Fatalf("expected ErrEmptyDeviceKey, got %v", err)
	}
}

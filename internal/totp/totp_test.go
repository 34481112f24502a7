package totp

import (
	"testing"
	"time"
)

const testSecret = "ABCDEFGHIJKLMNOP"

// 1700000010 is a multiple of the 30s step.
var stepStart = time.Unix(1700000010, 0).UTC()

func TestVerifyToleratesOneStepOfDrift(t *testing.T) {
	code, err := Generate(testSecret, stepStart)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 digit code, got %q", code)
	}

	tests := []struct {
		name   string
		offset time.Duration
		want   bool
	}{
		{name: "same step start", offset: 0, want: true},
		{name: "same step end", offset: 29 * time.Second, want: true},
		{name: "one step later", offset: 30 * time.Second, want: true},
		{name: "end of one step later", offset: 59 * time.Second, want: true},
		{name: "one step earlier", offset: -30 * time.Second, want: true},
		{name: "two steps later", offset: 60 * time.Second, want: false},
		{name: "two steps earlier", offset: -31 * time.Second, want: false},
		{name: "far away", offset: 10 * time.Minute, want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := Verify(testSecret, code, stepStart.Add(tc.offset))
			if err != nil {
				t.Fatalf("verify: %v", err)
			}
			if ok != tc.want {
				t.Fatalf("verify at %s: expected %v, got %v", tc.offset, tc.want, ok)
			}
		})
	}
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	for _, code := range []string{"", "12345", "1234567", "abcdef"} {
		ok, err := Verify(testSecret, code, stepStart)
		if err != nil {
			t.Fatalf("verify %q: unexpected error %v", code, err)
		}
		if ok {
			t.Fatalf("verify %q: expected rejection", code)
		}
	}
}

func TestUnusableSecret(t *testing.T) {
	if _, err := Generate("not base32 !!", stepStart); err != ErrUnusableSecret {
		t.Fatalf("generate: expected ErrUnusableSecret, got %v", err)
	}
	if _, err := Verify("not base32 !!", "123456", stepStart); err != ErrUnusableSecret {
		t.Fatalf("verify: expected ErrUnusableSecret, got %v", err)
	}
}

func TestNewSecret(t *testing.T) {
	p, err := NewSecret("geoproof", "D1")
	if err != nil {
		t.Fatalf("new secret: %v", err)
	}
	if len(p.Secret) != 16 {
		t.Fatalf("expected 16 base32 chars, got %q", p.Secret)
	}
	code, err := Generate(p.Secret, stepStart)
	if err != nil {
		t.Fatalf("generate with provisioned secret: %v", err)
	}
	if ok, _ := Verify(p.Secret, code, stepStart); !ok {
		t.Fatalf("provisioned secret failed to verify its own code")
	}
	if p.URI == "" {
		t.Fatalf("expected otpauth uri")
	}
}

func TestCheckSecret(t *testing.T) {
	if err := CheckSecret("ABCDEFGHIJKLMNOP"); err != nil {
		t.Fatalf("expected usable secret, got %v", err)
	}
	if err := CheckSecret("not base32!"); err != ErrUnusableSecret {
		t.Fatalf("expected ErrUnusableSecret, got %v", err)
	}
}

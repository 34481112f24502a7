// Package totp implements the time-based one-time codes shown by field devices.
//
// Codes follow RFC 6238 with the parameters field devices are flashed with:
// HMAC-SHA1, 6 digits, 30 second steps, base32 encoded shared secret. A code is
// accepted for the current step and one step either side of it to absorb
// device clock drift. The tolerance is fixed for every device.
package totp

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	Period = 30
	Digits = otp.DigitsSix
	// Skew is the number of steps accepted on either side of the current one.
	Skew = 1
)

// ErrUnusableSecret is returned when a device secret is not valid base32.
var ErrUnusableSecret = errors.New("totp: secret is not valid base32")

func opts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    Period,
		Skew:      Skew,
		Digits:    Digits,
		Algorithm: otp.AlgorithmSHA1,
	}
}

// Generate returns the code for the step containing at.
func Generate(secret string, at time.Time) (string, error) {
	code, err := totp.GenerateCodeCustom(secret, at, opts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return "", ErrUnusableSecret
		}
		return "", err
	}
	return code, nil
}

// Verify reports whether code matches secret at time at within the skew window.
// A mismatch, including a code of the wrong length, is (false, nil); only an
// unusable secret produces an error.
func Verify(secret, code string, at time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != Digits.Length() {
		return false, nil
	}
	ok, err := totp.ValidateCustom(code, secret, at, opts())
	if err != nil {
		if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
			return false, ErrUnusableSecret
		}
		if errors.Is(err, otp.ErrValidateInputInvalidLength) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// Provisioned is a freshly generated device secret.
type Provisioned struct {
	Secret string
	URI    string
}

// NewSecret generates a random base32 secret for deviceID labelled with issuer,
// together with its otpauth:// URI for loading into a field device.
func NewSecret(issuer, deviceID string) (*Provisioned, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: deviceID,
		Period:      Period,
		SecretSize:  10,
		Digits:      Digits,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}
	return &Provisioned{Secret: key.Secret(), URI: key.URL()}, nil
}

// CheckSecret returns ErrUnusableSecret unless secret can drive code generation.
func CheckSecret(secret string) error {
	_, err := Generate(secret, time.Unix(0, 0))
	return err
}

// Package payload implements the encrypted code payload exchanged between field
// devices and the validation endpoint.
//
// Wire format: URL-safe base64 of IV(16) || AES-CBC ciphertext. The AES-256 key
// is the UTF-8 secret zero-padded or truncated to 32 bytes and the plaintext is
// PKCS#7 padded.
package payload

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const KeySize = 32

// Stable DecryptionError details.
const (
	DetailMalformedEncoding = "malformed_encoding"
	DetailShortPayload      = "short_payload"
	DetailBadBlockSize      = "bad_block_size"
	DetailBadPadding        = "bad_padding"
	DetailInvalidUTF8       = "invalid_utf8"
)

var ErrDecryption = errors.New("decryption error")

// DecryptionError is the only error kind Decrypt returns.
type DecryptionError struct {
	Detail string
}

func (e *DecryptionError) Error() string { return "decryption error: " + e.Detail }

func (e *DecryptionError) Is(target error) bool { return target == ErrDecryption }

// Key derives the AES key from a device secret.
func Key(secret string) []byte {
	key := make([]byte, KeySize)
	copy(key, secret)
	return key
}

// Encrypt produces a payload with a random IV. This is the field device side
// of the exchange.
func Encrypt(secret string, plaintext []byte) (string, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}
	return EncryptWithIV(secret, iv, plaintext)
}

func EncryptWithIV(secret string, iv, plaintext []byte) (string, error) {
	if len(iv) != aes.BlockSize {
		return "", fmt.Errorf("iv must be %d bytes", aes.BlockSize)
	}
	block, err := aes.NewCipher(Key(secret))
	if err != nil {
		return "", err
	}
	padded := pad(plaintext, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return base64.URLEncoding.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. Padded and unpadded base64 are both accepted.
func Decrypt(secret, payload string) (string, error) {
	raw, err := decodeBase64(strings.TrimSpace(payload))
	if err != nil {
		return "", &DecryptionError{Detail: DetailMalformedEncoding}
	}
	if len(raw) < 2*aes.BlockSize {
		return "", &DecryptionError{Detail: DetailShortPayload}
	}
	iv, ciphertext := raw[:aes.BlockSize], raw[aes.BlockSize:]
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", &DecryptionError{Detail: DetailBadBlockSize}
	}
	block, err := aes.NewCipher(Key(secret))
	if err != nil {
		return "", &DecryptionError{Detail: DetailBadBlockSize}
	}
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)
	plain, ok := unpad(plain, aes.BlockSize)
	if !ok {
		return "", &DecryptionError{Detail: DetailBadPadding}
	}
	if !utf8.Valid(plain) {
		return "", &DecryptionError{Detail: DetailInvalidUTF8}
	}
	return string(plain), nil
}

func decodeBase64(s string) ([]byte, error) {
	if raw, err := base64.URLEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(append([]byte(nil), b...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func unpad(b []byte, size int) ([]byte, bool) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, false
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, false
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, false
		}
	}
	return b[:len(b)-n], true
}

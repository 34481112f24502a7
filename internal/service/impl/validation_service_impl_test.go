package impl

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"geoproof/internal/domain"
	"geoproof/internal/events"
	"geoproof/internal/payload"
	"geoproof/internal/service"
	"geoproof/internal/totp"
)

func encryptReading(t *testing.T, secret string, r payload.Reading) string {
	t.Helper()
	enc, err := payload.Encrypt(secret, []byte(r.Format()))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return enc
}

func currentCode(t *testing.T, at time.Time) string {
	t.Helper()
	code, err := totp.Generate(testSecret, at)
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	return code
}

func validationCount(t *testing.T, f *fixture, deviceID string) int64 {
	t.Helper()
	n, err := f.st.Validations().CountByDevice(context.Background(), deviceID)
	if err != nil {
		t.Fatalf("count validations: %v", err)
	}
	return n
}

func TestValidateSuccessMintsToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.account(t)
	acct := f.account(t)
	f.device(t, owner.ID, "D1", testSecret)

	enc := encryptReading(t, testSecret, payload.Reading{Code: currentCode(t, testNow), Lat: 48.1889, Lng: 16.3763})
	out, err := f.validations.Validate(ctx, service.ValidationRequest{
		DeviceID:   "D1",
		Payload:    enc,
		AccountID:  acct.ID,
		RemoteAddr: "192.0.2.10:51234",
		UserAgent:  "esp32-http-client/1.0",
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !out.Succeeded() || out.Record.Result != domain.ValidationSuccess {
		t.Fatalf("expected success, got reason %q detail %q", out.Reason, out.Detail)
	}
	if len(out.Location) != 2 || out.Location[0] != 48.1889 || out.Location[1] != 16.3763 {
		t.Fatalf("unexpected location %v", out.Location)
	}
	if out.Record.ID == 0 || out.Record.RemoteAddr != "192.0.2.10" {
		t.Fatalf("unexpected record %+v", out.Record)
	}
	if out.TokenAddress == "" {
		t.Fatalf("expected a minted token")
	}

	holder, err := f.ledger.CurrentOwner(ctx, out.TokenAddress)
	if err != nil {
		t.Fatalf("current owner: %v", err)
	}
	if holder != acct.CollectionAddress {
		t.Fatalf("expected token held by %s, got %s", acct.CollectionAddress, holder)
	}

	hist := f.history(t, out.TokenAddress)
	if len(hist) != 1 {
		t.Fatalf("expected one mint record, got %d", len(hist))
	}
	mint := hist[0]
	if mint.Status != domain.StatusMint || mint.Sender != nil {
		t.Fatalf("unexpected mint record %+v", mint)
	}
	if mint.ValidationID == nil || *mint.ValidationID != out.Record.ID {
		t.Fatalf("mint must reference validation %d", out.Record.ID)
	}
	if mint.DeviceID == nil || *mint.DeviceID != "D1" {
		t.Fatalf("mint must carry device provenance")
	}

	dev, err := f.devices.Get(ctx, "D1")
	if err != nil {
		t.Fatalf("get device: %v", err)
	}
	if dev.LastValidation == nil || !dev.LastValidation.Equal(testNow) {
		t.Fatalf("expected last validation %v, got %v", testNow, dev.LastValidation)
	}
	if got := validationCount(t, f, "D1"); got != 1 {
		t.Fatalf("expected 1 validation record, got %d", got)
	}
	if got := len(f.sink.Named("token.minted")); got != 1 {
		t.Fatalf("expected 1 minted event, got %d", got)
	}
}

func TestValidateAcceptsOneStepOfDrift(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t)
	f.device(t, acct.ID, "D1", testSecret)

	for _, offset := range []time.Duration{-30 * time.Second, 30 * time.Second} {
		enc := encryptReading(t, testSecret, payload.Reading{Code: currentCode(t, testNow.Add(offset)), Lat: 1, Lng: 2})
		out, err := f.validations.Validate(context.Background(), service.ValidationRequest{DeviceID: "D1", Payload: enc, AccountID: acct.ID})
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if !out.Succeeded() {
			t.Fatalf("offset %v: expected success, got %q", offset, out.Reason)
		}
	}
}

func TestValidateFailures(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t)
	f.device(t, acct.ID, "D1", testSecret)
	f.device(t, acct.ID, "NOSECRET", "")

	good := encryptReading(t, testSecret, payload.Reading{Code: currentCode(t, testNow), Lat: 48.1889, Lng: 16.3763})
	raw, err := base64.URLEncoding.DecodeString(good)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	raw[len(raw)-1] ^= 0xff
	tampered := base64.URLEncoding.EncodeToString(raw)

	tests := []struct {
		name     string
		deviceID string
		payload  string
		reasons  []domain.FailureReason
	}{
		{name: "unknown device", deviceID: "ghost-device", payload: good, reasons: []domain.FailureReason{domain.ReasonDeviceNotFound}},
		{name: "missing secret", deviceID: "NOSECRET", payload: good, reasons: []domain.FailureReason{domain.ReasonMissingSecret}},
		{name: "not base64", deviceID: "D1", payload: "!!!", reasons: []domain.FailureReason{domain.ReasonDecryptionError}},
		{name: "tampered ciphertext", deviceID: "D1", payload: tampered, reasons: []domain.FailureReason{domain.ReasonDecryptionError, domain.ReasonInvalidFormat}},
		{name: "two fields", deviceID: "D1", payload: encryptPlain(t, "123456|48.1889"), reasons: []domain.FailureReason{domain.ReasonInvalidFormat}},
		{name: "non numeric", deviceID: "D1", payload: encryptPlain(t, "123456|north|16.3763"), reasons: []domain.FailureReason{domain.ReasonInvalidFormat}},
		{name: "stale code", deviceID: "D1", payload: encryptReading(t, testSecret, payload.Reading{Code: currentCode(t, testNow.Add(-60*time.Second)), Lat: 1, Lng: 2}), reasons: []domain.FailureReason{domain.ReasonInvalidCode}},
		{name: "wrong digits", deviceID: "D1", payload: encryptPlain(t, "12345|1|2"), reasons: []domain.FailureReason{domain.ReasonInvalidCode}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := validationCount(t, f, tc.deviceID)
			out, err := f.validations.Validate(context.Background(), service.ValidationRequest{DeviceID: tc.deviceID, Payload: tc.payload, AccountID: acct.ID})
			if err != nil {
				t.Fatalf("validate: %v", err)
			}
			if out.Succeeded() {
				t.Fatalf("expected failure")
			}
			matched := false
			for _, r := range tc.reasons {
				matched = matched || out.Reason == r
			}
			if !matched {
				t.Fatalf("expected one of %v, got %q", tc.reasons, out.Reason)
			}
			if out.Record.Result != domain.ValidationFailure || out.Record.DeviceID != tc.deviceID {
				t.Fatalf("unexpected record %+v", out.Record)
			}
			if out.Record.Latitude != nil || out.Record.Longitude != nil || out.Location != nil {
				t.Fatalf("failed attempts must not carry coordinates")
			}
			if out.TokenAddress != "" {
				t.Fatalf("failed attempts must not mint")
			}
			if got := validationCount(t, f, tc.deviceID); got != before+1 {
				t.Fatalf("expected exactly one new record, got %d -> %d", before, got)
			}
		})
	}

	owned, err := f.ledger.OwnedBy(context.Background(), acct.CollectionAddress)
	if err != nil {
		t.Fatalf("owned by: %v", err)
	}
	if len(owned) != 0 {
		t.Fatalf("no token may be minted by failed attempts, got %d", len(owned))
	}
	dev, err := f.devices.Get(context.Background(), "D1")
	if err != nil {
		t.Fatalf("get device: %v", err)
	}
	if dev.LastValidation != nil {
		t.Fatalf("failed attempts must not touch last validation")
	}
}

func encryptPlain(t *testing.T, plaintext string) string {
	t.Helper()
	enc, err := payload.Encrypt(testSecret, []byte(plaintext))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	return enc
}

func TestValidateUnusableSecretIsInvalidCode(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t)
	f.device(t, acct.ID, "D1", testSecret)

	// Secrets written by older tooling may not be base32.
	if err := f.st.DB.Model(&domain.Device{}).Where("id = ?", "D1").Update("secret", "not-base32-at-all!").Error; err != nil {
		t.Fatalf("overwrite secret: %v", err)
	}
	enc, err := payload.Encrypt("not-base32-at-all!", []byte("123456|1|2"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	out, err := f.validations.Validate(context.Background(), service.ValidationRequest{DeviceID: "D1", Payload: enc, AccountID: acct.ID})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if out.Reason != domain.ReasonInvalidCode || out.Detail != detailUnusableSecret {
		t.Fatalf("expected invalid_code/unusable_secret, got %q/%q", out.Reason, out.Detail)
	}
}

type failingLedger struct {
	service.LedgerService
	err error
}

func (l failingLedger) Mint(context.Context, *domain.ValidationRecord, string, string) (*domain.TransitionRecord, error) {
	return nil, l.err
}

func TestValidateSurvivesMintFailure(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t)
	f.device(t, acct.ID, "D1", testSecret)

	svc := NewValidationServiceImpl(f.st, failingLedger{err: domain.Storage("mint", errors.New("disk full"))}, f.accounts, f.sink)
	svc.now = func() time.Time { return testNow }

	enc := encryptReading(t, testSecret, payload.Reading{Code: currentCode(t, testNow), Lat: 48.1889, Lng: 16.3763})
	out, err := svc.Validate(context.Background(), service.ValidationRequest{DeviceID: "D1", Payload: enc, AccountID: acct.ID})
	if err != nil {
		t.Fatalf("mint failure must not fail the validation: %v", err)
	}
	if !out.Succeeded() || out.Record.ID == 0 {
		t.Fatalf("expected a recorded success, got %+v", out)
	}
	if out.TokenAddress != "" {
		t.Fatalf("expected no token address, got %s", out.TokenAddress)
	}
	failed := f.sink.Named("token.mint_failed")
	if len(failed) != 1 {
		t.Fatalf("expected 1 mint failure event, got %d", len(failed))
	}
	if ev := failed[0].(events.MintFailed); ev.ValidationID != out.Record.ID || ev.Receiver != acct.CollectionAddress {
		t.Fatalf("unexpected mint failure event %+v", ev)
	}
}

func TestValidateRecordsEveryAttemptAsEvent(t *testing.T) {
	f := newFixture(t)
	acct := f.account(t)
	f.device(t, acct.ID, "D1", testSecret)

	for i := 0; i < 3; i++ {
		if _, err := f.validations.Validate(context.Background(), service.ValidationRequest{DeviceID: "D1", Payload: "garbage", AccountID: acct.ID}); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}
	recorded := f.sink.Named("validation.recorded")
	if len(recorded) != 3 {
		t.Fatalf("expected 3 events, got %d", len(recorded))
	}
	if ev := recorded[0].(events.ValidationRecorded); ev.Reason != string(domain.ReasonDecryptionError) || ev.Detail == "" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

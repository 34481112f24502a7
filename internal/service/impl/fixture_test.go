package impl

import (
	"context"
	"regexp"
	"testing"
	"time"

	"geoproof/internal/domain"
	"geoproof/internal/dto"
	"geoproof/internal/events"
	"geoproof/internal/store"

	"github.com/google/uuid"
)

const testSecret = "ABCDEFGHIJKLMNOP"

// testNow sits in the middle of a 30s step.
var testNow = time.Unix(1700000025, 0).UTC()

var unsafeDSNChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	dsn := "file:" + unsafeDSNChars.ReplaceAllString(t.Name(), "_") + "?mode=memory&cache=shared"
	db, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	st := store.New(db)
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return st
}

type fixture struct {
	st          *store.Store
	sink        *events.MemorySink
	hasher      *DeviceKeyHasherArgon2id
	accounts    *AccountServiceImpl
	ledger      *LedgerServiceImpl
	devices     *DeviceServiceImpl
	validations *ValidationServiceImpl
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st := newTestStore(t)
	sink := events.NewMemorySink()
	hasher := NewDeviceKeyHasherWithParams(Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 16, SaltLen: 8})
	accounts := NewAccountServiceImpl(st)
	ledger := NewLedgerServiceImpl(st, sink)
	devices := NewDeviceServiceImpl(st, hasher, sink, "geoproof-test")
	validations := NewValidationServiceImpl(st, ledger, accounts, sink)

	clock := func() time.Time { return testNow }
	ledger.now = clock
	devices.now = clock
	validations.now = clock

	return &fixture{
		st:          st,
		sink:        sink,
		hasher:      hasher,
		accounts:    accounts,
		ledger:      ledger,
		devices:     devices,
		validations: validations,
	}
}

func (f *fixture) account(t *testing.T) *domain.Account {
	t.Helper()
	acct, err := f.accounts.Ensure(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	return acct
}

func (f *fixture) device(t *testing.T, owner domain.AccountID, id, secret string) *domain.Device {
	t.Helper()
	dev, err := f.devices.Register(context.Background(), owner, dto.DeviceCreateRequest{
		ID:              id,
		Name:            "Stephansplatz " + id,
		Location:        []float64{48.2085, 16.3721},
		HashedDeviceKey: "client-side-hash",
		Secret:          secret,
	})
	if err != nil {
		t.Fatalf("register device %s: %v", id, err)
	}
	return dev
}

// mint writes a successful validation for deviceID and mints its token to receiver.
func (f *fixture) mint(t *testing.T, deviceID, receiver string) string {
	t.Helper()
	ctx := context.Background()
	lat, lng := 48.1889, 16.3763
	rec := &domain.ValidationRecord{
		DeviceID:  deviceID,
		AccountID: uuid.New(),
		Result:    domain.ValidationSuccess,
		Latitude:  &lat,
		Longitude: &lng,
		CreatedAt: testNow,
	}
	if err := f.st.Validations().Create(ctx, rec); err != nil {
		t.Fatalf("create validation: %v", err)
	}
	tr, err := f.ledger.Mint(ctx, rec, deviceID, receiver)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return tr.TokenAddress
}

func (f *fixture) history(t *testing.T, token string) []domain.TransitionRecord {
	t.Helper()
	recs, err := f.ledger.History(context.Background(), token)
	if err != nil {
		t.Fatalf("history %s: %v", token, err)
	}
	return recs
}

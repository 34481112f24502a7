package impl

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"geoproof/internal/domain"
	"geoproof/internal/dto"
	"geoproof/internal/events"
	"geoproof/internal/service"
	"geoproof/internal/store"
	"geoproof/internal/totp"

	"github.com/google/uuid"
)

var _ service.DeviceService = (*DeviceServiceImpl)(nil)

const (
	defaultValidationsLimit = 50
	maxValidationsLimit     = 500
)

type DeviceServiceImpl struct {
	store  *store.Store
	hasher service.DeviceKeyHasher
	sink   events.Sink
	issuer string
	now    func() time.Time
}

func NewDeviceServiceImpl(st *store.Store, hasher service.DeviceKeyHasher, sink events.Sink, issuer string) *DeviceServiceImpl {
	if sink == nil {
		sink = events.Discard
	}
	return &DeviceServiceImpl{
		store:  st,
		hasher: hasher,
		sink:   sink,
		issuer: issuer,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (d *DeviceServiceImpl) Register(ctx context.Context, owner domain.AccountID, req dto.DeviceCreateRequest) (*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	if owner == uuid.Nil {
		return nil, invalid("owner is required")
	}
	id := strings.TrimSpace(req.ID)
	if id == "" || len(id) > domain.MaxDeviceIDLength {
		return nil, invalid("id must be 1 to %d bytes", domain.MaxDeviceIDLength)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	lat, lng, err := parseLocation(req.Location)
	if err != nil {
		return nil, err
	}

	now := d.nowTime()
	device := &domain.Device{
		ID:             id,
		OwnerID:        owner,
		Name:           name,
		Description:    strings.TrimSpace(req.Description),
		Status:         domain.DeviceActive,
		QRRefreshTime:  domain.DefaultQRRefreshTime,
		MaxValidations: domain.DefaultMaxValidations,
		Latitude:       &lat,
		Longitude:      &lng,
		Address:        strings.TrimSpace(req.Address),
		Image:          strings.TrimSpace(req.Image),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := applyLimits(device, req.QRRefreshTime, req.MaxValidations); err != nil {
		return nil, err
	}

	switch {
	case req.DeviceKey != "":
		if d.hasher == nil {
			return nil, errors.New("device key hasher not configured")
		}
		hash, salt, params, algo, err := d.hasher.Hash(req.DeviceKey)
		if err != nil {
			return nil, err
		}
		device.HashedDeviceKey, device.KeySalt, device.KeyParamsJSON, device.KeyAlgo = hash, salt, params, algo
	case strings.TrimSpace(req.HashedDeviceKey) != "":
		device.HashedDeviceKey = strings.TrimSpace(req.HashedDeviceKey)
		device.KeyAlgo = AlgoExternal
	default:
		return nil, invalid("deviceKey or hashedDeviceKey is required")
	}

	if secret := strings.TrimSpace(req.Secret); secret != "" {
		if err := totp.CheckSecret(secret); err != nil {
			return nil, invalid("secret must be base32")
		}
		device.Secret = secret
	}

	err = d.store.WithTx(ctx, func(tx *store.Store) error {
		exists, err := tx.Devices().Exists(ctx, id)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDeviceExists
		}
		return tx.Devices().Create(ctx, device)
	})
	if err != nil {
		return nil, wrapStorage("register device", err)
	}

	d.sink.Emit(ctx, events.DeviceRegistered{DeviceID: device.ID, OwnerID: owner.String(), At: now})
	return device, nil
}

func (d *DeviceServiceImpl) Get(ctx context.Context, id string) (*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	device, err := d.store.Devices().Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, translateDeviceErr("get device", err)
	}
	return device, nil
}

func (d *DeviceServiceImpl) List(ctx context.Context) ([]domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	devices, err := d.store.Devices().List(ctx)
	if err != nil {
		return nil, domain.Storage("list devices", err)
	}
	return devices, nil
}

func (d *DeviceServiceImpl) ListByOwner(ctx context.Context, owner domain.AccountID) ([]domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	devices, err := d.store.Devices().ListByOwner(ctx, owner)
	if err != nil {
		return nil, domain.Storage("list owner devices", err)
	}
	return devices, nil
}

func (d *DeviceServiceImpl) Update(ctx context.Context, owner domain.AccountID, id string, req dto.DeviceUpdateRequest) (*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}

	var out *domain.Device
	err := d.store.WithTx(ctx, func(tx *store.Store) error {
		device, err := d.owned(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return invalid("name cannot be empty")
			}
			device.Name = name
		}
		if req.Description != nil {
			device.Description = strings.TrimSpace(*req.Description)
		}
		if req.Location != nil {
			lat, lng, err := parseLocation(req.Location)
			if err != nil {
				return err
			}
			device.Latitude, device.Longitude = &lat, &lng
		}
		if req.Address != nil {
			device.Address = strings.TrimSpace(*req.Address)
		}
		if req.Image != nil {
			device.Image = strings.TrimSpace(*req.Image)
		}
		if req.Status != nil {
			status := domain.DeviceStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
			if !status.Valid() {
				return invalid("status must be active or inactive")
			}
			device.Status = status
		}
		if err := applyLimits(device, req.QRRefreshTime, req.MaxValidations); err != nil {
			return err
		}
		device.UpdatedAt = d.nowTime()
		if err := tx.Devices().Save(ctx, device); err != nil {
			return err
		}
		out = device
		return nil
	})
	if err != nil {
		return nil, wrapStorage("update device", err)
	}
	return out, nil
}

// Delete removes a device that has never been validated against or minted from.
func (d *DeviceServiceImpl) Delete(ctx context.Context, owner domain.AccountID, id string) error {
	if err := d.ensureStore(); err != nil {
		return err
	}
	var deleted *domain.Device
	err := d.store.WithTx(ctx, func(tx *store.Store) error {
		// The row lock orders this delete against a validation's
		// TouchLastValidation, so no record lands between count and delete.
		device, err := tx.Devices().GetForUpdate(ctx, strings.TrimSpace(id))
		if err != nil {
			return translateDeviceErr("get device", err)
		}
		if device.OwnerID != owner {
			return domain.ErrNotDeviceOwner
		}
		validations, err := tx.Validations().CountByDevice(ctx, device.ID)
		if err != nil {
			return err
		}
		transitions, err := tx.Transitions().CountByDevice(ctx, device.ID)
		if err != nil {
			return err
		}
		if validations > 0 || transitions > 0 {
			return domain.ErrDeviceReferenced
		}
		deleted = device
		return tx.Devices().Delete(ctx, device.ID)
	})
	if err != nil {
		return wrapStorage("delete device", err)
	}
	d.sink.Emit(ctx, events.DeviceDeleted{DeviceID: deleted.ID, OwnerID: owner.String(), At: d.nowTime()})
	return nil
}

// ProvisionSecret replaces the device's shared secret. Devices registered with
// an argon2id key hash require the matching raw key.
func (d *DeviceServiceImpl) ProvisionSecret(ctx context.Context, owner domain.AccountID, id, deviceKey string) (*totp.Provisioned, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	var out *totp.Provisioned
	err := d.store.WithTx(ctx, func(tx *store.Store) error {
		device, err := d.owned(ctx, tx, owner, id)
		if err != nil {
			return err
		}
		if device.KeyAlgo == AlgoArgon2id {
			if d.hasher == nil || !d.hasher.Verify(deviceKey, device) {
				return domain.ErrInvalidDeviceKey
			}
		}
		p, err := totp.NewSecret(d.issuer, device.ID)
		if err != nil {
			return err
		}
		device.Secret = p.Secret
		device.UpdatedAt = d.nowTime()
		if err := tx.Devices().Save(ctx, device); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, wrapStorage("provision secret", err)
	}
	return out, nil
}

func (d *DeviceServiceImpl) Validations(ctx context.Context, owner domain.AccountID, id string, limit int) ([]domain.ValidationRecord, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	device, err := d.owned(ctx, d.store, owner, id)
	if err != nil {
		return nil, wrapStorage("get device", err)
	}
	switch {
	case limit <= 0:
		limit = defaultValidationsLimit
	case limit > maxValidationsLimit:
		limit = maxValidationsLimit
	}
	recs, err := d.store.Validations().ListByDevice(ctx, device.ID, limit)
	if err != nil {
		return nil, domain.Storage("list validations", err)
	}
	return recs, nil
}

func (d *DeviceServiceImpl) owned(ctx context.Context, st *store.Store, owner domain.AccountID, id string) (*domain.Device, error) {
	device, err := st.Devices().Get(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, translateDeviceErr("get device", err)
	}
	if device.OwnerID != owner {
		return nil, domain.ErrNotDeviceOwner
	}
	return device, nil
}

func (d *DeviceServiceImpl) ensureStore() error {
	if d.store == nil {
		return ErrStoreMissing
	}
	return nil
}

func (d *DeviceServiceImpl) nowTime() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now().UTC()
}

func parseLocation(loc []float64) (lat, lng float64, err error) {
	if len(loc) != 2 {
		return 0, 0, invalid("location must be [lat, lng]")
	}
	lat, lng = loc[0], loc[1]
	if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return 0, 0, invalid("location out of range")
	}
	return lat, lng, nil
}

func applyLimits(device *domain.Device, qrRefresh, maxValidations *int) error {
	if qrRefresh != nil {
		if *qrRefresh <= 0 {
			return invalid("qrRefreshTime must be positive")
		}
		device.QRRefreshTime = *qrRefresh
	}
	if maxValidations != nil {
		if *maxValidations <= 0 {
			return invalid("maxValidations must be positive")
		}
		device.MaxValidations = *maxValidations
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidRequest}, args...)...)
}

func translateDeviceErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return domain.ErrDeviceNotFound
	}
	return domain.Storage(op, err)
}

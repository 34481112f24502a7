package impl

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"

	"geoproof/internal/service"

	"golang.org/x/crypto/argon2"
)

var _ service.DeviceKeyHasher = (*DeviceKeyHasherArgon2id)(nil)

// AlgoArgon2id tags key hashes this package can verify. Hashes supplied
// pre-computed by clients are stored with AlgoExternal.
const (
	AlgoArgon2id = "argon2id"
	AlgoExternal = "external"
)

type Argon2Params struct {
	// Stored alongside the hash so verification uses the original cost.
	Time    uint32 `json:"t"` // iterations
	Memory  uint32 `json:"m"` // KiB
	Threads uint8  `json:"p"`
	KeyLen  uint32 `json:"k"` // bytes
	SaltLen uint32 `json:"s"` // bytes
}

type DeviceKeyHasherArgon2id struct {
	cur Argon2Params
}

func NewDeviceKeyHasherArgon2id() *DeviceKeyHasherArgon2id {
	return &DeviceKeyHasherArgon2id{
		cur: Argon2Params{
			Time:    3,
			Memory:  64 * 1024, // 64 MiB
			Threads: 1,
			KeyLen:  32,
			SaltLen: 16,
		},
	}
}

// NewDeviceKeyHasherWithParams is meant for tests that cannot afford the production cost.
func NewDeviceKeyHasherWithParams(p Argon2Params) *DeviceKeyHasherArgon2id {
	return &DeviceKeyHasherArgon2id{cur: p}
}

func (h *DeviceKeyHasherArgon2id) Hash(deviceKey string) (hash string, salt, paramsJSON []byte, algo string, err error) {
	if deviceKey == "" {
		return "", nil, nil, "", ErrEmptyDeviceKey
	}
	salt = make([]byte, h.cur.SaltLen)
	if _, err = rand.Read(salt); err != nil {
		return "", nil, nil, "", err
	}
	sum := argon2.IDKey([]byte(deviceKey), salt, h.cur.Time, h.cur.Memory, h.cur.Threads, h.cur.KeyLen)
	paramsJSON, err = json.Marshal(h.cur)
	if err != nil {
		return "", nil, nil, "", err
	}
	return base64.StdEncoding.EncodeToString(sum), salt, paramsJSON, AlgoArgon2id, nil
}

func (h *DeviceKeyHasherArgon2id) Verify(deviceKey string, stored service.DeviceKeyMaterial) bool {
	if deviceKey == "" || stored.GetAlgo() != AlgoArgon2id {
		return false
	}
	var params Argon2Params
	if err := json.Unmarshal(stored.GetParamsJSON(), &params); err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(stored.GetHash())
	if err != nil {
		return false
	}
	got := argon2.IDKey([]byte(deviceKey), stored.GetSalt(), params.Time, params.Memory, params.Threads, params.KeyLen)
	return subtle.ConstantTimeCompare(got, want) == 1
}

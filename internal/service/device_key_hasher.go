package service

// DeviceKeyMaterial is the stored form of a hashed device key.
type DeviceKeyMaterial interface {
	GetAlgo() string
	GetHash() string
	GetSalt() []byte
	GetParamsJSON() []byte
}

type DeviceKeyHasher interface {
	Hash(deviceKey string) (hash string, salt, paramsJSON []byte, algo string, err error)
	Verify(deviceKey string, stored DeviceKeyMaterial) bool
}

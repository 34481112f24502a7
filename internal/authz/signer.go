package authz

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Signer issues HS256 bearer tokens accepted by HMACValidator. It backs the
// operator CLI and integration tests; production tokens come from the identity provider.
type Signer struct {
	secret []byte
	Issuer string
	now    func() time.Time
}

func NewSigner(secret, issuer string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("signing secret is empty")
	}
	return &Signer{secret: []byte(secret), Issuer: issuer, now: time.Now}, nil
}

// Sign issues a token for subject sub with TTL and extra claims.
func (s *Signer) Sign(sub string, ttl time.Duration, claims map[string]any) (string, error) {
	now := s.now()
	m := jwt.MapClaims{}
	for k, v := range claims {
		m[k] = v
	}
	m["iss"] = s.Issuer
	m["sub"] = sub
	m["iat"] = jwt.NewNumericDate(now)
	m["exp"] = jwt.NewNumericDate(now.Add(ttl))

	return jwt.NewWithClaims(jwt.SigningMethodHS256, m).SignedString(s.secret)
}

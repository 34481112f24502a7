package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHMACValidatorMiddleware(t *testing.T) {
	const secret = "test-signing-secret"
	v := NewHMACValidator(secret, "geoproof")
	var seen string
	h := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SubjectFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	good, _ := NewSigner(secret, "geoproof")
	foreign, _ := NewSigner(secret, "someone-else")
	forged, _ := NewSigner("other-secret", "geoproof")

	sign := func(s *Signer, sub string, ttl time.Duration) string {
		tok, err := s.Sign(sub, ttl, nil)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return tok
	}

	tests := []struct {
		name   string
		header string
		status int
	}{
		{name: "valid", header: "Bearer " + sign(good, "acct-1", time.Minute), status: http.StatusNoContent},
		{name: "lowercase scheme", header: "bearer " + sign(good, "acct-1", time.Minute), status: http.StatusNoContent},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", status: http.StatusUnauthorized},
		{name: "wrong key", header: "Bearer " + sign(forged, "acct-1", time.Minute), status: http.StatusUnauthorized},
		{name: "wrong issuer", header: "Bearer " + sign(foreign, "acct-1", time.Minute), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + sign(good, "acct-1", -time.Minute), status: http.StatusUnauthorized},
		{name: "no subject", header: "Bearer " + sign(good, "", time.Minute), status: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusNoContent && seen != "acct-1" {
				t.Fatalf("expected subject in context, got %q", seen)
			}
		})
	}
}

func TestNewSignerRequiresSecret(t *testing.T) {
	if _, err := NewSigner("", "geoproof"); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

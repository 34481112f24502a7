package config

import (
	"testing"
	"time"
)

func TestLoadDefaultsAndOverrides(t *testing.T) {
	t.Setenv("AUTH_HS256_SECRET", "s3cret")
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DatabaseDriver != "postgres" {
		t.Fatalf("expected lower-cased driver, got %q", cfg.DatabaseDriver)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.RequestTimeout)
	}
	if cfg.RateLimitPerMinute != 100 {
		t.Fatalf("expected default rate limit, got %d", cfg.RateLimitPerMinute)
	}
	if cfg.Addr != ":5000" || cfg.SecretIssuer != "geoproof" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestValidateRequiresAuthSource(t *testing.T) {
	cfg := Config{DatabaseDriver: "sqlite", RateLimitPerMinute: 1}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected missing auth source to fail")
	}
	cfg.AuthJWKSURL = "https://idp.example/.well-known/jwks.json"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.DatabaseDriver = "oracle"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown driver to fail")
	}
}

// The server builds its logger from these fields before it reports a bad config.
func TestLoadKeepsLoggingFieldsWhenInvalid(t *testing.T) {
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUTH_HS256_SECRET", "")
	t.Setenv("AUTH_JWKS_URL", "")

	cfg, err := Load()
	if err == nil {
		t.Fatalf("expected missing auth source to fail")
	}
	if cfg.Environment != "prod" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected logging fields %q %q", cfg.Environment, cfg.LogLevel)
	}
}

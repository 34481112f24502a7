package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	LogLevel    string

	// DB
	DatabaseDriver string // postgres | sqlite | mysql
	DatabaseURL    string
	LogSQL         bool

	// Bearer tokens: HS256 shared secret when set, JWKS otherwise.
	AuthIssuer      string
	AuthHS256Secret string
	AuthJWKSURL     string

	// HTTP
	Addr               string
	TrustProxy         bool
	CORSOrigins        []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration

	// otpauth:// issuer label for provisioned device secrets
	SecretIssuer string
}

// Load reads .env (when present) and the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg := Config{
		Environment: getenv("ENVIRONMENT", "dev"),
		LogLevel:    getenv("LOG_LEVEL", "info"),

		DatabaseDriver: strings.ToLower(getenv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    getenv("DATABASE_URL", "file:geoproof.db?_busy_timeout=5000"),
		LogSQL:         getbool("LOG_SQL", false),

		AuthIssuer:      getenv("AUTH_ISSUER", "geoproof"),
		AuthHS256Secret: os.Getenv("AUTH_HS256_SECRET"),
		AuthJWKSURL:     os.Getenv("AUTH_JWKS_URL"),

		Addr:               getenv("ADDR", ":5000"),
		TrustProxy:         getbool("TRUST_PROXY", false),
		CORSOrigins:        splitList(os.Getenv("CORS_ORIGINS")),
		RateLimitPerMinute: getint("RATE_LIMIT_PER_MINUTE", 100),
		RequestTimeout:     getdur("REQUEST_TIMEOUT", 30*time.Second),

		SecretIssuer: getenv("SECRET_ISSUER", "geoproof"),
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite", "mysql":
	default:
		return errors.New("DATABASE_DRIVER must be postgres, sqlite or mysql")
	}
	if c.AuthHS256Secret == "" && c.AuthJWKSURL == "" {
		return errors.New("one of AUTH_HS256_SECRET or AUTH_JWKS_URL is required")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		slog.Warn("invalid bool, using default", "key", k, "value", v, "default", def)
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("invalid int, using default", "key", k, "value", v, "default", def)
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		slog.Warn("invalid duration, using default", "key", k, "value", v, "default", def)
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

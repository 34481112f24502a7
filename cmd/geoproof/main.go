package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geoproof/internal/authz"
	"geoproof/internal/config"
	"geoproof/internal/events"
	"geoproof/internal/observability/logging"
	"geoproof/internal/observability/metrics"
	impl "geoproof/internal/service/impl"
	"geoproof/internal/store"
	httpx "geoproof/internal/transport/http"

	"github.com/prometheus/client_golang/prometheus"
)

const serviceName = "geoproof"

func main() {
	cfg, err := config.Load()

	logger := logging.NewLogger(logging.Config{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Level:       cfg.LogLevel,
	})
	slog.SetDefault(logger)

	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	gdb, err := store.Open(store.Config{
		Driver: cfg.DatabaseDriver,
		DSN:    cfg.DatabaseURL,
		LogSQL: cfg.LogSQL,
	})
	if err != nil {
		logger.Error("database open", "driver", cfg.DatabaseDriver, "error", err)
		os.Exit(1)
	}
	st := store.New(gdb)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.AutoMigrate(ctx); err != nil {
		logger.Error("automigrate", "error", err)
		os.Exit(1)
	}

	metrics.MustRegister(prometheus.DefaultRegisterer, serviceName)

	sink := events.NewLogSink(logger)
	accounts := impl.NewAccountServiceImpl(st)
	ledger := impl.NewLedgerServiceImpl(st, sink)
	devices := impl.NewDeviceServiceImpl(st, impl.NewDeviceKeyHasherArgon2id(), sink, cfg.SecretIssuer)
	validations := impl.NewValidationServiceImpl(st, ledger, accounts, sink)

	var auth func(http.Handler) http.Handler
	if cfg.AuthHS256Secret != "" {
		auth = authz.NewHMACValidator(cfg.AuthHS256Secret, cfg.AuthIssuer).Middleware
	} else {
		jv, err := authz.NewJWKSValidator(cfg.AuthJWKSURL, cfg.AuthIssuer)
		if err != nil {
			logger.Error("jwks init", "url", cfg.AuthJWKSURL, "error", err)
			os.Exit(1)
		}
		defer jv.Close()
		auth = jv.Middleware
	}

	router := httpx.NewRouter(httpx.Deps{
		Accounts:           accounts,
		Devices:            devices,
		Validations:        validations,
		Ledger:             ledger,
		Auth:               auth,
		CORSOrigins:        cfg.CORSOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RequestTimeout:     cfg.RequestTimeout,
		TrustProxy:         cfg.TrustProxy,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("geoproof listening", "addr", srv.Addr, "driver", cfg.DatabaseDriver, "issuer", cfg.AuthIssuer)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", "error", err)
		}
	}

	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

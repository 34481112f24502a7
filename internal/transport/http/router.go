package http

import (
	"net/http"
	"time"

	obsmw "geoproof/internal/observability/middleware"
	"geoproof/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Accounts    service.AccountService
	Devices     service.DeviceService
	Validations service.ValidationService
	Ledger      service.LedgerService

	// Auth validates the bearer token and puts its subject in the request context.
	Auth func(http.Handler) http.Handler

	CORSOrigins        []string
	RateLimitPerMinute int
	RequestTimeout     time.Duration
	TrustProxy         bool
	// Metrics defaults to the default Prometheus registry.
	Metrics http.Handler
}

func NewRouter(d Deps) http.Handler {
	h := &handler{
		accounts:    d.Accounts,
		devices:     d.Devices,
		validations: d.Validations,
		ledger:      d.Ledger,
		trustProxy:  d.TrustProxy,
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(chimw.Recoverer)
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	r.Use(chimw.Timeout(timeout))
	limit := d.RateLimitPerMinute
	if limit <= 0 {
		limit = 100
	}
	r.Use(httprate.LimitByIP(limit, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsOrAny(d.CORSOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(obsmw.WithRequestAndTrace)
	r.Use(obsmw.WithMetrics)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsHandler := d.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", h.listDevices)
		r.Get("/devices/{id}", h.getDevice)

		r.Group(func(pr chi.Router) {
			pr.Use(d.Auth)
			pr.Use(h.withAccount)

			pr.Get("/validate/{deviceID}/{payload}", h.validate)
			pr.Get("/me", h.me)

			pr.Get("/my-devices", h.myDevices)
			pr.Post("/devices", h.registerDevice)
			pr.Put("/devices/{id}", h.updateDevice)
			pr.Delete("/devices/{id}", h.deleteDevice)
			pr.Post("/devices/{id}/secret", h.provisionSecret)
			pr.Get("/devices/{id}/validations", h.deviceValidations)

			pr.Get("/my-transactions", h.myTransactions)
			pr.Post("/send-token", h.sendToken)
			pr.Get("/tokens/{address}", h.token)
		})
	})

	return r
}

// originsOrAny falls back to "*" when no origin is configured.
func originsOrAny(in []string) []string {
	if len(in) == 0 {
		return []string{"*"}
	}
	return in
}

package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collectors are usable before MustRegister; registration only exposes them.
var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	AuthenticationAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoproof_authentication_attempts_total",
			Help: "Bearer token authentication attempts.",
		},
		[]string{"method", "result"},
	)

	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoproof_validations_total",
			Help: "Location proof validation attempts by outcome and failure reason.",
		},
		[]string{"result", "reason"},
	)

	MintsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoproof_mints_total",
			Help: "Token mints attempted after a successful validation.",
		},
		[]string{"result"},
	)

	TransfersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoproof_transfers_total",
			Help: "Transfer batches by result.",
		},
		[]string{"result"},
	)

	TokensTransferredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "geoproof_tokens_transferred_total",
			Help: "Tokens moved by committed transfer batches.",
		},
	)
)

// MustRegister exposes every collector on reg with a constant service label.
func MustRegister(reg prometheus.Registerer, serviceName string) {
	prometheus.WrapRegistererWith(prometheus.Labels{"service": serviceName}, reg).MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		AuthenticationAttemptsTotal,
		ValidationsTotal,
		MintsTotal,
		TransfersTotal,
		TokensTransferredTotal,
	)
}

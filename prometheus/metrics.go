package prometheus

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upzento/upzento-crm-sub000/pkg/config"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Authentication metrics
	LoginCounter        prometheus.Counter
	RegisterCounter     prometheus.Counter
	RefreshCounter      prometheus.Counter
	AuthErrorsCounter   prometheus.CounterVec
	ActiveTokensGauge   prometheus.Gauge
	AccessDeniedCounter prometheus.CounterVec

	// Tenant context metrics
	TenantContextMissingCounter prometheus.Counter

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Per-module resource operation counter
	ResourceOperationsCounter prometheus.CounterVec

	// Scheduling metrics
	ScheduleConflictCounter prometheus.Counter

	// Contact merge metrics
	ContactMergeCounter prometheus.CounterVec

	// Webhook dispatch metrics
	WebhookDeliveryCounter prometheus.CounterVec

	// Integration sync metrics
	IntegrationSyncCounter prometheus.CounterVec

	// Chat websocket metrics
	ChatConnectionsGauge prometheus.Gauge

	// Embed origin gate metrics
	EmbedOriginCounter prometheus.CounterVec
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	prefix := cfg.Metrics.Prefix

	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	LoginCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_login_attempts_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_registrations_total",
			Help: "Total number of registration attempts",
		},
	)

	RefreshCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_token_refreshes_total",
			Help: "Total number of token refresh attempts",
		},
	)

	AuthErrorsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_auth_errors_total",
			Help: "Total number of authentication errors by reason",
		},
		[]string{"reason"},
	)

	ActiveTokensGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_active_tokens",
			Help: "Number of tokens issued and not yet expired",
		},
	)

	AccessDeniedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_access_denied_total",
			Help: "Total number of requests denied by the tenant type guard",
		},
		[]string{"required"},
	)

	TenantContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_tenant_context_missing_total",
			Help: "Total number of requests without tenant context",
		},
	)

	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	ResourceOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_resource_operations_total",
			Help: "Total number of resource operations by module",
		},
		[]string{"module", "operation"},
	)

	ScheduleConflictCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_schedule_conflicts_total",
			Help: "Total number of rejected scheduling conflicts",
		},
	)

	ContactMergeCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_contact_merges_total",
			Help: "Total number of contact merge operations",
		},
		[]string{"result"},
	)

	WebhookDeliveryCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_webhook_deliveries_total",
			Help: "Total number of webhook delivery attempts",
		},
		[]string{"result"},
	)

	IntegrationSyncCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_integration_syncs_total",
			Help: "Total number of integration sync attempts",
		},
		[]string{"provider", "result"},
	)

	ChatConnectionsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_chat_connections",
			Help: "Number of open chat websocket connections",
		},
	)

	EmbedOriginCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_embed_origin_checks_total",
			Help: "Total number of embed origin checks",
		},
		[]string{"result"},
	)
}

// RecordOperation increments the resource operation counter for a module
func RecordOperation(module, operation string) {
	ResourceOperationsCounter.WithLabelValues(module, operation).Inc()
}

// RecordAuthError increments the auth error counter for a reason
func RecordAuthError(reason string) {
	AuthErrorsCounter.WithLabelValues(reason).Inc()
}

// TrackDBOperation returns a function that records the duration of a
// database operation when called, meant to be used with defer:
//
//	defer prometheus.TrackDBOperation("query")(time.Now())
func TrackDBOperation(operationType string) func(time.Time) {
	return func(start time.Time) {
		DbOperationDuration.WithLabelValues(operationType).Observe(time.Since(start).Seconds())
	}
}

// GetPrometheusHandler returns an HTTP handler for exposing Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

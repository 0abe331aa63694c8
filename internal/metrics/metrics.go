package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors for backend calls and inbox activity
type Metrics struct {
	BackendRequestDuration *prometheus.HistogramVec
	BackendRequestCount    *prometheus.CounterVec
	MessagesNormalized     prometheus.Counter
	PagesLoaded            *prometheus.CounterVec
	RemoteSyncFailures     *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses a private registry so
// repeated construction never panics on duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		BackendRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailrag_backend_request_duration_seconds",
				Help:    "EmailRAG backend request duration in seconds",
				Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"op", "status"},
		),
		BackendRequestCount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrag_backend_requests_total",
				Help: "Total number of EmailRAG backend requests",
			},
			[]string{"op", "outcome"}, // outcome: success, http_error, timeout, network_error
		),
		MessagesNormalized: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "mailrag_messages_normalized_total",
				Help: "Total number of messages normalized",
			},
		),
		PagesLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrag_pages_loaded_total",
				Help: "Total number of inbox pages loaded",
			},
			[]string{"page"}, // page: first, next
		),
		RemoteSyncFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailrag_remote_sync_failures_total",
				Help: "Local inbox changes the backend rejected",
			},
			[]string{"op"},
		),
	}
}

// ObserveRequest records latency and outcome of one backend call
func (m *Metrics) ObserveRequest(op string, status int, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.BackendRequestDuration.WithLabelValues(op, strconv.Itoa(status)).Observe(duration.Seconds())
	m.BackendRequestCount.WithLabelValues(op, outcome).Inc()
}

// AddNormalized counts normalized messages
func (m *Metrics) AddNormalized(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.MessagesNormalized.Add(float64(n))
}

// PageLoaded counts a successful page load
func (m *Metrics) PageLoaded(page string) {
	if m == nil {
		return
	}
	m.PagesLoaded.WithLabelValues(page).Inc()
}

// SyncFailed counts a rejected remote sync
func (m *Metrics) SyncFailed(op string) {
	if m == nil {
		return
	}
	m.RemoteSyncFailures.WithLabelValues(op).Inc()
}

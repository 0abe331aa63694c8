package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveRequest("list_messages_page", 200, "success", 30*time.Millisecond)
	m.ObserveRequest("list_messages_page", 500, "http_error", 10*time.Millisecond)
	m.ObserveRequest("list_messages_page", 200, "success", 5*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.BackendRequestCount.WithLabelValues("list_messages_page", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackendRequestCount.WithLabelValues("list_messages_page", "http_error")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.BackendRequestDuration))
}

func TestCounters(t *testing.T) {
	m := New(nil)

	m.AddNormalized(3)
	m.AddNormalized(0)
	m.PageLoaded("first")
	m.PageLoaded("next")
	m.PageLoaded("next")
	m.SyncFailed("mark_read")

	assert.Equal(t, 3.0, testutil.ToFloat64(m.MessagesNormalized))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PagesLoaded.WithLabelValues("next")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteSyncFailures.WithLabelValues("mark_read")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("op", 200, "success", time.Millisecond)
		m.AddNormalized(1)
		m.PageLoaded("first")
		m.SyncFailed("archive")
	})
}

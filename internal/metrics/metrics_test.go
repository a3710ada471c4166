package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/micasa/marketer/internal/config"
)

func TestNew_DisabledIsNoop(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: false})
	_, ok := m.(noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")
	assert.Nil(t, m.Handler())

	// Ensure no-op methods don't panic
	m.IncDatesProcessed(OutcomeReady)
	m.IncUpstreamRequests("openai", 200)
	m.ObserveUpstreamDuration("openai", time.Millisecond)
	m.IncPosts("success")
	m.IncCacheHits()
	m.IncCacheMisses()
	m.IncRequestsTotal("/", 200)
}

func TestNew_EnabledServesCounters(t *testing.T) {
	m := New(config.MetricsConfig{Enabled: true})
	m.IncDatesProcessed(OutcomeReady)
	m.IncDatesProcessed(OutcomeSkipped)
	m.IncUpstreamRequests("publer", 502)
	m.IncPosts("failed")

	h := m.Handler()
	require.NotNil(t, h)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Contains(t, string(body), `marketer_dates_processed_total{outcome="ready"} 1`)
	assert.Contains(t, string(body), `marketer_upstream_requests_total{service="publer",status="5xx"} 1`)
	assert.Contains(t, string(body), `marketer_posts_total{outcome="failed"} 1`)
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Two enabled recorders must not collide on registration.
	assert.NotPanics(t, func() {
		New(config.MetricsConfig{Enabled: true})
		New(config.MetricsConfig{Enabled: true})
	})
}

func TestStatusBucket(t *testing.T) {
	tests := map[int]string{0: "error", 101: "1xx", 204: "2xx", 302: "3xx", 429: "4xx", 503: "5xx"}
	for code, want := range tests {
		assert.Equal(t, want, StatusBucket(code), "code %d", code)
	}
}

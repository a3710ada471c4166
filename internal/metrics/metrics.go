package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/micasa/marketer/internal/config"
)

// Date outcomes.
const (
	OutcomeReady    = "ready"
	OutcomeNotReady = "not_ready"
	OutcomeSkipped  = "skipped"
)

// Recorder is the metrics surface used by the pipeline, the upstream clients and the web server.
type Recorder interface {
	IncDatesProcessed(outcome string)
	IncUpstreamRequests(service string, status int)
	ObserveUpstreamDuration(service string, d time.Duration)
	IncPosts(outcome string)
	IncCacheHits()
	IncCacheMisses()
	IncRequestsTotal(endpoint string, status int)
	// Handler serves the registry, or nil when metrics are disabled.
	Handler() http.Handler
}

type provider struct {
	registry         *prometheus.Registry
	datesProcessed   *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	posts            *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	requestsTotal    *prometheus.CounterVec
}

// New returns a Prometheus-backed Recorder on a private registry, or a no-op
// when metrics are disabled.
func New(conf config.MetricsConfig) Recorder {
	if !conf.Enabled {
		return Nop()
	}
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &provider{
		registry: reg,
		datesProcessed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketer_dates_processed_total",
			Help: "Dates handled by the content pipeline, by outcome",
		}, []string{"outcome"}),
		upstreamRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketer_upstream_requests_total",
			Help: "Requests to external services, by service and status class",
		}, []string{"service", "status"}),
		upstreamDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketer_upstream_request_duration_seconds",
			Help:    "External request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"service"}),
		posts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketer_posts_total",
			Help: "Publish attempts, by outcome",
		}, []string{"outcome"}),
		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "marketer_scraper_cache_hits_total",
			Help: "Event detail pages served from cache",
		}),
		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "marketer_scraper_cache_misses_total",
			Help: "Event detail pages fetched from the site",
		}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketer_http_requests_total",
			Help: "Admin UI requests",
		}, []string{"endpoint", "status"}),
	}
}

func (p *provider) IncDatesProcessed(outcome string) {
	p.datesProcessed.WithLabelValues(outcome).Inc()
}

func (p *provider) IncUpstreamRequests(service string, status int) {
	p.upstreamRequests.WithLabelValues(service, StatusBucket(status)).Inc()
}

func (p *provider) ObserveUpstreamDuration(service string, d time.Duration) {
	p.upstreamDuration.WithLabelValues(service).Observe(d.Seconds())
}

func (p *provider) IncPosts(outcome string) {
	p.posts.WithLabelValues(outcome).Inc()
}

func (p *provider) IncCacheHits()   { p.cacheHits.Inc() }
func (p *provider) IncCacheMisses() { p.cacheMisses.Inc() }

func (p *provider) IncRequestsTotal(endpoint string, status int) {
	p.requestsTotal.WithLabelValues(endpoint, StatusBucket(status)).Inc()
}

func (p *provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// StatusBucket groups HTTP codes into classes. Zero means the request never got a response.
func StatusBucket(code int) string {
	switch {
	case code == 0:
		return "error"
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

type noopMetrics struct{}

// Nop returns a Recorder that records nothing.
func Nop() Recorder { return noopMetrics{} }

func (noopMetrics) IncDatesProcessed(string)                      {}
func (noopMetrics) IncUpstreamRequests(string, int)               {}
func (noopMetrics) ObserveUpstreamDuration(string, time.Duration) {}
func (noopMetrics) IncPosts(string)                               {}
func (noopMetrics) IncCacheHits()                                 {}
func (noopMetrics) IncCacheMisses()                               {}
func (noopMetrics) IncRequestsTotal(string, int)                  {}
func (noopMetrics) Handler() http.Handler                         { return nil }

// package metrics exposes prometheus counters for the proxy client, caches and match workflow
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the set of observations made by the engine.
//
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveRequest(endpoint string, status int, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncImageFetches(outcome string)
	IncLoginPolls(state string)
	IncPageFetches(outcome string)
	IncMatches(outcome string)
	Handler() http.Handler
}

// Provider records metrics on a private [prometheus.Registry].
type Provider struct {
	registry        *prometheus.Registry
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	imageFetches    *prometheus.CounterVec
	loginPolls      *prometheus.CounterVec
	pageFetches     *prometheus.CounterVec
	matches         *prometheus.CounterVec
}

// New returns a [Provider] when enabled, otherwise a recorder that drops everything.
func New(enabled bool) Recorder {
	if !enabled {
		return Noop()
	}
	return NewProvider(prometheus.NewRegistry())
}

// NewProvider registers all collectors on reg.
func NewProvider(reg *prometheus.Registry) *Provider {
	f := promauto.With(reg)
	reg.MustRegister(collectors.NewGoCollector())

	return &Provider{
		registry: reg,
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudmatch_api_requests_total",
			Help: "Total number of proxy API requests",
		}, []string{"endpoint", "status"}),

		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cloudmatch_api_request_duration_seconds",
			Help:    "Proxy API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "cloudmatch_image_cache_hits_total",
			Help: "Total number of image cache hits",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "cloudmatch_image_cache_misses_total",
			Help: "Total number of image cache misses",
		}),

		imageFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudmatch_image_fetches_total",
			Help: "Image downloads by outcome",
		}, []string{"outcome"}),

		loginPolls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudmatch_login_polls_total",
			Help: "QR login status polls by reported ticket state",
		}, []string{"state"}),

		pageFetches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudmatch_page_fetches_total",
			Help: "Cloud song page fetches by outcome",
		}, []string{"outcome"}),

		matches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cloudmatch_matches_total",
			Help: "Match attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Provider) ObserveRequest(endpoint string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(endpoint, statusBucket(status)).Inc()
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Provider) IncCacheHits()                   { m.cacheHits.Inc() }
func (m *Provider) IncCacheMisses()                 { m.cacheMisses.Inc() }
func (m *Provider) IncImageFetches(outcome string)  { m.imageFetches.WithLabelValues(outcome).Inc() }
func (m *Provider) IncLoginPolls(state string)      { m.loginPolls.WithLabelValues(state).Inc() }
func (m *Provider) IncPageFetches(outcome string)   { m.pageFetches.WithLabelValues(outcome).Inc() }
func (m *Provider) IncMatches(outcome string)       { m.matches.WithLabelValues(outcome).Inc() }

// Handler serves the registry in the prometheus exposition format.
func (m *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// statusBucket groups HTTP status codes; 0 stands for a transport failure.
func statusBucket(code int) string {
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

// Noop returns a [Recorder] that discards all observations.
func Noop() Recorder { return noopMetrics{} }

type noopMetrics struct{}

func (noopMetrics) ObserveRequest(_ string, _ int, _ time.Duration) {}
func (noopMetrics) IncCacheHits()                                  {}
func (noopMetrics) IncCacheMisses()                                {}
func (noopMetrics) IncImageFetches(_ string)                       {}
func (noopMetrics) IncLoginPolls(_ string)                         {}
func (noopMetrics) IncPageFetches(_ string)                        {}
func (noopMetrics) IncMatches(_ string)                            {}
func (noopMetrics) Handler() http.Handler                          { return http.NotFoundHandler() }

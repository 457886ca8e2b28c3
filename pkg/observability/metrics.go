package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Routing metrics
	RoutingOutcomesTotal *prometheus.CounterVec

	// Directory metrics
	DirectoryLookupsTotal     *prometheus.CounterVec
	DirectoryLookupDuration   *prometheus.HistogramVec
	DirectoryCacheHitsTotal   *prometheus.CounterVec
	DirectoryCacheMissesTotal *prometheus.CounterVec
	DirectoryReloadsTotal     *prometheus.CounterVec
	DirectoryDuplicateDomains prometheus.Gauge

	// Credential store metrics
	CredentialStoreRequestsTotal *prometheus.CounterVec
	CredentialStoreDuration      *prometheus.HistogramVec

	// Rate limiting
	RateLimitedTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ssogate_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		RoutingOutcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_routing_outcomes_total",
				Help: "Login routing decisions by outcome",
			},
			[]string{"outcome", "reason"},
		),

		DirectoryLookupsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_directory_lookups_total",
				Help: "Organization directory lookups by backend and result",
			},
			[]string{"backend", "result"},
		),
		DirectoryLookupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ssogate_directory_lookup_duration_seconds",
				Help:    "Organization directory lookup duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 3},
			},
			[]string{"backend"},
		),
		DirectoryCacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_directory_cache_hits_total",
				Help: "Directory cache hits by layer",
			},
			[]string{"layer"},
		),
		DirectoryCacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_directory_cache_misses_total",
				Help: "Directory cache misses by layer",
			},
			[]string{"layer"},
		),
		DirectoryReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_directory_reloads_total",
				Help: "File directory reloads by status",
			},
			[]string{"status"},
		),
		DirectoryDuplicateDomains: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ssogate_directory_duplicate_domains",
				Help: "Domains mapped to more than one organization at the last audit",
			},
		),

		CredentialStoreRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_credential_store_requests_total",
				Help: "Credential store calls by operation and status",
			},
			[]string{"operation", "status"},
		),
		CredentialStoreDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ssogate_credential_store_duration_seconds",
				Help:    "Credential store call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		RateLimitedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ssogate_rate_limited_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"path"},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.HTTPRequestsTotal,
			m.HTTPRequestDuration,
			m.RoutingOutcomesTotal,
			m.DirectoryLookupsTotal,
			m.DirectoryLookupDuration,
			m.DirectoryCacheHitsTotal,
			m.DirectoryCacheMissesTotal,
			m.DirectoryReloadsTotal,
			m.DirectoryDuplicateDomains,
			m.CredentialStoreRequestsTotal,
			m.CredentialStoreDuration,
			m.RateLimitedTotal,
		)
	}

	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordOutcome records a routing decision
func (m *Metrics) RecordOutcome(outcome, reason string) {
	if m == nil {
		return
	}
	m.RoutingOutcomesTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordDirectoryLookup records a directory lookup; result is one of
// "found", "not_found" or "error"
func (m *Metrics) RecordDirectoryLookup(backend, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.DirectoryLookupsTotal.WithLabelValues(backend, result).Inc()
	m.DirectoryLookupDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// RecordCacheHit records a directory cache hit
func (m *Metrics) RecordCacheHit(layer string) {
	if m == nil {
		return
	}
	m.DirectoryCacheHitsTotal.WithLabelValues(layer).Inc()
}

// RecordCacheMiss records a directory cache miss
func (m *Metrics) RecordCacheMiss(layer string) {
	if m == nil {
		return
	}
	m.DirectoryCacheMissesTotal.WithLabelValues(layer).Inc()
}

// RecordReload records a file directory reload
func (m *Metrics) RecordReload(ok bool) {
	if m == nil {
		return
	}
	status := "success"
	if !ok {
		status = "failure"
	}
	m.DirectoryReloadsTotal.WithLabelValues(status).Inc()
}

// SetDuplicateDomains publishes the result of an integrity audit
func (m *Metrics) SetDuplicateDomains(n int) {
	if m == nil {
		return
	}
	m.DirectoryDuplicateDomains.Set(float64(n))
}

// RecordCredentialStoreCall records a credential store request
func (m *Metrics) RecordCredentialStoreCall(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.CredentialStoreRequestsTotal.WithLabelValues(operation, status).Inc()
	m.CredentialStoreDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected by the rate limiter
func (m *Metrics) RecordRateLimited(path string) {
	if m == nil {
		return
	}
	m.RateLimitedTotal.WithLabelValues(path).Inc()
}

// Handler returns the Prometheus scrape handler for the given gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

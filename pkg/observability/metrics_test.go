package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics_Registers(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)

	m.RecordOutcome("signup_redirect", "")
	m.RecordOutcome("error", "invalid-email")
	m.RecordOutcome("error", "invalid-email")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RoutingOutcomesTotal.WithLabelValues("signup_redirect", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RoutingOutcomesTotal.WithLabelValues("error", "invalid-email")))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
		m.RecordOutcome("error", "x")
		m.RecordDirectoryLookup("sql", "found", time.Millisecond)
		m.RecordCacheHit("lru")
		m.RecordCacheMiss("redis")
		m.RecordReload(true)
		m.SetDuplicateDomains(3)
		m.RecordCredentialStoreCall("sso", errors.New("x"), time.Millisecond)
		m.RecordRateLimited("/login")
	})
}

func TestMetrics_CredentialStoreStatus(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordCredentialStoreCall("signup", nil, time.Millisecond)
	m.RecordCredentialStoreCall("signup", errors.New("rejected"), time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialStoreRequestsTotal.WithLabelValues("signup", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CredentialStoreRequestsTotal.WithLabelValues("signup", "error")))
}

func TestMetrics_HTTPRequests(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.RecordHTTPRequest("POST", "/login", http.StatusSeeOther, 10*time.Millisecond)

	expected := `
		# HELP ssogate_http_requests_total Total number of HTTP requests
		# TYPE ssogate_http_requests_total counter
		ssogate_http_requests_total{method="POST",path="/login",status="303"} 1
	`
	assert.NoError(t, testutil.CollectAndCompare(m.HTTPRequestsTotal, strings.NewReader(expected)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestHandler_ServesMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.SetDuplicateDomains(2)

	w := httptest.NewRecorder()
	Handler(registry).ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ssogate_directory_duplicate_domains 2")
}

package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Directory identifies the organization directory behind readiness. SQL
// backends set DB and have their pool pinged. Backends without a connection
// set Check and report on themselves.
type Directory struct {
	Backend string
	DB      *sql.DB
	Check   func(ctx context.Context) DependencyStatus
}

// HealthChecker answers liveness and readiness for the routing service
type HealthChecker struct {
	directory Directory
	redis     *redis.Client
	version   string
}

// NewHealthChecker creates a health checker. An empty directory Backend or a
// nil redis leaves that dependency out of the report.
func NewHealthChecker(directory Directory, redis *redis.Client, version string) *HealthChecker {
	return &HealthChecker{
		directory: directory,
		redis:     redis,
		version:   version,
	}
}

// HealthStatus is the readiness document served on /readyz
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus is one entry of HealthStatus.Dependencies
type DependencyStatus struct {
	Status    string    `json:"status"`
	Backend   string    `json:"backend,omitempty"`
	Message   string    `json:"message,omitempty"`
	LatencyMs float64   `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

var severity = map[string]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}

func worse(a, b string) string {
	if severity[b] > severity[a] {
		return b
	}
	return a
}

// Liveness returns 200 while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, http.StatusOK, map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns 503 while the directory cannot answer lookups
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)
	code := http.StatusOK
	if status.Status == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	writeHealth(w, code, status)
}

func writeHealth(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(body)
}

// Check reports on the directory and the Redis cache tier. Redis failures
// only degrade readiness since lookups fall through to the directory.
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.directory.Backend != "" {
		dir := timed(ctx, h.checkDirectory)
		dir.Backend = h.directory.Backend
		status.Dependencies["directory"] = dir
		status.Status = worse(status.Status, dir.Status)
	}

	if h.redis != nil {
		cache := timed(ctx, h.checkRedis)
		cache.Backend = "redis"
		status.Dependencies["cache"] = cache
		if cache.Status != StatusHealthy {
			status.Status = worse(status.Status, StatusDegraded)
		}
	}

	return status
}

func timed(ctx context.Context, check func(context.Context) DependencyStatus) DependencyStatus {
	start := time.Now()
	status := check(ctx)
	status.Timestamp = start
	status.LatencyMs = float64(time.Since(start).Microseconds()) / 1000
	return status
}

func (h *HealthChecker) checkDirectory(ctx context.Context) DependencyStatus {
	switch {
	case h.directory.DB != nil:
		return checkPool(ctx, h.directory.DB)
	case h.directory.Check != nil:
		return h.directory.Check(ctx)
	default:
		return DependencyStatus{Status: StatusUnhealthy, Message: "backend has no readiness check"}
	}
}

func checkPool(ctx context.Context, db *sql.DB) DependencyStatus {
	if err := db.PingContext(ctx); err != nil {
		return DependencyStatus{Status: StatusUnhealthy, Message: err.Error()}
	}
	stats := db.Stats()
	if stats.MaxOpenConnections > 0 && stats.InUse >= stats.MaxOpenConnections {
		return DependencyStatus{Status: StatusDegraded, Message: "connection pool exhausted"}
	}
	return DependencyStatus{Status: StatusHealthy}
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return DependencyStatus{Status: StatusUnhealthy, Message: err.Error()}
	}
	return DependencyStatus{Status: StatusHealthy}
}

// RegisterHealthRoutes registers /healthz and /readyz
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/healthz", checker.Liveness)
	mux.HandleFunc("/readyz", checker.Readiness)
}

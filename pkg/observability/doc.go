// Package observability provides structured logging, Prometheus metrics,
// OpenTelemetry tracing, health checks and shutdown coordination.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("domain", "acme.com").Info("directory lookup")
//
// Request handlers pull the request-scoped logger (with request and trace
// ids attached) from the context:
//
//	observability.FromContext(r.Context(), fallback).Warn("sso init failed")
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.RecordOutcome("signup_redirect", "")
//
// A nil *Metrics records nothing.
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(observability.Directory{Backend: "postgres", DB: db}, redisClient, version)
//	observability.RegisterHealthRoutes(mux, checker)
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, cfg, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability

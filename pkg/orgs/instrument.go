package orgs

import (
	"context"
	"errors"
	"time"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Lookup results as recorded in metrics and spans
const (
	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// instrumented decorates a Directory with a span and lookup metrics
type instrumented struct {
	next    Directory
	backend string
	metrics *observability.Metrics
}

// Instrument wraps next so every lookup is traced and counted under backend
func Instrument(next Directory, backend string, metrics *observability.Metrics) Directory {
	return &instrumented{next: next, backend: backend, metrics: metrics}
}

// ClassifyResult maps a lookup error to its metric label
func ClassifyResult(err error) string {
	switch {
	case err == nil:
		return ResultFound
	case errors.Is(err, ErrNotFound) && !IsLookupError(err):
		return ResultNotFound
	default:
		return ResultError
	}
}

func (d *instrumented) Lookup(ctx context.Context, domain string) (*OrganizationPolicy, error) {
	ctx, span := observability.Tracer().Start(ctx, "orgs.Lookup",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("directory.backend", d.backend),
			attribute.String("directory.domain", domain),
		),
	)
	defer span.End()

	start := time.Now()
	policy, err := d.next.Lookup(ctx, domain)
	result := ClassifyResult(err)
	d.metrics.RecordDirectoryLookup(d.backend, result, time.Since(start))

	span.SetAttributes(attribute.String("directory.result", result))
	if result == ResultError {
		span.RecordError(err)
		span.SetStatus(codes.Error, "directory lookup failed")
	}
	return policy, err
}

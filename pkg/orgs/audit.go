package orgs

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/robfig/cron/v3"
)

// DefaultAuditSchedule runs the duplicate domain audit every quarter hour
const DefaultAuditSchedule = "@every 15m"

// Auditor periodically checks the directory for domains claimed by more than
// one organization. Lookups for such domains fail closed, so the audit exists
// to surface them before a user hits one.
type Auditor struct {
	checker IntegrityChecker
	logger  *observability.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewAuditor creates an auditor. A non-positive timeout means 30s.
func NewAuditor(checker IntegrityChecker, logger *observability.Logger, metrics *observability.Metrics, timeout time.Duration) *Auditor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Auditor{
		checker: checker,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

// Run performs one audit and returns the duplicates found
func (a *Auditor) Run(ctx context.Context) ([]DuplicateDomain, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	dups, err := a.checker.DuplicateDomains(ctx)
	if err != nil {
		a.logger.WithError(err).Error("Duplicate domain audit failed")
		return nil, err
	}

	a.metrics.SetDuplicateDomains(len(dups))
	for _, dup := range dups {
		a.logger.WithFields(map[string]interface{}{
			"domain": dup.Domain,
			"count":  dup.Count,
		}).Warn("Domain is claimed by more than one organization")
	}
	if len(dups) == 0 {
		a.logger.Debug("Duplicate domain audit found no conflicts")
	}
	return dups, nil
}

// Schedule registers the audit on c using a standard cron expression or a
// descriptor such as "@every 15m"
func (a *Auditor) Schedule(ctx context.Context, c *cron.Cron, schedule string) (cron.EntryID, error) {
	if schedule == "" {
		schedule = DefaultAuditSchedule
	}
	id, err := c.AddFunc(schedule, func() {
		defer observability.RecoverPanic(a.logger, "duplicate domain audit")
		_, _ = a.Run(ctx)
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule duplicate domain audit: %w", err)
	}
	return id, nil
}

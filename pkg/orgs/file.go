package orgs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/platinummonkey/ssogate/pkg/observability"
	"gopkg.in/yaml.v3"
)

// fileFormat is the on-disk layout of a directory file:
//
//	organizations:
//	  - name: Acme
//	    domain: acme.com
//	    uses_sso: true
//	    sso_redirect_url: https://sso.acme.com/start
//	    created_at: 2024-01-01T00:00:00Z
type fileFormat struct {
	Organizations []*OrganizationPolicy `yaml:"organizations"`
}

type fileSnapshot struct {
	byDomain map[string][]*OrganizationPolicy
	all      []*OrganizationPolicy
}

// FileDirectory serves organization policies from a YAML file. Reload swaps
// the in-memory snapshot atomically; a file that fails to parse leaves the
// previous snapshot in place.
type FileDirectory struct {
	path    string
	logger  *observability.Logger
	metrics *observability.Metrics

	mu        sync.RWMutex
	snap      *fileSnapshot
	loadedAt  time.Time
	reloadErr error
}

// NewFileDirectory loads path and returns a directory serving its contents
func NewFileDirectory(path string, logger *observability.Logger, metrics *observability.Metrics) (*FileDirectory, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	d := &FileDirectory{
		path:    path,
		logger:  logger,
		metrics: metrics,
	}
	if err := d.Reload(); err != nil {
		return nil, err
	}
	return d, nil
}

func loadFile(path string) (*fileSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var parsed fileFormat
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse directory file: %w", err)
	}

	snap := &fileSnapshot{byDomain: make(map[string][]*OrganizationPolicy)}
	for i, policy := range parsed.Organizations {
		if policy == nil {
			continue
		}
		if policy.Domain == "" {
			return nil, fmt.Errorf("organization %d (%q) has no domain", i, policy.Name)
		}
		if policy.ID == 0 {
			policy.ID = int64(i + 1)
		}
		snap.byDomain[policy.Domain] = append(snap.byDomain[policy.Domain], policy)
		snap.all = append(snap.all, policy)
	}
	sort.SliceStable(snap.all, func(i, j int) bool {
		return snap.all[i].CreatedAt.Before(snap.all[j].CreatedAt)
	})

	return snap, nil
}

// Reload re-reads the file
func (d *FileDirectory) Reload() error {
	snap, err := loadFile(d.path)
	d.metrics.RecordReload(err == nil)
	if err != nil {
		d.mu.Lock()
		d.reloadErr = err
		d.mu.Unlock()
		return err
	}

	d.mu.Lock()
	d.snap = snap
	d.loadedAt = time.Now()
	d.reloadErr = nil
	d.mu.Unlock()

	d.logger.WithField("path", d.path).
		WithField("organizations", len(snap.all)).
		Info("Organization directory loaded")
	return nil
}

func (d *FileDirectory) snapshot() *fileSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap
}

// Health reports the loaded snapshot for readiness. After a failed reload
// lookups keep answering from the previous snapshot, which is reported as
// degraded until the file parses again.
func (d *FileDirectory) Health(ctx context.Context) observability.DependencyStatus {
	if err := ctx.Err(); err != nil {
		return observability.DependencyStatus{Status: observability.StatusUnhealthy, Message: err.Error()}
	}

	d.mu.RLock()
	count, loadedAt, reloadErr := len(d.snap.all), d.loadedAt, d.reloadErr
	d.mu.RUnlock()

	if reloadErr != nil {
		return observability.DependencyStatus{
			Status:  observability.StatusDegraded,
			Message: fmt.Sprintf("serving %d organizations loaded %s: %v", count, loadedAt.Format(time.RFC3339), reloadErr),
		}
	}
	return observability.DependencyStatus{
		Status:  observability.StatusHealthy,
		Message: fmt.Sprintf("%d organizations from %s", count, filepath.Base(d.path)),
	}
}

// Lookup returns the organization owning domain
func (d *FileDirectory) Lookup(ctx context.Context, domain string) (*OrganizationPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, &LookupError{Domain: domain, Err: err}
	}

	matches := d.snapshot().byDomain[domain]
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0].clone(), nil
	default:
		return nil, &LookupError{Domain: domain, Err: ErrDuplicateDomain}
	}
}

// List returns every organization ordered by creation time
func (d *FileDirectory) List(ctx context.Context) ([]*OrganizationPolicy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := d.snapshot().all
	out := make([]*OrganizationPolicy, 0, len(all))
	for _, policy := range all {
		out = append(out, policy.clone())
	}
	return out, nil
}

// DuplicateDomains returns every domain listed more than once in the file
func (d *FileDirectory) DuplicateDomains(ctx context.Context) ([]DuplicateDomain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var dups []DuplicateDomain
	for domain, matches := range d.snapshot().byDomain {
		if len(matches) > 1 {
			dups = append(dups, DuplicateDomain{Domain: domain, Count: len(matches)})
		}
	}
	sort.Slice(dups, func(i, j int) bool { return dups[i].Domain < dups[j].Domain })
	return dups, nil
}

// Watch reloads the file whenever it changes until ctx is done. The parent
// directory is watched so that editors which replace the file by rename are
// picked up too.
func (d *FileDirectory) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(d.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(d.path), err)
	}

	target := filepath.Clean(d.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := d.Reload(); err != nil {
				d.logger.WithError(err).WithField("path", d.path).
					Warn("Directory reload failed, keeping previous snapshot")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			d.logger.WithError(err).Warn("Directory watcher error")
		}
	}
}

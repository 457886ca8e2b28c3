// Package orgs resolves an email domain to the owning organization's SSO
// policy.
//
// # Overview
//
// The Directory interface has exactly three results for a lookup: a policy,
// ErrNotFound (an unregistered domain, which is normal) or a *LookupError
// (the directory could not answer). Callers must never treat a LookupError as
// not-found; doing so would send users of a registered organization to signup.
//
// # Backends
//
//   - SQLDirectory: the organizations table over database/sql (Postgres via
//     lib/pq, SQLite via go-sqlite3 for local development)
//   - FileDirectory: a YAML file, hot reloaded with fsnotify
//
// # Decorators
//
//   - CachedDirectory: in-process expirable LRU plus optional Redis tier.
//     Faults are never cached.
//   - Instrument: Prometheus counters and an OpenTelemetry span per lookup
//
// # Integrity
//
// A domain is a unique key. When the backing store holds more than one
// record for a domain the lookup fails with ErrDuplicateDomain wrapped in a
// LookupError, and the Auditor reports such domains on a cron schedule.
package orgs

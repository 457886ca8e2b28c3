package orgs

import (
	"context"
	"database/sql"
	"fmt"
)

// Driver names accepted by Migrate
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS organizations (
	id               BIGSERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	domain           TEXT NOT NULL,
	uses_sso         BOOLEAN NOT NULL DEFAULT FALSE,
	sso_redirect_url TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_organizations_domain ON organizations (domain);
`

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS organizations (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	domain           TEXT NOT NULL,
	uses_sso         BOOLEAN NOT NULL DEFAULT 0,
	sso_redirect_url TEXT,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_organizations_domain ON organizations (domain);
`

// The domain index is deliberately not UNIQUE: the directory is maintained
// elsewhere and duplicates must be detectable rather than impossible to load.

const (
	lookupQuery = `
		SELECT id, name, domain, uses_sso, sso_redirect_url, created_at
		FROM organizations
		WHERE domain = $1
		LIMIT 2
	`
	listQuery = `
		SELECT id, name, domain, uses_sso, sso_redirect_url, created_at
		FROM organizations
		ORDER BY created_at
	`
	duplicatesQuery = `
		SELECT domain, COUNT(*)
		FROM organizations
		GROUP BY domain
		HAVING COUNT(*) > 1
		ORDER BY domain
	`
)

// SQLDirectory reads organization policies from the organizations table
type SQLDirectory struct {
	db *sql.DB
}

// NewSQLDirectory creates a directory backed by db
func NewSQLDirectory(db *sql.DB) *SQLDirectory {
	return &SQLDirectory{db: db}
}

// Migrate creates the organizations table for the given driver
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverPostgres:
		schema = postgresSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return fmt.Errorf("unsupported driver: %s", driver)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create organizations table: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row rowScanner) (*OrganizationPolicy, error) {
	policy := &OrganizationPolicy{}
	var redirectURL sql.NullString
	if err := row.Scan(
		&policy.ID, &policy.Name, &policy.Domain, &policy.UsesSSO,
		&redirectURL, &policy.CreatedAt,
	); err != nil {
		return nil, err
	}
	policy.SSORedirectURL = redirectURL.String
	return policy, nil
}

// Lookup returns the single organization whose domain equals domain exactly
func (d *SQLDirectory) Lookup(ctx context.Context, domain string) (*OrganizationPolicy, error) {
	rows, err := d.db.QueryContext(ctx, lookupQuery, domain)
	if err != nil {
		return nil, &LookupError{Domain: domain, Err: err}
	}
	defer rows.Close()

	var found *OrganizationPolicy
	for rows.Next() {
		if found != nil {
			return nil, &LookupError{Domain: domain, Err: ErrDuplicateDomain}
		}
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, &LookupError{Domain: domain, Err: fmt.Errorf("failed to scan organization: %w", err)}
		}
		found = policy
	}
	if err := rows.Err(); err != nil {
		return nil, &LookupError{Domain: domain, Err: err}
	}

	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// List returns every organization ordered by creation time
func (d *SQLDirectory) List(ctx context.Context) ([]*OrganizationPolicy, error) {
	rows, err := d.db.QueryContext(ctx, listQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	var policies []*OrganizationPolicy
	for rows.Next() {
		policy, err := scanPolicy(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		policies = append(policies, policy)
	}

	return policies, rows.Err()
}

// DuplicateDomains returns every domain held by more than one organization
func (d *SQLDirectory) DuplicateDomains(ctx context.Context) ([]DuplicateDomain, error) {
	rows, err := d.db.QueryContext(ctx, duplicatesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query duplicate domains: %w", err)
	}
	defer rows.Close()

	var dups []DuplicateDomain
	for rows.Next() {
		var dup DuplicateDomain
		if err := rows.Scan(&dup.Domain, &dup.Count); err != nil {
			return nil, fmt.Errorf("failed to scan duplicate domain: %w", err)
		}
		dups = append(dups, dup)
	}

	return dups, rows.Err()
}

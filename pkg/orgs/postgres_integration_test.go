//go:build integration

package orgs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgresDirectory(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("ssogate_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open(DriverPostgres, connStr)
	require.NoError(t, err)
	require.NoError(t, db.PingContext(ctx))
	require.NoError(t, Migrate(ctx, db, DriverPostgres))

	cleanup := func() {
		db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := container.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
	return db, cleanup
}

func insertOrganization(t *testing.T, db *sql.DB, name, domain string, usesSSO bool, redirectURL *string, createdAt time.Time) {
	t.Helper()
	_, err := db.Exec(
		`INSERT INTO organizations (name, domain, uses_sso, sso_redirect_url, created_at) VALUES ($1, $2, $3, $4, $5)`,
		name, domain, usesSSO, redirectURL, createdAt,
	)
	require.NoError(t, err)
}

func TestSQLDirectory_Postgres(t *testing.T) {
	db, cleanup := setupPostgresDirectory(t)
	defer cleanup()
	ctx := context.Background()

	redirect := "https://sso.acme.com/start"
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	insertOrganization(t, db, "Globex", "globex.com", true, nil, base.Add(48*time.Hour))
	insertOrganization(t, db, "Acme", "acme.com", true, &redirect, base)
	insertOrganization(t, db, "Initech", "initech.com", false, nil, base.Add(24*time.Hour))

	dir := NewSQLDirectory(db)

	acme, err := dir.Lookup(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, redirect, acme.SSORedirectURL)

	globex, err := dir.Lookup(ctx, "globex.com")
	require.NoError(t, err)
	assert.False(t, globex.HasRedirectURL())

	// Matching is exact
	_, err = dir.Lookup(ctx, "ACME.COM")
	assert.ErrorIs(t, err, ErrNotFound)

	policies, err := dir.List(ctx)
	require.NoError(t, err)
	require.Len(t, policies, 3)
	assert.Equal(t, []string{"acme.com", "initech.com", "globex.com"},
		[]string{policies[0].Domain, policies[1].Domain, policies[2].Domain})

	insertOrganization(t, db, "Acme EU", "acme.com", false, nil, base.Add(72*time.Hour))
	_, err = dir.Lookup(ctx, "acme.com")
	assert.ErrorIs(t, err, ErrDuplicateDomain)

	dups, err := dir.DuplicateDomains(ctx)
	require.NoError(t, err)
	assert.Equal(t, []DuplicateDomain{{Domain: "acme.com", Count: 2}}, dups)
}

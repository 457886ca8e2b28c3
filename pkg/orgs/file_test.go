package orgs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/ssogate/pkg/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const directoryYAML = `
organizations:
  - name: Globex
    domain: globex.com
    uses_sso: true
    created_at: 2024-03-01T00:00:00Z
  - name: Acme
    domain: acme.com
    uses_sso: true
    sso_redirect_url: https://sso.acme.com/start
    created_at: 2024-01-01T00:00:00Z
  - name: Initech
    domain: initech.com
    uses_sso: false
    created_at: 2024-02-01T00:00:00Z
`

func writeDirectoryFile(t *testing.T, dir, contents string) string {
	t.Helper()
	path := filepath.Join(dir, "orgs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestFileDirectory_Lookup(t *testing.T) {
	path := writeDirectoryFile(t, t.TempDir(), directoryYAML)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	acme, err := dir.Lookup(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", acme.Name)
	assert.Equal(t, "https://sso.acme.com/start", acme.SSORedirectURL)
	assert.Equal(t, int64(2), acme.ID)

	initech, err := dir.Lookup(ctx, "initech.com")
	require.NoError(t, err)
	assert.False(t, initech.UsesSSO)

	_, err = dir.Lookup(ctx, "newco.io")
	assert.ErrorIs(t, err, ErrNotFound)

	// Callers get copies
	acme.Name = "mutated"
	again, err := dir.Lookup(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme", again.Name)
}

func TestFileDirectory_LookupCancelled(t *testing.T) {
	path := writeDirectoryFile(t, t.TempDir(), directoryYAML)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = dir.Lookup(ctx, "acme.com")
	assert.True(t, IsLookupError(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFileDirectory_List(t *testing.T) {
	path := writeDirectoryFile(t, t.TempDir(), directoryYAML)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)

	policies, err := dir.List(context.Background())
	require.NoError(t, err)
	require.Len(t, policies, 3)
	assert.Equal(t, "acme.com", policies[0].Domain)
	assert.Equal(t, "initech.com", policies[1].Domain)
	assert.Equal(t, "globex.com", policies[2].Domain)
}

func TestFileDirectory_Duplicates(t *testing.T) {
	path := writeDirectoryFile(t, t.TempDir(), `
organizations:
  - name: Acme
    domain: acme.com
    uses_sso: true
  - name: Acme EU
    domain: acme.com
    uses_sso: false
`)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)

	_, err = dir.Lookup(context.Background(), "acme.com")
	assert.True(t, IsLookupError(err))
	assert.ErrorIs(t, err, ErrDuplicateDomain)

	dups, err := dir.DuplicateDomains(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []DuplicateDomain{{Domain: "acme.com", Count: 2}}, dups)
}

func TestNewFileDirectory_Errors(t *testing.T) {
	tmp := t.TempDir()

	_, err := NewFileDirectory(filepath.Join(tmp, "missing.yaml"), observability.NopLogger(), nil)
	assert.Error(t, err)

	path := writeDirectoryFile(t, tmp, "organizations: [")
	_, err = NewFileDirectory(path, observability.NopLogger(), nil)
	assert.Error(t, err)

	path = writeDirectoryFile(t, tmp, "organizations:\n  - name: Nameless\n")
	_, err = NewFileDirectory(path, observability.NopLogger(), nil)
	assert.ErrorContains(t, err, "has no domain")
}

func TestFileDirectory_ReloadKeepsSnapshotOnError(t *testing.T) {
	tmp := t.TempDir()
	path := writeDirectoryFile(t, tmp, directoryYAML)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)

	writeDirectoryFile(t, tmp, "organizations: [")
	assert.Error(t, dir.Reload())

	_, err = dir.Lookup(context.Background(), "acme.com")
	assert.NoError(t, err)
}

func TestFileDirectory_NilLogger(t *testing.T) {
	path := writeDirectoryFile(t, t.TempDir(), directoryYAML)

	var dir *FileDirectory
	assert.NotPanics(t, func() {
		var err error
		dir, err = NewFileDirectory(path, nil, nil)
		require.NoError(t, err)
		require.NoError(t, dir.Reload())
	})

	policy, err := dir.Lookup(context.Background(), "initech.com")
	require.NoError(t, err)
	assert.Equal(t, "Initech", policy.Name)
}

func TestFileDirectory_Health(t *testing.T) {
	tmp := t.TempDir()
	path := writeDirectoryFile(t, tmp, directoryYAML)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)

	status := dir.Health(context.Background())
	assert.Equal(t, observability.StatusHealthy, status.Status)
	assert.Equal(t, "3 organizations from orgs.yaml", status.Message)

	writeDirectoryFile(t, tmp, "organizations: [")
	require.Error(t, dir.Reload())
	status = dir.Health(context.Background())
	assert.Equal(t, observability.StatusDegraded, status.Status)
	assert.Contains(t, status.Message, "serving 3 organizations")

	writeDirectoryFile(t, tmp, directoryYAML)
	require.NoError(t, dir.Reload())
	assert.Equal(t, observability.StatusHealthy, dir.Health(context.Background()).Status)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Equal(t, observability.StatusUnhealthy, dir.Health(ctx).Status)
}

func TestFileDirectory_Watch(t *testing.T) {
	tmp := t.TempDir()
	path := writeDirectoryFile(t, tmp, directoryYAML)
	dir, err := NewFileDirectory(path, observability.NopLogger(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- dir.Watch(ctx) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher time to register before the write
	time.Sleep(100 * time.Millisecond)
	writeDirectoryFile(t, tmp, directoryYAML+`
  - name: NewCo
    domain: newco.io
    uses_sso: true
    created_at: 2024-04-01T00:00:00Z
`)

	assert.Eventually(t, func() bool {
		_, err := dir.Lookup(context.Background(), "newco.io")
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
}

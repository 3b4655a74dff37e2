package git

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/domain"
)

func testConfig(appDir string) *config.Config {
	return &config.Config{
		RepoURL:             "https://example.com/app.git",
		Branch:              "master",
		AppDir:              appDir,
		GitTimeout:          30 * time.Second,
		DiscardLocalChanges: true,
	}
}

func TestNewSyncService(t *testing.T) {
	service := NewSyncService(testConfig(t.TempDir()), nil)
	require.NotNil(t, service)
}

func TestSyncService_Sync_UnreachableRemote(t *testing.T) {
	cfg := testConfig(filepath.Join(t.TempDir(), "app"))
	cfg.RepoURL = "https://127.0.0.1:1/nope.git"
	cfg.GitTimeout = 5 * time.Second
	service := NewSyncService(cfg, nil)

	_, err := service.Sync(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
}

func TestSyncService_CurrentRevision_NoCheckout(t *testing.T) {
	service := NewSyncService(testConfig(filepath.Join(t.TempDir(), "app")), nil)

	_, err := service.CurrentRevision()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceCorrupt)
}

func TestSyncService_CreateAuthMethod(t *testing.T) {
	cfg := testConfig(t.TempDir())

	t.Run("public repo", func(t *testing.T) {
		service := NewSyncService(cfg, nil)
		auth, err := service.createAuthMethod()
		require.NoError(t, err)
		assert.Nil(t, auth)
	})

	t.Run("http auth", func(t *testing.T) {
		service := NewSyncService(cfg, &domain.GitAuthConfig{
			HTTPAuth: &domain.GitHTTPAuthConfig{Username: "token", Password: "secret"},
		})
		auth, err := service.createAuthMethod()
		require.NoError(t, err)
		require.NotNil(t, auth)
		assert.Contains(t, auth.Name(), "http")
	})

	t.Run("invalid ssh key", func(t *testing.T) {
		service := NewSyncService(cfg, &domain.GitAuthConfig{
			SSHAuth: &domain.GitSSHAuthConfig{PrivateKey: "not a key"},
		})
		_, err := service.createAuthMethod()
		assert.Error(t, err)
	})
}

func TestErrorsAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrSourceUnavailable, ErrSourceCorrupt))
	assert.False(t, errors.Is(ErrSourceCorrupt, ErrSourceUnavailable))
}

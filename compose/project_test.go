package compose

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dockhand-cd/dockhand/config"
)

func testConfig(appDir string) *config.Config {
	return &config.Config{
		RepoURL:        "https://github.com/example/shop.git",
		AppDir:         appDir,
		DockerHost:     "unix:///var/run/docker.sock",
		DockerCommand:  "docker",
		SettleInterval: 10 * time.Second,
		ComposeTimeout: time.Minute,
	}
}

func writeComposeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const validCompose = `
services:
  web:
    image: nginx:1.27
`

func TestNewProject(t *testing.T) {
	cfg := testConfig(t.TempDir())
	p := NewProject(cfg)

	assert.Equal(t, "shop", p.Name)
	assert.Equal(t, cfg.AppDir, p.WorkingDir)
}

func TestProject_ComposeFile(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		dir := t.TempDir()
		want := writeComposeFile(t, dir, "compose.yaml", validCompose)
		p := NewProject(testConfig(dir))

		got, err := p.ComposeFile()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("legacy name", func(t *testing.T) {
		dir := t.TempDir()
		want := writeComposeFile(t, dir, "docker-compose.yml", validCompose)
		p := NewProject(testConfig(dir))

		got, err := p.ComposeFile()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("missing", func(t *testing.T) {
		p := NewProject(testConfig(t.TempDir()))

		_, err := p.ComposeFile()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMissingComposeFile)
	})

	t.Run("no services", func(t *testing.T) {
		dir := t.TempDir()
		writeComposeFile(t, dir, "compose.yaml", "services: {}\n")
		p := NewProject(testConfig(dir))

		_, err := p.ComposeFile()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidComposeFile)
	})

	t.Run("not yaml", func(t *testing.T) {
		dir := t.TempDir()
		writeComposeFile(t, dir, "compose.yaml", "{invalid")
		p := NewProject(testConfig(dir))

		_, err := p.ComposeFile()
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidComposeFile)
	})
}

func TestProject_PrepareCommand(t *testing.T) {
	dir := t.TempDir()
	composeFile := writeComposeFile(t, dir, "compose.yaml", validCompose)
	p := NewProject(testConfig(dir))

	cmd, err := p.prepareCommand(context.Background(), "build", []string{"--no-cache", "--pull"})
	require.NoError(t, err)

	assert.Equal(t, dir, cmd.Dir)
	assert.Equal(t, []string{
		"docker",
		"--host", "unix:///var/run/docker.sock",
		"compose",
		"--project-name", "shop",
		"--file", composeFile,
		"build", "--no-cache", "--pull",
	}, cmd.Args)
}

func TestProject_CommandsFailFastWithoutComposeFile(t *testing.T) {
	p := NewProject(testConfig(t.TempDir()))
	ctx := context.Background()

	_, err := p.Down(ctx)
	assert.ErrorIs(t, err, ErrMissingComposeFile)

	_, err = p.Build(ctx)
	assert.ErrorIs(t, err, ErrMissingComposeFile)

	_, err = p.Up(ctx)
	assert.ErrorIs(t, err, ErrMissingComposeFile)
}

func TestProject_CommandTimeoutKillsHungSubprocess(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping subprocess test in short mode")
	}

	dir := t.TempDir()
	writeComposeFile(t, dir, "compose.yaml", validCompose)

	// Stand-in docker binary that hangs well past the configured timeout
	fakeDocker := filepath.Join(t.TempDir(), "docker")
	require.NoError(t, os.WriteFile(fakeDocker, []byte("#!/bin/sh\nsleep 5\n"), 0o755))

	cfg := testConfig(dir)
	cfg.DockerCommand = fakeDocker
	cfg.ComposeTimeout = 100 * time.Millisecond
	p := NewProject(cfg)

	start := time.Now()
	_, err := p.Down(context.Background())
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Less(t, elapsed, 2*time.Second, "hung compose command must be killed at the timeout")
}

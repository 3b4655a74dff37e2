// Package config provides configuration loading and validation for Dockhand.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/compose-spec/compose-go/v2/dotenv"
	"github.com/gosimple/slug"
)

const (
	AppDirName  = "app"
	LockFile    = "dockhand.lock"
	JournalFile = "deployments.log"
	MarkerFile  = "last_change"
	TokenFile   = "git_token"
)

// EnvProvider abstracts environment variable access for testing
type EnvProvider interface {
	Getenv(key string) string
	UserHomeDir() (string, error)
}

// DefaultEnvProvider implements EnvProvider using real OS functions
type DefaultEnvProvider struct{}

func (p *DefaultEnvProvider) Getenv(key string) string {
	return os.Getenv(key)
}

func (p *DefaultEnvProvider) UserHomeDir() (string, error) {
	return os.UserHomeDir()
}

// GetDefaultDataDir returns the default Dockhand data directory following
// the XDG Base Directory specification
func GetDefaultDataDir() string {
	return getDefaultDataDirWithEnv(&DefaultEnvProvider{})
}

func getDefaultDataDirWithEnv(env EnvProvider) string {
	xdgDataHome := env.Getenv("XDG_DATA_HOME")
	if xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "dockhand")
	}

	homeDir, _ := env.UserHomeDir()
	return filepath.Join(homeDir, ".local", "share", "dockhand")
}

// Config holds configuration for all services. It is loaded once at startup
// and immutable for the lifetime of one invocation.
type Config struct {
	// Source
	RepoURL     string
	Branch      string
	GitUsername string
	GitToken    string
	MasterKey   string

	// Core paths
	DataDir      string
	AppDir       string
	LockPath     string
	JournalPath  string
	MarkerPath   string
	DatabasePath string

	// Deployment
	WebPort        int
	ForceRebuild   bool
	SettleInterval time.Duration
	// DiscardLocalChanges controls the "remote is always truth" sync policy:
	// local modifications and untracked files in the checkout are removed so
	// the worktree exactly matches the remote tip.
	DiscardLocalChanges bool

	// Docker
	DockerHost    string
	DockerCommand string

	// HTTP server (serve command)
	HTTPHost string
	HTTPPort int

	// Git
	GitTimeout     time.Duration
	ComposeTimeout time.Duration

	// Logging
	LogLevel     string
	ColorEnabled bool

	// Environment provider for testing
	env EnvProvider
}

// NewConfig creates a new configuration with optional data directory override
// from the CLI
func NewConfig(cliDataDir string) (*Config, error) {
	return newConfigWithEnv(&DefaultEnvProvider{}, cliDataDir)
}

// NewConfigWithEnv creates a new configuration with a custom environment
// provider (for testing)
func NewConfigWithEnv(env EnvProvider, cliDataDir string) (*Config, error) {
	return newConfigWithEnv(env, cliDataDir)
}

func newConfigWithEnv(env EnvProvider, cliDataDir string) (*Config, error) {
	c := &Config{env: env}

	c.setDefaults()
	c.loadFromEnv()

	if cliDataDir != "" {
		c.DataDir = cliDataDir
	}

	// Fall back to a .env file in the data directory for anything still unset
	c.loadFromEnvFile()

	c.derivePaths()

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return c, nil
}

func (c *Config) setDefaults() {
	c.DataDir = getDefaultDataDirWithEnv(c.env)
	c.Branch = "main"
	c.WebPort = 80
	c.SettleInterval = 15 * time.Second
	c.DiscardLocalChanges = true
	c.DockerHost = "unix:///var/run/docker.sock"
	c.DockerCommand = "docker"
	c.HTTPHost = "127.0.0.1"
	c.HTTPPort = 8080
	c.GitTimeout = 5 * time.Minute
	c.ComposeTimeout = 15 * time.Minute
	c.LogLevel = "info"
	c.ColorEnabled = true
}

func (c *Config) loadFromEnv() {
	if v := c.env.Getenv("DOCKHAND_REPO_URL"); v != "" {
		c.RepoURL = v
	}
	if v := c.env.Getenv("DOCKHAND_BRANCH"); v != "" {
		c.Branch = v
	}
	if v := c.env.Getenv("DOCKHAND_GIT_USERNAME"); v != "" {
		c.GitUsername = v
	}
	if v := c.env.Getenv("DOCKHAND_GIT_TOKEN"); v != "" {
		c.GitToken = v
	}
	if v := c.env.Getenv("DOCKHAND_MASTER_KEY"); v != "" {
		c.MasterKey = v
	}
	if v := c.env.Getenv("DOCKHAND_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := c.env.Getenv("DOCKHAND_APP_DIR"); v != "" {
		c.AppDir = v
	}
	if v := c.env.Getenv("DOCKHAND_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.WebPort = port
		}
	}
	if v := c.env.Getenv("DOCKHAND_FORCE_REBUILD"); v != "" {
		if force, err := strconv.ParseBool(v); err == nil {
			c.ForceRebuild = force
		}
	}
	if v := c.env.Getenv("DOCKHAND_SETTLE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SettleInterval = d
		}
	}
	if v := c.env.Getenv("DOCKHAND_DOCKER_HOST"); v != "" {
		c.DockerHost = v
	}
	if v := c.env.Getenv("DOCKHAND_DOCKER_COMMAND"); v != "" {
		c.DockerCommand = v
	}
	if v := c.env.Getenv("DOCKHAND_HTTP_HOST"); v != "" {
		c.HTTPHost = v
	}
	if v := c.env.Getenv("DOCKHAND_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.HTTPPort = port
		}
	}
	if v := c.env.Getenv("DOCKHAND_GIT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.GitTimeout = d
		}
	}
	if v := c.env.Getenv("DOCKHAND_COMPOSE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.ComposeTimeout = d
		}
	}
	if v := c.env.Getenv("DOCKHAND_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := c.env.Getenv("DOCKHAND_COLOR_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.ColorEnabled = enabled
		}
	}
}

// loadFromEnvFile reads a .env file in the data directory as a fallback
// source for values not already set via the process environment
func (c *Config) loadFromEnvFile() {
	envFile := filepath.Join(c.DataDir, ".env")

	envVars, err := dotenv.Read(envFile)
	if err != nil {
		// .env file doesn't exist or can't be read, that's okay
		return
	}

	if c.RepoURL == "" {
		c.RepoURL = envVars["DOCKHAND_REPO_URL"]
	}
	if v := envVars["DOCKHAND_BRANCH"]; v != "" && c.env.Getenv("DOCKHAND_BRANCH") == "" {
		c.Branch = v
	}
	if c.GitUsername == "" {
		c.GitUsername = envVars["DOCKHAND_GIT_USERNAME"]
	}
	if c.GitToken == "" {
		c.GitToken = envVars["DOCKHAND_GIT_TOKEN"]
	}
	if c.MasterKey == "" {
		c.MasterKey = envVars["DOCKHAND_MASTER_KEY"]
	}
}

// derivePaths calculates dependent paths from the base DataDir
func (c *Config) derivePaths() {
	if c.AppDir == "" {
		c.AppDir = filepath.Join(c.DataDir, AppDirName)
	}
	c.LockPath = filepath.Join(c.DataDir, LockFile)
	c.JournalPath = filepath.Join(c.DataDir, JournalFile)
	c.MarkerPath = filepath.Join(c.DataDir, MarkerFile)
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "dockhand.db")
	}
}

// validate ensures configuration values are valid
func (c *Config) validate() error {
	if c.RepoURL == "" {
		return fmt.Errorf("repository URL is required (set DOCKHAND_REPO_URL)")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warning": true, "error": true, "silent": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warning, error, or silent)", c.LogLevel)
	}

	if c.WebPort < 1 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web port: %d (must be 1-65535)", c.WebPort)
	}

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d (must be 1-65535)", c.HTTPPort)
	}

	if c.GitTimeout <= 0 {
		return fmt.Errorf("git timeout must be positive, got: %v", c.GitTimeout)
	}

	if c.ComposeTimeout <= 0 {
		return fmt.Errorf("compose timeout must be positive, got: %v", c.ComposeTimeout)
	}

	if c.SettleInterval <= 0 {
		return fmt.Errorf("settle interval must be positive, got: %v", c.SettleInterval)
	}

	if c.DockerCommand == "" {
		return fmt.Errorf("docker command cannot be empty")
	}

	return nil
}

// ProjectName derives the compose project name from the repository URL
func (c *Config) ProjectName() string {
	name := c.RepoURL
	name = strings.TrimSuffix(name, ".git")
	if idx := strings.LastIndexAny(name, "/:"); idx != -1 {
		name = name[idx+1:]
	}
	if name == "" {
		name = "dockhand"
	}
	return slug.Make(name)
}

// GetLogLevel returns the configured log level
func (c *Config) GetLogLevel() string {
	return c.LogLevel
}

// Package compose drives the container runtime for a single application: it
// translates a deployment decision into docker compose stop/build/start
// operations and inspects runtime state to verify the result.
package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dockhand-cd/dockhand/config"
)

var (
	// ErrMissingComposeFile indicates no composition definition exists in the
	// application directory. This is a configuration error, not transient.
	ErrMissingComposeFile = errors.New("compose file not found")
	// ErrInvalidComposeFile indicates the composition definition exists but
	// does not define any services.
	ErrInvalidComposeFile = errors.New("compose file invalid")
)

// composeFileNames are the definition file names recognized in the checkout,
// in lookup order
var composeFileNames = []string{
	"compose.yaml",
	"compose.yml",
	"docker-compose.yaml",
	"docker-compose.yml",
}

// Project is a docker compose project rooted in the deploy checkout
type Project struct {
	// Name is the name of the Docker Compose project.
	Name string
	// WorkingDir is the directory where the Docker Compose files are located.
	WorkingDir string
	// Config holds configuration for docker commands and timeouts
	Config *config.Config
}

func NewProject(cfg *config.Config) *Project {
	return &Project{
		Name:       cfg.ProjectName(),
		WorkingDir: cfg.AppDir,
		Config:     cfg,
	}
}

// ComposeFile locates the composition definition within the working
// directory and fails fast when it is absent or defines no services
func (p *Project) ComposeFile() (string, error) {
	for _, name := range composeFileNames {
		path := filepath.Join(p.WorkingDir, name)
		if _, err := os.Stat(path); err == nil {
			if err := p.validateComposeFile(path); err != nil {
				return "", err
			}
			return path, nil
		}
	}

	slog.Error("Service operation failed",
		"layer", "compose",
		"operation", "resolve_compose_file",
		"project_name", p.Name,
		"working_dir", p.WorkingDir)
	return "", fmt.Errorf("%w: no compose file in %s", ErrMissingComposeFile, p.WorkingDir)
}

// validateComposeFile checks the definition parses and declares at least one
// service, so a broken checkout fails before any container operation
func (p *Project) validateComposeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read compose file: %w", err)
	}

	var doc struct {
		Services map[string]any `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidComposeFile, err)
	}
	if len(doc.Services) == 0 {
		return fmt.Errorf("%w: no services defined in %s", ErrInvalidComposeFile, path)
	}

	return nil
}

// Down stops and removes the project's containers, including orphaned ones
func (p *Project) Down(ctx context.Context) (string, error) {
	return p.runCommand(ctx, "down", []string{"--remove-orphans"})
}

// Build rebuilds all images from scratch: no layer cache, fresh base-image pulls
func (p *Project) Build(ctx context.Context) (string, error) {
	return p.runCommand(ctx, "build", []string{"--no-cache", "--pull"})
}

// Up starts the updated container set in the background
func (p *Project) Up(ctx context.Context) (string, error) {
	return p.runCommand(ctx, "up", []string{"--detach", "--quiet-pull", "--no-color", "--remove-orphans"})
}

// Logs captures recent runtime output for diagnosis after a failed start
func (p *Project) Logs(ctx context.Context) (string, error) {
	return p.runCommand(ctx, "logs", []string{"--no-color", "--tail", "200"})
}

// runCommand bounds every compose subprocess with the configured compose
// timeout so a hung docker invocation cannot hold the deployment lock forever
func (p *Project) runCommand(ctx context.Context, command string, args []string) (string, error) {
	if p.Config.ComposeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Config.ComposeTimeout)
		defer cancel()
	}

	cmd, err := p.prepareCommand(ctx, command, args)
	if err != nil {
		return "", err
	}
	return p.executeCommand(cmd)
}

func (p *Project) prepareCommand(ctx context.Context, command string, args []string) (*exec.Cmd, error) {
	composeFile, err := p.ComposeFile()
	if err != nil {
		return nil, err
	}

	commandArgs := []string{
		"--host", p.Config.DockerHost,
		"compose",
		"--project-name", p.Name,
		"--file", composeFile,
	}
	commandArgs = append(commandArgs, command)
	commandArgs = append(commandArgs, args...)

	slog.Debug("Executing Docker Compose command",
		"command", p.Config.DockerCommand,
		"args", commandArgs,
		"working_dir", p.WorkingDir)

	cmd := exec.CommandContext(ctx, p.Config.DockerCommand, commandArgs...)
	cmd.Dir = p.WorkingDir

	return cmd, nil
}

func (p *Project) executeCommand(cmd *exec.Cmd) (string, error) {
	out, err := cmd.CombinedOutput()
	output := string(out)
	if err != nil {
		slog.Error("Service operation failed",
			"layer", "compose",
			"operation", "compose_execute",
			"project_name", p.Name,
			"error", err,
			"output", output)
		return output, fmt.Errorf("docker compose command failed: %w", err)
	}
	return output, nil
}

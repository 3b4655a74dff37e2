package compose

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrVerificationFailed indicates the container set was started but did not
// reach a running state within the settle interval.
var ErrVerificationFailed = errors.New("container verification failed")

// runtimeInspector is the slice of DockerClient the orchestrator needs;
// narrowed for testing
type runtimeInspector interface {
	RunningContainers(ctx context.Context, projectName string) ([]string, error)
	PruneImages(ctx context.Context)
}

// composeRunner is the slice of Project the orchestrator needs; narrowed
// for testing
type composeRunner interface {
	ComposeFile() (string, error)
	Down(ctx context.Context) (string, error)
	Build(ctx context.Context) (string, error)
	Up(ctx context.Context) (string, error)
	Logs(ctx context.Context) (string, error)
}

// Orchestrator executes the stop/build/start sequence for a deployment and
// verifies the result against the container runtime
type Orchestrator struct {
	project        composeRunner
	docker         runtimeInspector
	projectName    string
	settleInterval time.Duration
}

func NewOrchestrator(project *Project, docker *DockerClient) *Orchestrator {
	return &Orchestrator{
		project:        project,
		docker:         docker,
		projectName:    project.Name,
		settleInterval: project.Config.SettleInterval,
	}
}

// HasRunningContainers reports whether any container of the project is
// currently in a running state
func (o *Orchestrator) HasRunningContainers(ctx context.Context) (bool, error) {
	names, err := o.docker.RunningContainers(ctx, o.projectName)
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// Deploy stops and removes the existing container set, rebuilds all images
// from scratch, starts the updated set, waits a fixed settle interval, and
// verifies at least one container is running. The returned output holds the
// captured runtime logs when verification fails.
func (o *Orchestrator) Deploy(ctx context.Context) (string, error) {
	// Fail fast before touching any containers
	composeFile, err := o.project.ComposeFile()
	if err != nil {
		return "", err
	}

	slog.Info("Starting deployment",
		"project_name", o.projectName,
		"compose_file", composeFile)

	// Stopping is best-effort: missing containers are not a failure
	if out, err := o.project.Down(ctx); err != nil {
		slog.Warn("Stop of existing containers failed, proceeding with rebuild",
			"project_name", o.projectName,
			"error", err,
			"output", out)
	}

	if out, err := o.project.Build(ctx); err != nil {
		return out, fmt.Errorf("image build failed: %w", err)
	}

	if out, err := o.project.Up(ctx); err != nil {
		return out, fmt.Errorf("container start failed: %w", err)
	}

	slog.Debug("Waiting for containers to settle",
		"project_name", o.projectName,
		"settle_interval", o.settleInterval)
	if err := o.settle(ctx); err != nil {
		return "", err
	}

	running, err := o.docker.RunningContainers(ctx, o.projectName)
	if err != nil {
		return "", fmt.Errorf("failed to verify container state: %w", err)
	}

	if len(running) == 0 {
		logs, logsErr := o.project.Logs(ctx)
		if logsErr != nil {
			slog.Warn("Failed to capture runtime logs after verification failure",
				"project_name", o.projectName,
				"error", logsErr)
		}
		return logs, fmt.Errorf("%w: no running containers after settle interval", ErrVerificationFailed)
	}

	slog.Info("Deployment verified",
		"project_name", o.projectName,
		"running_containers", len(running))

	// Best-effort cleanup of build leftovers, never fails the deployment
	o.docker.PruneImages(ctx)

	return "", nil
}

// settle is a bounded sleep, interruptible by cancellation
func (o *Orchestrator) settle(ctx context.Context) error {
	timer := time.NewTimer(o.settleInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

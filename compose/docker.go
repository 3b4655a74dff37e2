package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Labels the compose CLI stamps on every container it creates
const (
	composeProjectLabel = "com.docker.compose.project"
	composeServiceLabel = "com.docker.compose.service"
)

// ContainerStatus describes one container of the compose project
type ContainerStatus struct {
	Service string
	Name    string
	State   string
	Status  string
}

// DockerClient wraps Docker SDK operations used for runtime inspection
type DockerClient struct {
	cli *client.Client
}

// NewDockerClient creates a new Docker client against the configured host
func NewDockerClient(host string) (*DockerClient, error) {
	opts := []client.Opt{client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return &DockerClient{cli: cli}, nil
}

// Close closes the Docker client
func (dc *DockerClient) Close() error {
	if dc.cli != nil {
		return dc.cli.Close()
	}
	return nil
}

// RunningContainers returns the names of running containers belonging to the
// given compose project
func (dc *DockerClient) RunningContainers(ctx context.Context, projectName string) ([]string, error) {
	containers, err := dc.cli.ContainerList(ctx, container.ListOptions{
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", composeProjectLabel, projectName)),
			filters.Arg("status", "running"),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	names := make([]string, 0, len(containers))
	for _, c := range containers {
		if len(c.Names) > 0 {
			names = append(names, c.Names[0])
		} else {
			names = append(names, c.ID[:12])
		}
	}
	return names, nil
}

// ContainerStatuses returns the state of every container belonging to the
// given compose project, running or not
func (dc *DockerClient) ContainerStatuses(ctx context.Context, projectName string) ([]ContainerStatus, error) {
	containers, err := dc.cli.ContainerList(ctx, container.ListOptions{
		All: true,
		Filters: filters.NewArgs(
			filters.Arg("label", fmt.Sprintf("%s=%s", composeProjectLabel, projectName)),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list containers: %w", err)
	}

	statuses := make([]ContainerStatus, 0, len(containers))
	for _, c := range containers {
		name := c.ID[:12]
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}
		statuses = append(statuses, ContainerStatus{
			Service: c.Labels[composeServiceLabel],
			Name:    name,
			State:   c.State,
			Status:  c.Status,
		})
	}
	return statuses, nil
}

// PruneImages removes dangling images left behind by --no-cache rebuilds.
// Best-effort: failures are logged, never propagated.
func (dc *DockerClient) PruneImages(ctx context.Context) {
	report, err := dc.cli.ImagesPrune(ctx, filters.NewArgs(filters.Arg("dangling", "true")))
	if err != nil {
		slog.Warn("Image prune failed", "error", err)
		return
	}

	slog.Debug("Pruned dangling images",
		"images_deleted", len(report.ImagesDeleted),
		"space_reclaimed", report.SpaceReclaimed)
}

// Ping verifies the Docker daemon is reachable
func (dc *DockerClient) Ping(ctx context.Context) error {
	if _, err := dc.cli.Ping(ctx); err != nil {
		return fmt.Errorf("docker daemon unreachable: %w", err)
	}
	return nil
}

// Package status provides the status command for inspecting agent state.
package status

import (
	"fmt"
	"os"

	"github.com/dockhand-cd/dockhand/app"
	"github.com/dockhand-cd/dockhand/cmd/output"
	"github.com/dockhand-cd/dockhand/lock"
	"github.com/spf13/cobra"
)

// NewCmdStatus creates the status command
func NewCmdStatus() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current deployment status",
		Long: `Show the tracked repository, the last recorded revision, whether a
deployment is currently in progress, and the latest deployment outcome.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd)
		},
	}

	return cmd
}

func runStatus(cmd *cobra.Command) error {
	cfg := app.GetConfig()

	if err := output.FprintPlain(cmd, "Repository: %s", cfg.RepoURL); err != nil {
		return err
	}
	if err := output.FprintPlain(cmd, "Branch:     %s", cfg.Branch); err != nil {
		return err
	}
	if err := output.FprintPlain(cmd, "Project:    %s", cfg.ProjectName()); err != nil {
		return err
	}

	if err := printLockState(cmd, cfg.LockPath); err != nil {
		return err
	}
	if err := printMarker(cmd); err != nil {
		return err
	}
	if err := printContainers(cmd, cfg.ProjectName()); err != nil {
		return err
	}
	return printLatestOutcome(cmd)
}

func printContainers(cmd *cobra.Command, projectName string) error {
	statuses, err := app.GetDockerClient().ContainerStatuses(cmd.Context(), projectName)
	if err != nil {
		// The daemon being down is status information, not a command failure
		return output.FprintWarning(cmd, "Containers: unavailable (%v)", err)
	}

	if len(statuses) == 0 {
		return output.FprintPlain(cmd, "Containers: none")
	}

	if err := output.FprintPlain(cmd, "\nContainers:"); err != nil {
		return err
	}
	for _, container := range statuses {
		prefix := "[OK]"
		if container.State != "running" {
			prefix = "[ERROR]"
		}
		if err := output.FprintPlain(cmd, "  %s %s: %s", prefix, container.Service, container.Status); err != nil {
			return err
		}
	}
	return nil
}

func printLockState(cmd *cobra.Command, lockPath string) error {
	holder, err := lock.ReadHolder(lockPath)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read deployment lock: %w", err)
	}

	if holder == nil {
		return output.FprintPlain(cmd, "Lock:       free")
	}
	return output.FprintWarning(cmd, "Lock:       held by pid %d since %s",
		holder.PID, holder.AcquiredAt.Format("2006-01-02 15:04:05"))
}

func printMarker(cmd *cobra.Command) error {
	marker, err := app.GetJournal().ReadChangeMarker()
	if err != nil {
		return fmt.Errorf("failed to read change marker: %w", err)
	}
	if marker == nil {
		return output.FprintPlain(cmd, "Revision:   (no sync recorded)")
	}
	return output.FprintPlain(cmd, "Revision:   %s (synced %s)",
		marker.Revision, marker.UpdatedAt.Format("2006-01-02 15:04:05"))
}

func printLatestOutcome(cmd *cobra.Command) error {
	latest, err := app.GetStore().Latest()
	if err != nil {
		return fmt.Errorf("failed to load latest outcome: %w", err)
	}
	if latest == nil {
		return output.FprintPlain(cmd, "\nNo deployments recorded.")
	}

	if err := output.FprintOutcome(cmd, latest.Kind, "\nLast deployment: %s", latest.Kind); err != nil {
		return err
	}

	details, err := output.PrintOutcomeDetails(latest)
	if err != nil {
		return err
	}
	return output.FprintPlain(cmd, "%s", details)
}

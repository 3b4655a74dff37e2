// Package run implements the run command, a single deployment invocation.
package run

import (
	"os/signal"
	"syscall"

	"github.com/dockhand-cd/dockhand/app"
	"github.com/dockhand-cd/dockhand/cmd/output"
	"github.com/dockhand-cd/dockhand/domain"
	"github.com/spf13/cobra"
)

// NewCmdRun creates the run command
func NewCmdRun() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one deployment invocation",
		Long: `Sync the deploy checkout with the remote repository, decide whether a
deployment is needed, and rebuild and restart the application if so.
Exits non-zero when a deployment was attempted and failed, or when the
source could not be synced. A skipped invocation exits zero.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd)
		},
	}

	cmd.Flags().Bool("force-rebuild", false, "Deploy even when no change is detected")
	return cmd
}

func runDeploy(cmd *cobra.Command) error {
	if force, _ := cmd.Flags().GetBool("force-rebuild"); force {
		app.GetConfig().ForceRebuild = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	outcome := app.GetAgent().Run(ctx)

	if err := printOutcome(cmd, outcome); err != nil {
		return err
	}

	if outcome.ExitCode() != 0 {
		// The outcome line above is the user-facing report
		return output.ErrAlreadyReported
	}
	return nil
}

func printOutcome(cmd *cobra.Command, outcome *domain.Outcome) error {
	var err error
	switch outcome.Kind {
	case domain.OutcomeSkippedLocked:
		err = output.FprintOutcome(cmd, outcome.Kind, "Skipped: %s", outcome.Reason)
	case domain.OutcomeSkippedNoChange:
		err = output.FprintOutcome(cmd, outcome.Kind, "Nothing to deploy: %s", outcome.Reason)
	case domain.OutcomeDeploySucceeded:
		err = output.FprintOutcome(cmd, outcome.Kind, "Deployed revision %s (%s)",
			outcome.NewRevision, outcome.Reason)
	case domain.OutcomeDeployFailed:
		err = output.FprintOutcome(cmd, outcome.Kind, "Deployment failed: %s", outcome.Reason)
	case domain.OutcomeSyncFailed:
		err = output.FprintOutcome(cmd, outcome.Kind, "Source sync failed: %s", outcome.Reason)
	}
	if err != nil {
		return err
	}

	// Captured compose output helps diagnose a failed deployment
	if outcome.Kind == domain.OutcomeDeployFailed && outcome.Output != "" {
		return output.FprintPlain(cmd, "\n%s", outcome.Output)
	}
	return nil
}

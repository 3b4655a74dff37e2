// Package history provides the history command for listing past deployments.
package history

import (
	"fmt"

	"github.com/dockhand-cd/dockhand/app"
	"github.com/dockhand-cd/dockhand/cmd/output"
	"github.com/spf13/cobra"
)

// NewCmdHistory creates the history command
func NewCmdHistory() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded deployment outcomes",
		Long: `Display past deployment invocations in a table format, newest first.
Each row shows when the invocation ran, its outcome, the revision change,
and the reason for the decision.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd)
		},
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum number of outcomes to show")
	return cmd
}

func runHistory(cmd *cobra.Command) error {
	limit, _ := cmd.Flags().GetInt("limit")

	outcomes, err := app.GetStore().List(limit)
	if err != nil {
		return fmt.Errorf("failed to list deployment history: %w", err)
	}

	table, err := output.PrintOutcomeList(outcomes)
	if err != nil {
		return err
	}

	return output.FprintPlain(cmd, "%s", table)
}

// Package root implements the command line interface for Dockhand.
package root

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/dockhand-cd/dockhand/app"
	"github.com/dockhand-cd/dockhand/cmd/history"
	"github.com/dockhand-cd/dockhand/cmd/output"
	"github.com/dockhand-cd/dockhand/cmd/run"
	"github.com/dockhand-cd/dockhand/cmd/secret"
	"github.com/dockhand-cd/dockhand/cmd/serve"
	"github.com/dockhand-cd/dockhand/cmd/status"
	"github.com/dockhand-cd/dockhand/cmd/version"
	"github.com/dockhand-cd/dockhand/config"
	"github.com/dockhand-cd/dockhand/logging"
	"github.com/spf13/cobra"
)

func Execute() {
	if err := NewCmdRoot().Execute(); err != nil {
		if !errors.Is(err, output.ErrAlreadyReported) {
			fmt.Fprint(os.Stderr, output.PrintMessage(output.Error, "Error: %s", output.FormatErrorForUser(err)))
		}
		os.Exit(1)
	}
}

func NewCmdRoot() *cobra.Command {
	var dataDir string

	cmd := &cobra.Command{
		Use:   "dockhand",
		Short: "Self-updating deployment agent for Docker Compose applications",
		Long: `Dockhand keeps a single host converged on the tip of a Git branch.
Each invocation syncs the deploy checkout, detects changes, and rebuilds
and restarts the Docker Compose application when needed. Run it from cron.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize configuration with data directory override
			cfg, err := config.NewConfig(dataDir)
			if err != nil {
				log.Fatalf("Failed to initialize configuration: %s", err)
			}

			// Initialize colors (CLI flag overrides config)
			colorDisabled := !cfg.ColorEnabled
			if output.NoColor.IsSet() {
				colorDisabled = true
			}
			output.InitColors(colorDisabled)

			// Initialize logging (CLI flag overrides config)
			logLevel := cfg.LogLevel
			if logging.LogLevel.IsSet() {
				logLevel = logging.LogLevel.String()
			}
			logging.InitLogging(logLevel)

			if err := app.InitializeWithConfig(cfg); err != nil {
				log.Fatalf("Failed to initialize application: %s", err)
			}
		},
	}

	cmd.PersistentFlags().
		StringVarP(&dataDir, "data-dir", "d", "", "Data directory for the deploy checkout and state files")
	cmd.PersistentFlags().VarP(logging.LogLevel, "log-level", "l", "Set log verbosity level")
	cmd.PersistentFlags().VarP(output.NoColor, "no-color", "c", "Disable colored terminal output")

	cmd.AddCommand(run.NewCmdRun())
	cmd.AddCommand(status.NewCmdStatus())
	cmd.AddCommand(history.NewCmdHistory())
	cmd.AddCommand(serve.NewCmdServe())
	cmd.AddCommand(secret.NewCmdSecret())
	cmd.AddCommand(version.NewCmdVersion())
	return cmd
}

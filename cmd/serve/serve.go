// Package serve implements the serve command for running the status API.
package serve

import (
	"os/signal"
	"syscall"

	"github.com/dockhand-cd/dockhand/app"
	"github.com/dockhand-cd/dockhand/web"
	"github.com/spf13/cobra"
)

// NewCmdServe creates the serve command
func NewCmdServe() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the read-only status API server",
		Long: `Starts an HTTP server exposing the deployment status and history as JSON.
The server is read-only; deployments still happen through the run command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}

	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := web.NewServer(app.GetConfig(), app.GetStore(), app.Version)
	return server.ListenAndServe(ctx)
}

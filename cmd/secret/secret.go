// Package secret provides commands for managing the encrypted git credential.
package secret

import (
	"fmt"
	"strings"

	"github.com/dockhand-cd/dockhand/app"
	"github.com/dockhand-cd/dockhand/cmd/output"
	"github.com/dockhand-cd/dockhand/secret"
	"github.com/spf13/cobra"
)

// NewCmdSecret creates the secret command group
func NewCmdSecret() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage the encrypted git credential",
		Long: `Manage the git access token stored encrypted in the data directory.
The token is encrypted with the master key from DOCKHAND_MASTER_KEY and
used to authenticate against a private deploy repository.`,
	}

	cmd.AddCommand(newCmdGenerateKey())
	cmd.AddCommand(newCmdSetToken())
	return cmd
}

func newCmdGenerateKey() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-key",
		Short: "Generate a new master key",
		Long: `Generate a random master key and print it. Set it as DOCKHAND_MASTER_KEY
before storing a token.`,
		// Key generation needs no configuration or state
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := secret.GenerateKey()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
}

func newCmdSetToken() *cobra.Command {
	return &cobra.Command{
		Use:   "set-token <token>",
		Short: "Store the git access token encrypted at rest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(args[0])
			if token == "" {
				return fmt.Errorf("token must not be empty")
			}

			if err := secret.StoreToken(app.GetConfig(), token); err != nil {
				return err
			}
			return output.FprintSuccess(cmd, "Token stored (%s)", output.MaskSecret(token))
		},
	}
}

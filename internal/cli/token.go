package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"prepsnap-quiz/internal/config"
)

// NewTokenCmd mints a bearer token accepted by the stub backend.
func NewTokenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <subject>",
		Short: "Mint a bearer token for the stub backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(*configPath)
			if err != nil {
				return err
			}
			token, err := newIssuer(cfg).Mint(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

package cli

import (
	"fmt"

	"github.com/nerdneilsfield/legal-simplifier/internal/config"
	"github.com/spf13/cobra"
)

func newInitConfigCommand() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "init-config",
		Short: "Write a config file with the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.SaveConfig(config.NewDefaultConfig(), output)
			if err != nil {
				return fmt.Errorf("failed to write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
			fmt.Fprintln(cmd.OutOrStdout(), "Set GOOGLE_API_KEY (or api_key) before running.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "O", "", "Destination (default ~/.legalsimplify.yaml)")
	return cmd
}

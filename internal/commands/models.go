package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/chatai/internal/logging"
)

// NewModelsCmd creates the command listing the server's models
func NewModelsCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.LoadConfig()
			if err != nil {
				return err
			}
			client, err := deps.NewClient(cfg, logging.New(cfg, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer client.Close()

			names, err := client.ListModels(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list models: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "MODEL\tDEFAULT")
			_, _ = fmt.Fprintln(w, "-----\t-------")
			for _, name := range names {
				isDefault := ""
				if name == cfg.DefaultModel {
					isDefault = "✓"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\n", name, isDefault)
			}
			return w.Flush()
		},
	}
}

package cli

import (
	"fmt"

	"github.com/kolkov/goaffected/affected"
	"github.com/spf13/cobra"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := affected.GetInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "goaffected version %s (strategy %s, hash %s)\n",
				info.Version, info.Strategy, info.Hash)
			return nil
		},
	}
}

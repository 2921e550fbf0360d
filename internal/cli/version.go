package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/skillrun/skillrun/internal/scripts"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the skillrun version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "skillrun %s\n", scripts.Version)
	},
}

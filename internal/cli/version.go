package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time using -ldflags.
var Version = "0.0.0-dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "soqlguard %s (API v%s)\n", Version, cfg.Salesforce.APIVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// These are set at build time via -ldflags.
var (
	VersionName = "dev"
	GitCommit   = "none"
	BuildDate   = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print tusrelay version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Version: %s\nCommit: %s\nDate: %s\n", VersionName, GitCommit, BuildDate)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Package cli implements the tusrelay command tree: a cobra root
// command wrapping the serve and version subcommands, with flags bound
// through viper so TUSRELAY_-prefixed environment variables and an
// optional config file can override them.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tusrelay",
	Short: "A resumable upload server implementing the tus protocol",
	Long: `tusrelay accepts resumable file uploads over HTTP following the tus
1.0 protocol, with pluggable metadata and payload storage backends and
a configurable hook notification fabric.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

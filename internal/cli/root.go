// Package cli implements the TouchGrass command-line interface using Cobra.
// "serve" runs the daemon; every other subcommand talks to a running
// daemon over its local HTTP API.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var apiAddr string

var rootCmd = &cobra.Command{
	Use:   "touchgrass",
	Short: "TouchGrass: break reminders that notice when you already took one",
	Long: `TouchGrass reminds you to step away from the screen on a fixed interval.
If you were already away from the keyboard long enough, the countdown
restarts instead of nagging you when you sit back down.

Start the daemon with "touchgrass serve", then control it with the
other commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiAddr, "addr", "", "Daemon address host:port (default from config)")
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version
	buildVersion = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var buildVersion = "dev"

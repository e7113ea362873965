package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
	ephemeral  bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "streak",
	Short: "streak - persistent streak timer",
	Long: `streak counts the seconds since the streak was last reset and keeps the
count across restarts. It serves the counter as a web page and JSON API, and
can render it in the terminal.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to server command when no subcommand is provided
		return runServer(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/streak/config.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "Keep the counter in memory only")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

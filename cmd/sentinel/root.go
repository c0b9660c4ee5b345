package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Sentinel - image moderation gateway",
	Long: `Sentinel is an HTTP gateway in front of an image classification backend.

It provides:
  - Detection and nudity-check endpoints over a local inference service
  - Dual-keyspace moving-window rate limiting (per IP, per API token)
  - API token issuance and management backed by SQLite
  - A session-guarded reverse proxy onto the host's netdata dashboard
  - A single-leader background monitor that pushes stress alerts`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

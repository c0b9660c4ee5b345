package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenhq/sentinel/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load a configuration file, apply defaults and environment overrides,
and report any validation errors without starting the server.

Examples:
  sentinel validate
  sentinel validate --config /etc/sentinel/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("%s: configuration valid\n", cfgFile)
		fmt.Printf("  listen:          %s\n", cfg.Server.ListenAddress)
		fmt.Printf("  detector:        %s\n", cfg.Detector.BaseURL)
		fmt.Printf("  limits backend:  %s (%d ip / %d token per %ds)\n",
			cfg.Limits.Backend, cfg.Limits.IPPerWindow, cfg.Limits.TokenPerWindow, cfg.Limits.WindowSeconds)
		fmt.Printf("  netdata mount:   %s -> %s\n", cfg.Netdata.MountPrefix, cfg.Netdata.BaseURL)
		fmt.Printf("  monitor:         enabled=%v\n", cfg.Monitor.Enabled)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// Package cli implements the axios command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oki-dokii/Axios-Blockchain-sub000/internal/daemon"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "axiosd",
	Short: "Environmental action verification backend",
	Long: `axiosd is the backend for the Axios environmental action dashboard.
It records claimed actions, drives reviewer decisions, mirrors verified
actions onto the carbon-credit ledger, and aggregates the ledger's live
event stream for role-scoped dashboards.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default ~/.axios/config.toml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func loadConfig() (daemon.Config, error) {
	path := configPath
	if path == "" {
		path = daemon.ConfigPath()
	}
	return daemon.Load(path)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the axiosd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(os.Stdout, "axiosd 0.1.0")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "config file:   %s\n", daemon.ConfigPath())
		fmt.Fprintf(os.Stdout, "listen:        %s\n", cfg.API.Addr())
		fmt.Fprintf(os.Stdout, "ledger:        %s\n", cfg.Ledger.GatewayURL)
		fmt.Fprintf(os.Stdout, "confirm wait:  %s\n", cfg.ConfirmTimeout())
		fmt.Fprintf(os.Stdout, "feed capacity: %d\n", cfg.Feed.Capacity)
		return nil
	},
}

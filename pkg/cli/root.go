// Package cli implements the oasmock command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the persistent --config flag shared by subcommands.
	configPath string

	// Version is injected during build.
	Version = "dev"
	// Commit is injected during build.
	Commit = "none"
	// BuildDate is injected during build.
	BuildDate = "unknown"
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "oasmock",
	Short: "oasmock serves a mock API generated from OpenAPI documents",
	Long: `oasmock turns one or more OpenAPI documents into a running mock API server
with an in-memory data store, custom JavaScript handlers, seed data, fault
injection, and a WebSocket inspection protocol for live tooling.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main, after build-time
// version variables are assigned.
func Execute() {
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, BuildDate)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "oasmock.yaml", "Configuration file path")
}

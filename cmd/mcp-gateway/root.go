package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "unknown"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "mcp-gateway",
	Short: "HTTP gateway for MCP tool servers",
	Long: `mcp-gateway fronts a set of upstream MCP tool servers behind a single
HTTP surface, supervising command-kind upstreams with a restart policy and
aggregating health across command, streamable_http, and sse upstreams.

Run 'mcp-gateway serve' to start it.`,
	Version: fmt.Sprintf("%s (commit: %s)", version, commit),
}

func init() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Path to config file (default: ~/.config/mcp-gateway/config.json)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

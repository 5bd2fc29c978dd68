// Package cmd implements the host binary's CLI surface: a cobra root
// command carrying the shared vault/index/mode/timeout/retries/verbose
// flags (§6), with server/version/healthcheck subcommands. Grounded in the
// teacher's cmd/root.go (a bare cobra.Command plus an Execute entry point)
// generalized from obsidian-cli's target-name argument rewriting to this
// server's simpler "no subcommand means server" default.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atomicobject/vaultmcp/pkg/config"
)

var rootConfig = config.Defaults()

var rootCmd = &cobra.Command{
	Use:     "vaultmcp",
	Short:   "vaultmcp - an MCP server for a file-backed personal knowledge base",
	Version: "v0.1.0",
	Long: `vaultmcp exposes a local, Markdown-plus-front-matter vault as a set of
Model Context Protocol tools (note CRUD, full-text search, link-graph
queries, and housekeeping) speaking line-delimited JSON-RPC 2.0 over
stdin/stdout.

With no subcommand, the server starts directly.`,
	RunE: func(c *cobra.Command, args []string) error {
		return runServer(c.Context())
	},
}

// Execute runs the root command, exiting non-zero on failure. Mirrors the
// teacher's cmd.Execute entry point.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vaultmcp: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfig.VaultPath, "vault", "", "path to the vault directory (required)")
	rootCmd.PersistentFlags().StringVar(&rootConfig.IndexPath, "index", "", "path to the SQLite search index (defaults to <vault>/.vaultmcp/index.db)")
	rootCmd.PersistentFlags().StringVar((*string)(&rootConfig.Mode), "mode", string(config.ModeDev), "run mode: dev or prod (controls log format)")
	rootCmd.PersistentFlags().DurationVar(&rootConfig.Timeout, "timeout", rootConfig.Timeout, "per-tool-call execution policy timeout")
	rootCmd.PersistentFlags().IntVar(&rootConfig.Retries, "retries", rootConfig.Retries, "per-tool-call bounded retry count")
	rootCmd.PersistentFlags().BoolVar(&rootConfig.Verbose, "verbose", false, "enable debug-level logging")
}

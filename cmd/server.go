package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/atomicobject/vaultmcp/pkg/config"
	"github.com/atomicobject/vaultmcp/pkg/execpolicy"
	"github.com/atomicobject/vaultmcp/pkg/ids"
	"github.com/atomicobject/vaultmcp/pkg/mcp"
	"github.com/atomicobject/vaultmcp/pkg/mcptools"
	"github.com/atomicobject/vaultmcp/pkg/recovery"
	"github.com/atomicobject/vaultmcp/pkg/vaulterr"
	"github.com/atomicobject/vaultmcp/pkg/vaultwatch"
)

// serverCmd is the explicit alias for "no subcommand given" per §6 (root,
// server, version, and healthcheck are all root-level aliases).
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the MCP server over stdio (default if no subcommand is given)",
	RunE: func(c *cobra.Command, args []string) error {
		return runServer(c.Context())
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

// resolveConfig layers environment defaults under the already-bound CLI
// flags and validates the vault path is present, deriving a default index
// path under the vault's own .vaultmcp directory when none was given.
func resolveConfig() (config.Config, error) {
	cfg := rootConfig
	cfg = cfg.ApplyEnv()

	if cfg.VaultPath == "" {
		return cfg, vaulterr.New(vaulterr.VaultPathError, "--vault is required")
	}
	abs, err := filepath.Abs(cfg.VaultPath)
	if err != nil {
		return cfg, vaulterr.Wrap(vaulterr.VaultPathError, "resolving vault path", err)
	}
	cfg.VaultPath = abs

	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.VaultPath, ".vaultmcp", "index.db")
	}
	return cfg, nil
}

// newLogger builds a zerolog logger writing to stderr (stdout is reserved
// for the MCP JSON-RPC stream), grounded in the teacher pack's
// console-writer-in-dev/JSON-in-prod split (cuemby-warren's pkg/log).
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Mode == config.ModeProd {
		return zerolog.New(os.Stderr).With().Timestamp().Str("service", "vaultmcp").Logger()
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// buildExecutionContext assembles the shared mcptools.ExecutionContext from
// a resolved Config: the execution policy (F) and the recovery-queue
// options (G) both come straight off the CLI/env-resolved Config.
func buildExecutionContext(cfg config.Config, logger zerolog.Logger) *mcptools.ExecutionContext {
	policy := execpolicy.Policy{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.Retries,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		OnRetry: func(info execpolicy.RetryInfo) {
			logger.Debug().Int("attempt", info.Attempt).Err(info.Error).Msg("tool.retry")
		},
	}
	recoveryOpts := recovery.Options{
		WorkerInterval: cfg.RecoveryWorkerInterval,
		BaseDelay:      cfg.RecoveryBaseDelay,
		MaxRetries:     cfg.RecoveryMaxRetries,
		Logger:         logger.With().Str("component", "recovery").Logger(),
	}
	return mcptools.NewExecutionContext(cfg.VaultPath, cfg.IndexPath, policy, logger, recoveryOpts)
}

// runServer resolves configuration, wires the shared execution context and
// dispatcher, registers the tool catalog onto an mcp-go stdio server, and
// serves until stdin closes.
func runServer(ctx context.Context) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return vaulterr.Wrap(vaulterr.ConfigError, "creating index directory", err)
	}

	ec := buildExecutionContext(cfg, logger)
	defer ec.Close()

	dispatcher := mcptools.NewDispatcher(ec, mcptools.Catalog())

	watchLogger := logger.With().Str("component", "vaultwatch").Logger()
	watch, err := vaultwatch.New(cfg.VaultPath, nil, ec.Queue(), externalEditUID(ec), watchLogger)
	if err != nil {
		logger.Warn().Err(err).Msg("vault watcher unavailable; external edits will not be auto-reindexed")
	} else {
		watch.Start(ctx)
		defer watch.Stop()
	}

	s := server.NewMCPServer(
		"vaultmcp",
		rootCmd.Version,
		server.WithToolCapabilities(false),
		server.WithInstructions(serverInstructions),
	)

	if err := mcp.RegisterAll(s, mcp.Config{
		Dispatcher:    dispatcher,
		ServerName:    "vaultmcp",
		ServerVersion: rootCmd.Version,
		Instructions:  serverInstructions,
	}); err != nil {
		return vaulterr.Wrap(vaulterr.MCPProtocolError, "registering tools", err)
	}
	mcp.AddBuiltinResources(s)

	logger.Info().
		Str("vault", cfg.VaultPath).
		Str("index", cfg.IndexPath).
		Str("mode", string(cfg.Mode)).
		Msg("starting vaultmcp server")

	if err := server.ServeStdio(s); err != nil {
		return vaulterr.Wrap(vaulterr.MCPProtocolError, "serving stdio", err)
	}
	return nil
}

const serverInstructions = `This server exposes a Markdown-plus-front-matter personal knowledge base as Model Context Protocol tools. See the "Personal Knowledge Base Agent Guide" resource for the full tool catalog.`

// externalEditUID adapts vaultwatch.UIDExtractor to the note store: a file
// changed outside a tool call is resolved to its front-matter id by loading
// it in non-strict mode, so a malformed file is simply skipped rather than
// reported as a watcher error. A file that no longer exists (removed or
// renamed away) is resolved from the UID suffix of its filename instead.
func externalEditUID(ec *mcptools.ExecutionContext) vaultwatch.UIDExtractor {
	return func(path string) (string, bool) {
		note, _, err := ec.Store.Load(path)
		if err != nil {
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				if i := strings.LastIndex(base, "-"); i >= 0 && ids.Valid(base[i+1:]) {
					return base[i+1:], true
				}
			}
			return "", false
		}
		if note.ID == "" {
			return "", false
		}
		return note.ID, true
	}
}

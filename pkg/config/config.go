// Package config resolves the server's root-level configuration: vault
// path, index path, mode, and execution-policy defaults. CLI flags take
// precedence; environment variables supply defaults when a flag was not
// set explicitly, mirroring the teacher's layered config resolution in
// pkg/obsidian's path/target helpers (CLI input first, persisted/external
// default second).
package config

import (
	"os"
	"strconv"
	"time"
)

// Mode selects the logging format: console-writer in dev, JSON in prod.
type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

// Config is the fully resolved root configuration shared by every
// subcommand.
type Config struct {
	VaultPath string
	IndexPath string
	Mode      Mode
	Timeout   time.Duration
	Retries   int
	Verbose   bool

	RecoveryMaxRetries        int
	RecoveryBaseDelay         time.Duration
	RecoveryWorkerInterval    time.Duration
}

// Defaults returns the baseline configuration before flags/env are applied.
func Defaults() Config {
	return Config{
		Mode:                   ModeDev,
		Timeout:                5 * time.Second,
		Retries:                2,
		RecoveryMaxRetries:     5,
		RecoveryBaseDelay:      1 * time.Second,
		RecoveryWorkerInterval: 2 * time.Second,
	}
}

// ApplyEnv overlays environment-variable defaults for anything the caller
// left unset (per §6: RECOVERY_MAX_RETRIES, RECOVERY_BASE_DELAY_MS,
// RECOVERY_WORKER_INTERVAL_MS, plus a log level and search-default knobs
// are recognized but owned by their respective packages). Flags set
// explicitly on the command line always win; ApplyEnv should run before
// flag overrides are copied in.
func (c Config) ApplyEnv() Config {
	if v, ok := envInt("RECOVERY_MAX_RETRIES"); ok {
		c.RecoveryMaxRetries = v
	}
	if v, ok := envInt("RECOVERY_BASE_DELAY_MS"); ok {
		c.RecoveryBaseDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := envInt("RECOVERY_WORKER_INTERVAL_MS"); ok {
		c.RecoveryWorkerInterval = time.Duration(v) * time.Millisecond
	}
	return c
}

// LogLevel resolves the zerolog level name from LOG_LEVEL, defaulting to
// "info" (or "debug" when Verbose is set).
func (c Config) LogLevel() string {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		return v
	}
	if c.Verbose {
		return "debug"
	}
	return "info"
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(name)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

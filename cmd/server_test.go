package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atomicobject/vaultmcp/pkg/config"
)

func resetRootConfig(t *testing.T) {
	t.Helper()
	prev := rootConfig
	rootConfig = config.Defaults()
	t.Cleanup(func() { rootConfig = prev })
}

func TestResolveConfig_RequiresVaultPath(t *testing.T) {
	resetRootConfig(t)
	_, err := resolveConfig()
	require.Error(t, err)
}

func TestResolveConfig_DerivesDefaultIndexPathUnderVault(t *testing.T) {
	resetRootConfig(t)
	rootConfig.VaultPath = t.TempDir()

	cfg, err := resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.VaultPath, ".vaultmcp", "index.db"), cfg.IndexPath)
}

func TestResolveConfig_HonorsExplicitIndexPath(t *testing.T) {
	resetRootConfig(t)
	rootConfig.VaultPath = t.TempDir()
	rootConfig.IndexPath = filepath.Join(t.TempDir(), "custom.db")

	cfg, err := resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, rootConfig.IndexPath, cfg.IndexPath)
}

func TestResolveConfig_AppliesEnvOverlay(t *testing.T) {
	resetRootConfig(t)
	rootConfig.VaultPath = t.TempDir()
	t.Setenv("RECOVERY_MAX_RETRIES", "9")

	cfg, err := resolveConfig()
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.RecoveryMaxRetries)
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaults_SetsBaselineValues(t *testing.T) {
	c := Defaults()
	assert.Equal(t, ModeDev, c.Mode)
	assert.Equal(t, 5*time.Second, c.Timeout)
	assert.Equal(t, 2, c.Retries)
	assert.Equal(t, 5, c.RecoveryMaxRetries)
}

func TestApplyEnv_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("RECOVERY_MAX_RETRIES", "9")
	t.Setenv("RECOVERY_BASE_DELAY_MS", "250")
	t.Setenv("RECOVERY_WORKER_INTERVAL_MS", "4000")

	c := Defaults().ApplyEnv()
	assert.Equal(t, 9, c.RecoveryMaxRetries)
	assert.Equal(t, 250*time.Millisecond, c.RecoveryBaseDelay)
	assert.Equal(t, 4*time.Second, c.RecoveryWorkerInterval)
}

func TestApplyEnv_LeavesDefaultsWhenUnset(t *testing.T) {
	c := Defaults().ApplyEnv()
	assert.Equal(t, Defaults().RecoveryMaxRetries, c.RecoveryMaxRetries)
}

func TestLogLevel_VerboseImpliesDebug(t *testing.T) {
	c := Defaults()
	c.Verbose = true
	assert.Equal(t, "debug", c.LogLevel())
}

func TestLogLevel_EnvOverridesVerbose(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	c := Defaults()
	c.Verbose = true
	assert.Equal(t, "warn", c.LogLevel())
}

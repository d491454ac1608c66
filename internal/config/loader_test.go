package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)

	assert.Equal(t, "place", cfg.Mode)
	assert.Equal(t, 4, cfg.Trade.QtyTarget)
	assert.Equal(t, 0.05, cfg.Ladder.Tick)
	assert.Equal(t, 2.10, cfg.Ladder.CreditStart)
	assert.Equal(t, 1.90, cfg.Ladder.CreditFloor)
	assert.Equal(t, 12*time.Second, cfg.Ladder.PollInterval.Duration)
	assert.Equal(t, 240*time.Second, cfg.Ladder.MaxSession.Duration)
	assert.Equal(t, "memory", cfg.Lease.Backend)
	assert.Equal(t, "SPXW", cfg.Signal.OptionRoot)
	assert.Equal(t, 5, cfg.Signal.Width)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
mode = "guard"
log_level = "debug"

[trade]
qty_target = 2
dry_run = true

[ladder]
poll_interval = "5s"

[lease]
backend = "redis"

[redis]
addr = "localhost:6379"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "guard", cfg.Mode)
	assert.Equal(t, 2, cfg.Trade.QtyTarget)
	assert.True(t, cfg.Trade.DryRun)
	assert.Equal(t, 5*time.Second, cfg.Ladder.PollInterval.Duration)
	assert.Equal(t, "redis", cfg.Lease.Backend)
	// Untouched sections keep defaults.
	assert.Equal(t, 2.10, cfg.Ladder.CreditStart)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
[trade]
qty_target = 2
`)
	t.Setenv("CONDOR_TRADE_QTY_TARGET", "7")
	t.Setenv("CONDOR_MODE", "guard")
	t.Setenv("CONDOR_LADDER_POLL_INTERVAL", "3s")
	t.Setenv("CONDOR_TRADE_DRY_RUN", "true")
	t.Setenv("CONDOR_BROKER_ORDER_WINDOW", "6h")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Trade.QtyTarget)
	assert.Equal(t, "guard", cfg.Mode)
	assert.Equal(t, 3*time.Second, cfg.Ladder.PollInterval.Duration)
	assert.True(t, cfg.Trade.DryRun)
	assert.Equal(t, 6*time.Hour, cfg.Broker.OrderWindow.Duration)
}

func TestEffectiveTarget(t *testing.T) {
	tr := Trade{QtyTarget: 4}
	assert.Equal(t, 4, tr.EffectiveTarget())
	tr.QtyOverride = 1
	assert.Equal(t, 1, tr.EffectiveTarget())
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	valid.Broker.AccessToken = "tok"
	valid.Signal.Token = "tok"

	t.Run("ok", func(t *testing.T) {
		require.NoError(t, valid.Validate())
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown mode", func(c *Config) { c.Mode = "yolo" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"missing broker token", func(c *Config) { c.Broker.AccessToken = "" }},
		{"missing signal auth", func(c *Config) { c.Signal.Token = ""; c.Signal.Email = "" }},
		{"zero target", func(c *Config) { c.Trade.QtyTarget = 0 }},
		{"negative order window", func(c *Config) { c.Broker.OrderWindow = Duration{-time.Hour} }},
		{"redis lease without addr", func(c *Config) { c.Lease.Backend = "redis" }},
		{"unknown lease backend", func(c *Config) { c.Lease.Backend = "etcd" }},
		{"archive without postgres", func(c *Config) { c.Mode = "archive" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestRedacted(t *testing.T) {
	cfg := Defaults()
	cfg.Broker.AccessToken = "supersecret"
	cfg.Postgres.Password = "hunter2"

	red := cfg.Redacted()
	assert.Equal(t, "[redacted]", red.Broker.AccessToken)
	assert.Equal(t, "[redacted]", red.Postgres.Password)
	assert.Empty(t, red.Signal.Password, "unset secrets stay empty")
	// Original untouched.
	assert.Equal(t, "supersecret", cfg.Broker.AccessToken)
}

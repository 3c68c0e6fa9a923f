package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subledger/tier"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
store:
  backend: sqlite
  dsn: /var/lib/subledger.db
limits:
  gold: 5
table_format: csv
log_level: debug
`), 0o600))

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, "/var/lib/subledger.db", cfg.Store.DSN)
	assert.Equal(t, FormatCSV, cfg.TableFormat)
	assert.Equal(t, "debug", cfg.LogLevel)

	limits, err := cfg.TierLimits()
	require.NoError(t, err)
	assert.Equal(t, 5, limits[tier.Gold])
	assert.Equal(t, 100, limits[tier.Free])
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUBLEDGER_LIMIT_PREMIUM=7\n"), 0o600))

	t.Setenv("SUBLEDGER_STORE_PATH", filepath.Join(dir, "c.csv"))
	t.Setenv("SUBLEDGER_LIMIT_PREMIUM", "")
	os.Unsetenv("SUBLEDGER_LIMIT_PREMIUM") //nolint:errcheck // restored by Setenv cleanup

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "c.csv"), cfg.Store.Path)

	limits, err := cfg.TierLimits()
	require.NoError(t, err)
	assert.Equal(t, 7, limits[tier.Premium])
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SUBLEDGER_STORE_BACKEND":         "postgres",
		"SUBLEDGER_STORE_DSN":             "postgres://localhost/subledger",
		"SUBLEDGER_STORE_DISABLE_MIGRATE": "true",
		"SUBLEDGER_LIMIT_FREE":            "-1",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	cfg := DefaultConfig()
	require.NoError(t, cfg.ApplyEnv(lookup))
	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.True(t, cfg.Store.DisableMigrate)
	assert.Equal(t, -1, cfg.Limits["FREE"])
	require.NoError(t, cfg.Validate())
}

func TestApplyEnvRejectsBadNumbers(t *testing.T) {
	lookup := func(k string) (string, bool) {
		if k == "SUBLEDGER_LIMIT_GOLD" {
			return "lots", true
		}
		return "", false
	}
	cfg := DefaultConfig()
	assert.Error(t, cfg.ApplyEnv(lookup))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "redis" }},
		{"textfile without path", func(c *Config) { c.Store.Path = "" }},
		{"sqlite without dsn", func(c *Config) { c.Store.Backend = BackendSQLite }},
		{"unknown format", func(c *Config) { c.TableFormat = "ods" }},
		{"unknown tier limit", func(c *Config) { c.Limits = map[string]int{"PLATINUM": 1} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

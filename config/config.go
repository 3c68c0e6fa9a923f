// Package config loads subledger settings from a YAML file, an optional
// .env file and SUBLEDGER_* environment variables, in that order of
// increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/xraph/subledger/tier"
)

// Store backend names.
const (
	BackendTextFile = "textfile"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

// Table formats for bulk import/export.
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SUBLEDGER_"

// Config is the full runtime configuration.
type Config struct {
	Store StoreConfig `json:"store" mapstructure:"store" yaml:"store"`

	// Limits overrides the monthly enrollment limit per tier tag
	// (FREE, PREMIUM, GOLD). Missing tiers keep their defaults.
	Limits map[string]int `json:"limits,omitempty" mapstructure:"limits" yaml:"limits,omitempty"`

	// TableFormat selects the bulk import/export codec (default: xlsx).
	TableFormat string `json:"table_format" mapstructure:"table_format" yaml:"table_format"`

	// LogLevel is one of debug, info, warn, error (default: info).
	LogLevel string `json:"log_level" mapstructure:"log_level" yaml:"log_level"`
}

// StoreConfig selects and parameterizes the persistence backend.
type StoreConfig struct {
	// Backend is one of textfile, memory, sqlite, postgres, mongo.
	Backend string `json:"backend" mapstructure:"backend" yaml:"backend"`

	// Path is the customer file for the textfile backend.
	Path string `json:"path" mapstructure:"path" yaml:"path"`

	// ProjectionPath is where the textfile backend writes the name/tier
	// projection. Defaults to a file next to Path.
	ProjectionPath string `json:"projection_path" mapstructure:"projection_path" yaml:"projection_path"`

	// QuotaPath is where the textfile backend keeps the monthly quota
	// window. Defaults to a file next to Path.
	QuotaPath string `json:"quota_path" mapstructure:"quota_path" yaml:"quota_path"`

	// DSN is the database file (sqlite), connection string (postgres) or
	// URI (mongo).
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// Database is the MongoDB database name.
	Database string `json:"database" mapstructure:"database" yaml:"database"`

	// DisableMigrate skips schema creation when the store is opened.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendTextFile,
			Path:    "customers.csv",
		},
		TableFormat: FormatXLSX,
		LogLevel:    "info",
	}
}

// Load reads path (if non-empty) over the defaults, then applies the .env
// file at envFile (if it exists) and SUBLEDGER_* variables. The result is
// validated.
func Load(path, envFile string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if envFile != "" {
		// godotenv never overrides variables that are already set.
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return cfg, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from SUBLEDGER_* variables resolved by lookup.
// Per-tier limits use SUBLEDGER_LIMIT_<TIER>.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	str("STORE_BACKEND", &c.Store.Backend)
	str("STORE_PATH", &c.Store.Path)
	str("STORE_PROJECTION_PATH", &c.Store.ProjectionPath)
	str("STORE_QUOTA_PATH", &c.Store.QuotaPath)
	str("STORE_DSN", &c.Store.DSN)
	str("STORE_DATABASE", &c.Store.Database)
	str("TABLE_FORMAT", &c.TableFormat)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(EnvPrefix + "STORE_DISABLE_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: %sSTORE_DISABLE_MIGRATE: %w", EnvPrefix, err)
		}
		c.Store.DisableMigrate = b
	}

	for _, t := range tier.All() {
		key := EnvPrefix + "LIMIT_" + t.String()
		v, ok := lookup(key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		if c.Limits == nil {
			c.Limits = make(map[string]int)
		}
		c.Limits[t.String()] = n
	}
	return nil
}

// Validate checks the backend, format and limits.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendTextFile:
		if c.Store.Path == "" {
			return errors.New("config: store.path is required for the textfile backend")
		}
	case BackendSQLite, BackendPostgres, BackendMongo:
		if c.Store.DSN == "" {
			return fmt.Errorf("config: store.dsn is required for the %s backend", c.Store.Backend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	switch strings.ToLower(c.TableFormat) {
	case FormatXLSX, FormatCSV:
	default:
		return fmt.Errorf("config: unknown table format %q", c.TableFormat)
	}

	if _, err := c.TierLimits(); err != nil {
		return err
	}
	return nil
}

// TierLimits returns the default per-tier limits with configured overrides
// applied. A negative limit means unlimited.
func (c Config) TierLimits() (map[tier.Tier]int, error) {
	limits := tier.DefaultLimits()
	for tag, n := range c.Limits {
		t, err := tier.Parse(tag)
		if err != nil {
			return nil, fmt.Errorf("config: limits: %w", err)
		}
		limits[t] = n
	}
	return limits, nil
}

package extension

import (
	"github.com/xraph/subledger/config"
)

// Config holds the Subledger extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.subledger" or "subledger" keys).
type Config struct {
	// Store selects the persistence backend (default: textfile customers.csv).
	Store config.StoreConfig `json:"store" mapstructure:"store" yaml:"store"`

	// Limits overrides the monthly enrollment limit per tier tag.
	Limits map[string]int `json:"limits" mapstructure:"limits" yaml:"limits"`

	// TableFormat selects the import/export codec, xlsx or csv (default: xlsx).
	TableFormat string `json:"table_format" mapstructure:"table_format" yaml:"table_format"`

	// DisableMigrate prevents schema creation on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	defaults := config.DefaultConfig()
	return Config{
		Store:       defaults.Store,
		TableFormat: defaults.TableFormat,
	}
}

// runtime converts c into the package-level config for validation.
func (c Config) runtime() config.Config {
	return config.Config{
		Store:       c.Store,
		Limits:      c.Limits,
		TableFormat: c.TableFormat,
		LogLevel:    "info",
	}
}

package extension

import (
	"github.com/xraph/subledger"
	"github.com/xraph/subledger/config"
	"github.com/xraph/subledger/plugin"
	"github.com/xraph/subledger/store"
)

// Option configures the Subledger Forge extension.
type Option func(*Extension)

// WithStore sets the store for the ledger. When unset the store is opened
// from the configured backend.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithLedgerOption passes a subledger.Option through to the underlying ledger.
func WithLedgerOption(opt subledger.Option) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, opt)
	}
}

// WithPlugin registers a ledger plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.ledgerOpts = append(e.ledgerOpts, subledger.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithStoreConfig sets the store backend configuration.
func WithStoreConfig(sc config.StoreConfig) Option {
	return func(e *Extension) { e.config.Store = sc }
}

// WithLimits overrides monthly enrollment limits per tier tag.
func WithLimits(limits map[string]int) Option {
	return func(e *Extension) { e.config.Limits = limits }
}

// WithTableFormat selects the import/export codec.
func WithTableFormat(format string) Option {
	return func(e *Extension) { e.config.TableFormat = format }
}

// WithDisableMigrate prevents schema creation on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

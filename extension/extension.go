// Package extension provides the Forge extension adapter for Subledger.
//
// It implements the forge.Extension interface to integrate the ledger
// into a Forge application with DI registration and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.subledger" or
// "subledger" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/subledger"
	"github.com/xraph/subledger/store"
	"github.com/xraph/subledger/store/backend"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "subledger"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription ledger with tiered quotas"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Subledger as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	ledger     *subledger.Ledger
	store      store.Store
	ledgerOpts []subledger.Option
}

// New creates a new Subledger Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ledger returns the underlying Ledger instance.
// This is nil until Register is called.
func (e *Extension) Ledger() *subledger.Ledger { return e.ledger }

// Register implements [forge.Extension]. It loads configuration,
// opens the store, and registers the ledger in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	opts, err := e.buildLedgerOpts()
	if err != nil {
		return err
	}

	// Open the configured backend if no store was provided programmatically.
	// The ledger migrates on Start.
	if e.store == nil {
		sc := e.config.Store
		sc.DisableMigrate = true
		s, err := backend.Open(context.Background(), sc)
		if err != nil {
			return err
		}
		e.store = s
	}

	e.ledger = subledger.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*subledger.Ledger, error) {
		return e.ledger, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.ledger == nil {
		return errors.New("subledger: extension not initialized")
	}

	if err := e.ledger.Start(ctx); err != nil {
		return err
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.ledger != nil {
		if err := e.ledger.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("subledger: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildLedgerOpts constructs subledger.Option values from the resolved config.
func (e *Extension) buildLedgerOpts() ([]subledger.Option, error) {
	cfg := e.config.runtime()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limits, err := cfg.TierLimits()
	if err != nil {
		return nil, err
	}
	codec, err := backend.TableCodec(cfg.TableFormat)
	if err != nil {
		return nil, err
	}

	opts := make([]subledger.Option, 0, len(e.ledgerOpts)+3)
	opts = append(opts,
		subledger.WithLimits(limits),
		subledger.WithTableCodec(codec),
	)
	if e.config.DisableMigrate {
		opts = append(opts, subledger.WithSkipMigrate())
	}

	// Append any pass-through ledger options.
	opts = append(opts, e.ledgerOpts...)

	return opts, nil
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("subledger: configuration is required but not found in config files; " +
				"ensure 'extensions.subledger' or 'subledger' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("subledger: configuration loaded",
		forge.F("store_backend", e.config.Store.Backend),
		forge.F("store_path", e.config.Store.Path),
		forge.F("table_format", e.config.TableFormat),
		forge.F("limits", e.config.Limits),
		forge.F("disable_migrate", e.config.DisableMigrate),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.subledger", "subledger"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("subledger: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("subledger: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = defaults.Store.Backend
	}
	if cfg.Store.Backend == defaults.Store.Backend && cfg.Store.Path == "" {
		cfg.Store.Path = defaults.Store.Path
	}
	if cfg.TableFormat == "" {
		cfg.TableFormat = defaults.TableFormat
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
		}
	}
	fill(&yamlConfig.Store.Backend, programmaticConfig.Store.Backend)
	fill(&yamlConfig.Store.Path, programmaticConfig.Store.Path)
	fill(&yamlConfig.Store.ProjectionPath, programmaticConfig.Store.ProjectionPath)
	fill(&yamlConfig.Store.QuotaPath, programmaticConfig.Store.QuotaPath)
	fill(&yamlConfig.Store.DSN, programmaticConfig.Store.DSN)
	fill(&yamlConfig.Store.Database, programmaticConfig.Store.Database)
	fill(&yamlConfig.TableFormat, programmaticConfig.TableFormat)

	// Limits: programmatic entries fill tiers the YAML leaves out.
	for tag, n := range programmaticConfig.Limits {
		if yamlConfig.Limits == nil {
			yamlConfig.Limits = make(map[string]int, len(programmaticConfig.Limits))
		}
		if _, ok := yamlConfig.Limits[tag]; !ok {
			yamlConfig.Limits[tag] = n
		}
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}

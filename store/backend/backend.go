// Package backend opens the store.Store named by a config.StoreConfig and
// the table.Codec named by a table format.
package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/subledger/config"
	ledgerstore "github.com/xraph/subledger/store"
	"github.com/xraph/subledger/store/memory"
	"github.com/xraph/subledger/store/mongo"
	"github.com/xraph/subledger/store/postgres"
	"github.com/xraph/subledger/store/sqlite"
	"github.com/xraph/subledger/store/textfile"
	"github.com/xraph/subledger/table"
	"github.com/xraph/subledger/table/csvtable"
	"github.com/xraph/subledger/table/xlsx"
)

// Open constructs the configured backend and, unless disabled, migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (ledgerstore.Store, error) {
	s, err := construct(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.DisableMigrate {
		return s, nil
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close() //nolint:errcheck // migrate error takes precedence
		return nil, err
	}
	return s, nil
}

func construct(ctx context.Context, cfg config.StoreConfig) (ledgerstore.Store, error) {
	switch cfg.Backend {
	case config.BackendTextFile, "":
		var opts []textfile.Option
		if cfg.ProjectionPath != "" {
			opts = append(opts, textfile.WithProjectionPath(cfg.ProjectionPath))
		}
		if cfg.QuotaPath != "" {
			opts = append(opts, textfile.WithQuotaPath(cfg.QuotaPath))
		}
		return textfile.New(cfg.Path, opts...), nil
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendSQLite:
		return sqlite.Open(ctx, cfg.DSN)
	case config.BackendPostgres:
		return postgres.Open(ctx, cfg.DSN)
	case config.BackendMongo:
		return mongo.Open(ctx, cfg.DSN, cfg.Database)
	default:
		return nil, fmt.Errorf("subledger/backend: unknown store backend %q", cfg.Backend)
	}
}

// TableCodec returns the bulk import/export codec for format.
func TableCodec(format string) (table.Codec, error) {
	switch strings.ToLower(format) {
	case config.FormatXLSX, "":
		return xlsx.New(), nil
	case config.FormatCSV:
		return csvtable.New(), nil
	default:
		return nil, fmt.Errorf("subledger/backend: unknown table format %q", format)
	}
}

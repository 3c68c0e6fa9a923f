// Package sqlite stores the ledger in a SQLite database through grove and
// its pure-Go sqlitedriver.
package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate" // registers the sqlite migration executor
	"github.com/xraph/grove/migrate"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
)

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// Open opens (or creates) the database at dsn. Use ":memory:" for a
// throwaway database. A single connection serializes writes and keeps
// in-memory databases alive.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn != ":memory:" {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=busy_timeout(5000)"
	}

	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("subledger/sqlite: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close() //nolint:errcheck // open error takes precedence
		return nil, fmt.Errorf("subledger/sqlite: %w", err)
	}
	return New(db), nil
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate runs the ledger migrations.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("subledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) LoadCustomers(ctx context.Context) ([]*customer.Customer, error) {
	var models []customerModel
	err := s.sdb.NewSelect(&models).
		OrderExpr("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("subledger/sqlite: load customers: %w", err)
	}

	out := make([]*customer.Customer, 0, len(models))
	for i := range models {
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("subledger/sqlite: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// ReplaceCustomers swaps the stored collection in one transaction.
func (s *Store) ReplaceCustomers(ctx context.Context, customers []*customer.Customer) error {
	models := make([]customerModel, 0, len(customers))
	for i, c := range customers {
		models = append(models, toCustomerModel(i, c))
	}

	err := s.inTx(ctx, func(tx *sqlitedriver.SqliteTx) error {
		if _, err := tx.NewDelete((*customerModel)(nil)).Exec(ctx); err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		_, err := tx.NewInsert(&models).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("subledger/sqlite: replace customers: %w", err)
	}
	return nil
}

// ==================== Projection ====================

func (s *Store) WriteProjection(ctx context.Context, rows []customer.Projection) error {
	models := make([]projectionModel, 0, len(rows))
	for i, r := range rows {
		models = append(models, projectionModel{Position: i, Username: r.Name, SubscriptionType: r.Tier.String()})
	}

	err := s.inTx(ctx, func(tx *sqlitedriver.SqliteTx) error {
		if _, err := tx.NewDelete((*projectionModel)(nil)).Exec(ctx); err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		_, err := tx.NewInsert(&models).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("subledger/sqlite: write projection: %w", err)
	}
	return nil
}

// ==================== Quota ====================

func (s *Store) LoadQuota(ctx context.Context) (quota.State, error) {
	var models []quotaModel
	if err := s.sdb.NewSelect(&models).Scan(ctx); err != nil {
		return quota.State{}, fmt.Errorf("subledger/sqlite: load quota: %w", err)
	}
	if len(models) == 0 {
		return quota.State{}, ledgerstore.ErrNoData
	}
	st, err := fromQuotaModels(models)
	if err != nil {
		return quota.State{}, fmt.Errorf("subledger/sqlite: %w", err)
	}
	return st, nil
}

func (s *Store) SaveQuota(ctx context.Context, q quota.State) error {
	models := toQuotaModels(q)
	err := s.inTx(ctx, func(tx *sqlitedriver.SqliteTx) error {
		if _, err := tx.NewDelete((*quotaModel)(nil)).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert(&models).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("subledger/sqlite: save quota: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

func (s *Store) inTx(ctx context.Context, fn func(*sqlitedriver.SqliteTx) error) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // write error takes precedence
		return err
	}
	return tx.Commit()
}

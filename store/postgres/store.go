// Package postgres stores the ledger in PostgreSQL through grove and its
// pgx-based pgdriver.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate" // registers the pg migration executor
	"github.com/xraph/grove/migrate"

	subledger "github.com/xraph/subledger"
	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
)

// uniqueViolation is the SQLSTATE of a unique constraint failure.
const uniqueViolation = "23505"

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// Open connects a pool to dsn.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pgdb := pgdriver.New()
	if err := pgdb.Open(ctx, dsn); err != nil {
		return nil, fmt.Errorf("subledger/postgres: %w", err)
	}
	db, err := grove.Open(pgdb)
	if err != nil {
		_ = pgdb.Close() //nolint:errcheck // open error takes precedence
		return nil, fmt.Errorf("subledger/postgres: %w", err)
	}
	return New(db), nil
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate runs the ledger migrations.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("subledger/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subledger/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) LoadCustomers(ctx context.Context) ([]*customer.Customer, error) {
	var models []customerModel
	if err := selectCustomers(s.pg, &models).Scan(ctx); err != nil {
		return nil, fmt.Errorf("subledger/postgres: load customers: %w", err)
	}

	out := make([]*customer.Customer, 0, len(models))
	for i := range models {
		c, err := fromCustomerModel(&models[i])
		if err != nil {
			return nil, fmt.Errorf("subledger/postgres: %w", err)
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

	err := s.inTx(ctx, func(tx *pgdriver.PgTx) error {
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
		return fmt.Errorf("subledger/postgres: replace customers: %w", classify(err))
	}
	return nil
}

// ==================== Projection ====================

func (s *Store) WriteProjection(ctx context.Context, rows []customer.Projection) error {
	models := make([]projectionModel, 0, len(rows))
	for i, r := range rows {
		models = append(models, projectionModel{Position: i, Username: r.Name, SubscriptionType: r.Tier.String()})
	}

	err := s.inTx(ctx, func(tx *pgdriver.PgTx) error {
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
		return fmt.Errorf("subledger/postgres: write projection: %w", err)
	}
	return nil
}

// ==================== Quota ====================

func (s *Store) LoadQuota(ctx context.Context) (quota.State, error) {
	var models []quotaModel
	if err := s.pg.NewSelect(&models).Scan(ctx); err != nil {
		return quota.State{}, fmt.Errorf("subledger/postgres: load quota: %w", err)
	}
	if len(models) == 0 {
		return quota.State{}, ledgerstore.ErrNoData
	}
	st, err := fromQuotaModels(models)
	if err != nil {
		return quota.State{}, fmt.Errorf("subledger/postgres: %w", err)
	}
	return st, nil
}

func (s *Store) SaveQuota(ctx context.Context, q quota.State) error {
	models := toQuotaModels(q)
	_, err := upsertQuota(s.pg, &models).Exec(ctx)
	if err != nil {
		return fmt.Errorf("subledger/postgres: save quota: %w", err)
	}
	return nil
}

// ==================== Queries ====================

func selectCustomers(pg *pgdriver.PgDB, models *[]customerModel) *pgdriver.SelectQuery {
	return pg.NewSelect(models).OrderExpr("position ASC")
}

func upsertQuota(pg *pgdriver.PgDB, models *[]quotaModel) *pgdriver.InsertQuery {
	return pg.NewInsert(models).
		OnConflict("(tier) DO UPDATE SET used = EXCLUDED.used, last_reset = EXCLUDED.last_reset")
}

// ==================== Helpers ====================

func (s *Store) inTx(ctx context.Context, fn func(*pgdriver.PgTx) error) error {
	tx, err := s.pg.BeginTxQuery(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback() //nolint:errcheck // write error takes precedence
		return err
	}
	return tx.Commit()
}

// classify maps a unique violation to subledger.ErrDuplicateCustomer.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", subledger.ErrDuplicateCustomer, pgErr.Detail)
	}
	return err
}

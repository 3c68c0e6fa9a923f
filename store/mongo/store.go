// Package mongo stores the ledger in MongoDB through grove's mongodriver.
// Replacing the collection is a delete followed by a bulk insert and is not
// atomic on standalone servers.
package mongo

import (
	"context"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/migrate"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/subledger/customer"
	"github.com/xraph/subledger/quota"
	ledgerstore "github.com/xraph/subledger/store"
)

// Collection name constants.
const (
	colCustomers  = "subledger_customers"
	colProjection = "subledger_projection"
	colQuota      = "subledger_quota"
)

// DefaultDatabase is used when no database is named.
const DefaultDatabase = "subledger"

// compile-time interface check
var _ ledgerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// Open connects to uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		database = DefaultDatabase
	}
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri, mongodriver.WithDatabase(database)); err != nil {
		return nil, fmt.Errorf("subledger/mongo: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close() //nolint:errcheck // open error takes precedence
		return nil, fmt.Errorf("subledger/mongo: %w", err)
	}
	return New(db), nil
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for the ledger collections.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.mdb)
	if err != nil {
		return fmt.Errorf("subledger/mongo: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Customer Store ====================

func (s *Store) LoadCustomers(ctx context.Context) ([]*customer.Customer, error) {
	var models []customerModel
	if err := findCustomers(s.mdb, &models).Scan(ctx); err != nil {
		return nil, fmt.Errorf("subledger/mongo: load customers: %w", err)
	}
	out, err := fromCustomerModels(models)
	if err != nil {
		return nil, fmt.Errorf("subledger/mongo: %w", err)
	}
	return out, nil
}

func (s *Store) ReplaceCustomers(ctx context.Context, customers []*customer.Customer) error {
	if _, err := s.mdb.NewDelete((*customerModel)(nil)).Many().Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: clear customers: %w", err)
	}
	if len(customers) == 0 {
		return nil
	}
	models := toCustomerModels(customers)
	if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: insert customers: %w", err)
	}
	return nil
}

// ==================== Projection ====================

func (s *Store) WriteProjection(ctx context.Context, rows []customer.Projection) error {
	if _, err := s.mdb.NewDelete((*projectionModel)(nil)).Many().Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: clear projection: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}
	models := make([]projectionModel, 0, len(rows))
	for i, r := range rows {
		models = append(models, toProjectionModel(i, r))
	}
	if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: insert projection: %w", err)
	}
	return nil
}

// ==================== Quota ====================

func (s *Store) LoadQuota(ctx context.Context) (quota.State, error) {
	var models []quotaModel
	if err := s.mdb.NewFind(&models).Scan(ctx); err != nil {
		return quota.State{}, fmt.Errorf("subledger/mongo: load quota: %w", err)
	}
	if len(models) == 0 {
		return quota.State{}, ledgerstore.ErrNoData
	}
	st, err := fromQuotaModels(models)
	if err != nil {
		return quota.State{}, fmt.Errorf("subledger/mongo: %w", err)
	}
	return st, nil
}

func (s *Store) SaveQuota(ctx context.Context, q quota.State) error {
	if _, err := s.mdb.NewDelete((*quotaModel)(nil)).Many().Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: clear quota: %w", err)
	}
	models := toQuotaModels(q)
	if _, err := s.mdb.NewInsert(&models).Exec(ctx); err != nil {
		return fmt.Errorf("subledger/mongo: save quota: %w", err)
	}
	return nil
}

// ==================== Queries ====================

func findCustomers(mdb *mongodriver.MongoDB, models *[]customerModel) *mongodriver.FindQuery {
	return mdb.NewFind(models).Sort(bson.D{{Key: "position", Value: 1}})
}

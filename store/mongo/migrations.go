package mongo

import (
	"context"
	"fmt"

	"github.com/xraph/grove/drivers/mongodriver"
	"github.com/xraph/grove/drivers/mongodriver/mongomigrate"
	"github.com/xraph/grove/migrate"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Migrations is the grove migration group for the MongoDB store.
var Migrations = migrate.NewGroup("subledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_subledger_indexes",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				mdb, err := mongoDB(exec)
				if err != nil {
					return err
				}
				for col, models := range migrationIndexes() {
					if _, err := mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
						return fmt.Errorf("create %s indexes: %w", col, err)
					}
				}
				return nil
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				mdb, err := mongoDB(exec)
				if err != nil {
					return err
				}
				for col := range migrationIndexes() {
					if err := mdb.Collection(col).Indexes().DropAll(ctx); err != nil {
						return fmt.Errorf("drop %s indexes: %w", col, err)
					}
				}
				return nil
			},
		},
	)
}

func mongoDB(exec migrate.Executor) (*mongodriver.MongoDB, error) {
	me, ok := exec.(*mongomigrate.Executor)
	if !ok {
		return nil, fmt.Errorf("subledger/mongo: unexpected migration executor %T", exec)
	}
	return me.DB(), nil
}

// migrationIndexes returns the index definitions for all ledger collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCustomers: {
			{Keys: bson.D{{Key: "position", Value: 1}}},
			{Keys: bson.D{{Key: "tier", Value: 1}, {Key: "canceled", Value: 1}}},
		},
		colProjection: {
			{Keys: bson.D{{Key: "position", Value: 1}}},
		},
	}
}

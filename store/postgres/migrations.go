package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the PostgreSQL store.
var Migrations = migrate.NewGroup("subledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_subledger_customers",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_customers (
    position       INTEGER PRIMARY KEY,
    id             INTEGER NOT NULL UNIQUE,
    name           TEXT NOT NULL DEFAULT '',
    email          TEXT NOT NULL DEFAULT '',
    tier           TEXT NOT NULL,
    renewal_date   DATE NOT NULL,
    canceled       BOOLEAN NOT NULL DEFAULT FALSE,
    payment_method TEXT
);

CREATE INDEX IF NOT EXISTS idx_subledger_customers_tier ON subledger_customers (tier, canceled);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_customers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_projection",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_projection (
    position          INTEGER PRIMARY KEY,
    username          TEXT NOT NULL DEFAULT '',
    subscription_type TEXT NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_projection`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_subledger_quota",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS subledger_quota (
    tier       TEXT PRIMARY KEY,
    used       INTEGER NOT NULL DEFAULT 0,
    last_reset DATE NOT NULL
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS subledger_quota`)
				return err
			},
		},
	)
}

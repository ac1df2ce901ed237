// Package pgxstore is the pgx-native persistence adapter. It shares the
// orders table layout with the GORM adapter so either can run against the
// same database.
package pgxstore

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS orders (
  id uuid PRIMARY KEY,
  owner_id text NOT NULL,
  created_at timestamptz NOT NULL,
  pickup_at timestamptz NOT NULL,
  pickup_offset_days bigint NOT NULL DEFAULT 0,
  items jsonb NOT NULL,
  status bigint NOT NULL,
  version bigint NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_owner_created ON orders (owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status);`

// EnsureSchema creates the orders table and its indexes if they are missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}

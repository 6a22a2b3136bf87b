package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"maker/internal/model"
)

// Repository is the append-only sink for order lifecycle events.
type Repository interface {
	LogOrderEvent(ctx context.Context, event model.OrderEvent) error
}

// PostgresRepository implements Repository on a pgx connection pool.
type PostgresRepository struct {
	Pool *pgxpool.Pool
}

// Migrate creates the order_events table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS order_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		symbol VARCHAR(20) NOT NULL,
		action VARCHAR(10) NOT NULL,
		side VARCHAR(4) NOT NULL,
		price NUMERIC(30, 12) NOT NULL,
		amount NUMERIC(30, 12) NOT NULL,
		order_id VARCHAR(64) NOT NULL
	);`
	_, err := r.Pool.Exec(ctx, createTableSQL)
	return err
}

// LogOrderEvent appends one event row.
func (r *PostgresRepository) LogOrderEvent(ctx context.Context, event model.OrderEvent) error {
	_, err := r.Pool.Exec(ctx,
		`INSERT INTO order_events (timestamp, symbol, action, side, price, amount, order_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.Timestamp, event.Symbol, event.Action, event.Side,
		event.Price.String(), event.Amount.String(), event.OrderID)
	return err
}

// NoopRepository discards events. Used when no journal database is configured.
type NoopRepository struct{}

func (NoopRepository) LogOrderEvent(context.Context, model.OrderEvent) error { return nil }

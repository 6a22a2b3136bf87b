package database

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"maker/internal/model"
)

var (
	pool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	ctx := context.Background()

	// Define the PostgreSQL container request
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpassword",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForListeningPort("5432/tcp"),
	}

	// Create and start the PostgreSQL container
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		log.Fatalf("could not start postgres container: %s", err)
	}
	defer func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			log.Fatalf("could not stop postgres container: %s", err)
		}
	}()

	// Get the container's mapped port and host
	host, err := pgContainer.Host(ctx)
	if err != nil {
		log.Fatalf("could not get container host: %s", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		log.Fatalf("could not get mapped port: %s", err)
	}

	// Create the database connection string
	connStr := "postgres://testuser:testpassword@" + host + ":" + port.Port() + "/testdb"

	// Create a new connection pool
	pool, err = pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("could not connect to database: %s", err)
	}
	defer pool.Close()

	repo := &PostgresRepository{Pool: pool}
	if err := repo.Migrate(ctx); err != nil {
		log.Fatalf("could not create table: %s", err)
	}

	// Run the tests
	code := m.Run()

	os.Exit(code)
}

func TestPostgresRepository_LogOrderEvent(t *testing.T) {
	ctx := context.Background()
	repo := &PostgresRepository{Pool: pool}

	event := model.OrderEvent{
		Timestamp: time.Now(),
		Symbol:    "SHIB/USDT",
		Action:    model.EventPlaced,
		Side:      string(model.Buy),
		Price:     decimal.RequireFromString("0.00002415"),
		Amount:    decimal.RequireFromString("2070000"),
		OrderID:   "8472919",
	}

	err := repo.LogOrderEvent(ctx, event)
	assert.NoError(t, err)

	// Verify the event was appended
	var (
		symbol, action, side, orderID string
		price, amount                 string
	)
	err = pool.QueryRow(ctx,
		"SELECT symbol, action, side, price::text, amount::text, order_id FROM order_events WHERE order_id = '8472919'").Scan(
		&symbol, &action, &side, &price, &amount, &orderID,
	)
	assert.NoError(t, err)
	assert.Equal(t, event.Symbol, symbol)
	assert.Equal(t, event.Action, action)
	assert.Equal(t, event.Side, side)
	assert.Equal(t, event.OrderID, orderID)
	assert.True(t, event.Price.Equal(decimal.RequireFromString(price)))
	assert.True(t, event.Amount.Equal(decimal.RequireFromString(amount)))
}

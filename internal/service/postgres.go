package service

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/cortexai/orderlens/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresOrderStore reads and seeds orders in Postgres through pgxpool
type PostgresOrderStore struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderStore opens a connection pool for dsn
func NewPostgresOrderStore(ctx context.Context, dsn string) (*PostgresOrderStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	return &PostgresOrderStore{pool: pool}, nil
}

// Close releases the pool
func (s *PostgresOrderStore) Close() error {
	s.pool.Close()
	return nil
}

// TestConnection verifies Postgres connectivity
func (s *PostgresOrderStore) TestConnection(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the embedded goose migrations
func (s *PostgresOrderStore) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		log.Info().Str("migration", r.Source.Path).Dur("duration", r.Duration).Msg("migration applied")
	}
	return nil
}

// FindOrders returns the orders matching filter, most recent first
func (s *PostgresOrderStore) FindOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	sql, args := postgresOrderQuery(filter)
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.OrderID, &o.CustomerName, &o.Product, &o.Amount, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read orders: %w", err)
	}
	return orders, nil
}

// ReplaceOrders deletes every order and inserts orders in one transaction
func (s *PostgresOrderStore) ReplaceOrders(ctx context.Context, orders []models.Order) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM orders"); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		batch := &pgx.Batch{}
		for _, o := range orders {
			batch.Queue(
				"INSERT INTO orders ("+orderColumns+") VALUES ($1, $2, $3, $4, $5, $6)",
				o.OrderID, o.CustomerName, o.Product, o.Amount, o.Status, o.CreatedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert orders: %w", err)
		}
		return nil
	})
}

func postgresOrderQuery(filter models.OrderFilter) (string, []interface{}) {
	where, args := renderOrderWhere(filter, func(n int) string { return fmt.Sprintf("$%d", n) })
	return "SELECT " + orderColumns + " FROM orders" + where + " ORDER BY created_at DESC", args
}

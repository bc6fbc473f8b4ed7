package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/lib/pq"

	"github.com/southsidewear/storefront/internal/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(cred *Credentials) (*PostgresRepository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) RunMigrations() error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	return runMigrations("postgres", "postgres", driver)
}

func (r *PostgresRepository) SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error {
	itemsJSON, shippingJSON, err := encodeOrder(order)
	if err != nil {
		return err
	}

	query := `INSERT INTO pending_orders (order_id, items, shipping, created_at)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (order_id) DO UPDATE SET
	              items = EXCLUDED.items,
	              shipping = EXCLUDED.shipping,
	              created_at = EXCLUDED.created_at`

	_, err = r.db.ExecContext(ctx, query, order.OrderID, string(itemsJSON), string(shippingJSON), order.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert pending order: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetPendingOrder(ctx context.Context, orderID string) (*domain.PendingOrder, error) {
	query := `SELECT order_id, items, shipping, created_at FROM pending_orders WHERE order_id = $1`

	var order domain.PendingOrder
	var itemsJSON, shippingJSON []byte
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.OrderID,
		&itemsJSON,
		&shippingJSON,
		&order.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pending order: %w", err)
	}

	if err := decodeOrder(&order, itemsJSON, shippingJSON); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

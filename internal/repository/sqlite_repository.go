package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"

	"github.com/southsidewear/storefront/internal/domain"
)

// OpenSQLite opens the database file at path. A single connection serialises
// writers.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}
	return db, nil
}

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) RunMigrations() error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{
		MigrationsTable: "orders_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	return runMigrations("sqlite", "sqlite", driver)
}

func (r *SQLiteRepository) SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error {
	itemsJSON, shippingJSON, err := encodeOrder(order)
	if err != nil {
		return err
	}

	query := `INSERT INTO pending_orders (order_id, items, shipping, created_at)
	          VALUES (?, ?, ?, ?)
	          ON CONFLICT(order_id) DO UPDATE SET
	              items = excluded.items,
	              shipping = excluded.shipping,
	              created_at = excluded.created_at`

	_, err = r.db.ExecContext(ctx, query,
		order.OrderID,
		string(itemsJSON),
		string(shippingJSON),
		order.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert pending order: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetPendingOrder(ctx context.Context, orderID string) (*domain.PendingOrder, error) {
	query := `SELECT order_id, items, shipping, created_at FROM pending_orders WHERE order_id = ?`

	var order domain.PendingOrder
	var itemsJSON, shippingJSON, createdAt string
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.OrderID,
		&itemsJSON,
		&shippingJSON,
		&createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query pending order: %w", err)
	}

	if err := decodeOrder(&order, []byte(itemsJSON), []byte(shippingJSON)); err != nil {
		return nil, err
	}
	order.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &order, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func encodeOrder(order *domain.PendingOrder) ([]byte, []byte, error) {
	items := order.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal order items: %w", err)
	}
	shippingJSON, err := json.Marshal(order.Shipping)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal shipping: %w", err)
	}
	return itemsJSON, shippingJSON, nil
}

func decodeOrder(order *domain.PendingOrder, itemsJSON, shippingJSON []byte) error {
	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &order.Shipping); err != nil {
		return fmt.Errorf("unmarshal shipping: %w", err)
	}
	return nil
}

// Package repository persists pending orders and the product catalog.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/southsidewear/storefront/internal/domain"
)

var ErrOrderNotFound = errors.New("pending order not found")

//go:embed migrations
var migrationsFS embed.FS

// Credentials for the Postgres store.
type Credentials struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// PendingOrderRepository stores pending orders keyed by order id. Saving an
// existing id replaces the record atomically.
type PendingOrderRepository interface {
	SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error
	GetPendingOrder(ctx context.Context, orderID string) (*domain.PendingOrder, error)
	Close() error
}

// runMigrations applies the embedded migrations under dir.
func runMigrations(dir, dbName string, driver database.Driver) error {
	src, err := iofs.New(migrationsFS, "migrations/"+dir)
	if err != nil {
		return fmt.Errorf("could not open migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}
	return nil
}

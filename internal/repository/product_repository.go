package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/golang-migrate/migrate/v4/database/sqlite"

	"github.com/southsidewear/storefront/internal/domain"
)

// ProductRepository is the SQLite product catalog.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) RunMigrations() error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{
		MigrationsTable: "catalog_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}
	return runMigrations("catalog", "sqlite", driver)
}

func (r *ProductRepository) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, name, price, sizes, image_url
		FROM products
		ORDER BY position, id
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		p := &domain.Product{}
		var sizes string
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &sizes, &p.ImageURL); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if err := json.Unmarshal([]byte(sizes), &p.Sizes); err != nil {
			return nil, fmt.Errorf("failed to decode sizes of %s: %w", p.ID, err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

// UpsertProducts writes products in list order inside one transaction.
func (r *ProductRepository) UpsertProducts(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `INSERT INTO products (id, name, price, sizes, image_url, position)
	          VALUES (?, ?, ?, ?, ?, ?)
	          ON CONFLICT(id) DO UPDATE SET
	              name = excluded.name,
	              price = excluded.price,
	              sizes = excluded.sizes,
	              image_url = excluded.image_url,
	              position = excluded.position`

	for i, p := range products {
		sizes := p.Sizes
		if sizes == nil {
			sizes = []string{}
		}
		sizesJSON, err := json.Marshal(sizes)
		if err != nil {
			return fmt.Errorf("encode sizes of %s: %w", p.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query, p.ID, p.Name, p.Price, string(sizesJSON), p.ImageURL, i); err != nil {
			return fmt.Errorf("upsert product %s: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit products: %w", err)
	}
	return nil
}

// Package catalog keeps product id/price records authoritative for the cart.
//
// The storefront listing comes from a Source (the product table), is merged
// into per-session ProductRecords by a Syncer, and those records reconcile
// prices and names copied into cart items at add time.
package catalog

import (
	"context"
	"errors"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/southsidewear/storefront/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// Source supplies the products the storefront lists.
type Source interface {
	GetAllProducts(ctx context.Context) ([]*domain.Product, error)
}

// ListingEntry is one product as displayed: the visible price text and the
// price attribute carried alongside it.
type ListingEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	PriceText string `json:"price_text"`
	PriceAttr string `json:"price_attr,omitempty"`
}

// Catalog reads the product source, collapsing concurrent loads into one.
type Catalog struct {
	source Source
	sfg    singleflight.Group
}

func New(source Source) *Catalog {
	return &Catalog{source: source}
}

// Products returns the current product list. The shared load outlives the
// caller that started it; a cancelled caller stops waiting without failing
// the others.
func (c *Catalog) Products(ctx context.Context) ([]*domain.Product, error) {
	ch := c.sfg.DoChan("products", func() (interface{}, error) {
		return c.source.GetAllProducts(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]*domain.Product), nil
	}
}

// Product looks a single product up by id.
func (c *Catalog) Product(ctx context.Context, id string) (*domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrProductNotFound
}

// Listing renders the product list as the storefront displays it.
func (c *Catalog) Listing(ctx context.Context) ([]ListingEntry, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]ListingEntry, 0, len(products))
	for _, p := range products {
		entries = append(entries, ListingEntry{
			ID:        p.ID,
			Name:      p.Name,
			PriceText: FormatPrice(p.Price),
			PriceAttr: strconv.FormatInt(p.Price, 10),
		})
	}
	return entries, nil
}

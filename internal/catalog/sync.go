package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/southsidewear/storefront/internal/cart"
	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/storage"
)

// RecordsKey is the storage key of the id -> ProductRecord mapping.
const RecordsKey = "southside_products_v1"

// ProductRecord is the authoritative name and price of a product. Price is
// nil when no price could be read.
type ProductRecord struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price *int64 `json:"price"`
}

// Syncer maintains the ProductRecords of one session.
type Syncer struct {
	storage storage.Storage
	catalog *Catalog
	logger  *slog.Logger
}

func NewSyncer(s storage.Storage, c *Catalog, logger *slog.Logger) *Syncer {
	return &Syncer{storage: s, catalog: c, logger: logger}
}

// Sync pulls the current listing and merges it into the stored records.
func (s *Syncer) Sync(ctx context.Context) (map[string]ProductRecord, error) {
	listing, err := s.catalog.Listing(ctx)
	if err != nil {
		return nil, err
	}
	return s.SyncFromListing(ctx, listing), nil
}

// SyncFromListing builds records from the listing and merges them over the
// previously stored ones. The visible price text wins over the attribute.
func (s *Syncer) SyncFromListing(ctx context.Context, listing []ListingEntry) map[string]ProductRecord {
	records := s.Records(ctx)

	for _, entry := range listing {
		name := strings.TrimSpace(entry.Name)
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			id = Slug(name)
		}
		if id == "" {
			continue
		}

		rec := ProductRecord{ID: id, Name: name}
		if p, ok := ParsePrice(entry.PriceText); ok {
			rec.Price = &p
		} else if p, ok := ParsePrice(entry.PriceAttr); ok {
			rec.Price = &p
		}
		records[id] = rec
	}

	s.save(ctx, records)
	return records
}

// Records returns the stored mapping, converting the legacy name -> price
// layout when it is found. Unreadable data yields an empty mapping.
func (s *Syncer) Records(ctx context.Context) map[string]ProductRecord {
	records := make(map[string]ProductRecord)

	raw, err := s.storage.Get(ctx, RecordsKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to read product records", "error", err)
		}
		return records
	}

	var stored map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logger.DebugContext(ctx, "discarding corrupt product records", "error", err)
		return records
	}

	for key, value := range stored {
		value = bytes.TrimSpace(value)
		if len(value) > 0 && value[0] == '{' {
			var rec ProductRecord
			if err := json.Unmarshal(value, &rec); err != nil {
				continue
			}
			if rec.ID == "" {
				rec.ID = key
			}
			records[rec.ID] = rec
			continue
		}

		// legacy: product name -> price
		rec := ProductRecord{ID: Slug(key), Name: key}
		if rec.ID == "" {
			continue
		}
		var text string
		if err := json.Unmarshal(value, &text); err != nil {
			text = string(value)
		}
		if p, ok := ParsePrice(text); ok {
			rec.Price = &p
		}
		records[rec.ID] = rec
	}
	return records
}

func (s *Syncer) save(ctx context.Context, records map[string]ProductRecord) {
	data, err := json.Marshal(records)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode product records", "error", err)
		return
	}
	if err := s.storage.Set(ctx, RecordsKey, string(data)); err != nil {
		s.logger.WarnContext(ctx, "failed to save product records", "error", err)
	}
}

// Reconcile overwrites stale prices and names in the cart with the record
// values, matching by id and then by case-insensitive name. The cart is
// persisted only when an item changed. It reports whether anything changed.
func Reconcile(ctx context.Context, store *cart.Store, records map[string]ProductRecord) bool {
	byName := make(map[string]ProductRecord, len(records))
	for _, rec := range records {
		if rec.Name != "" {
			byName[strings.ToLower(rec.Name)] = rec
		}
	}

	return store.Update(ctx, func(items []domain.CartItem) bool {
		changed := false
		for i := range items {
			rec, ok := records[items[i].ID]
			if !ok {
				rec, ok = byName[strings.ToLower(strings.TrimSpace(items[i].Product))]
			}
			if !ok {
				continue
			}
			if rec.Price != nil && items[i].Price != *rec.Price {
				items[i].Price = *rec.Price
				changed = true
			}
			if rec.Name != "" && items[i].Product != rec.Name {
				items[i].Product = rec.Name
				changed = true
			}
		}
		return changed
	})
}

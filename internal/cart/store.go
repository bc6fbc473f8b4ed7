// Package cart holds the ordered cart sequence of one browser session.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/storage"
)

const (
	// Key is the namespaced storage key of the cart sequence.
	Key = "southside_cart_v1"
	// LegacyKey held the cart before the key was namespaced.
	LegacyKey = "cart"
)

// Event is emitted after every cart mutation so collaborators can refresh
// badge counts. Remote is set when the change was made elsewhere.
type Event struct {
	Count  int   `json:"count"`
	Total  int64 `json:"total"`
	Remote bool  `json:"remote,omitempty"`
}

// Store owns the cart sequence. Persistence failures are logged and
// swallowed; the in-memory sequence stays authoritative for the session.
type Store struct {
	mu        sync.Mutex
	storage   storage.Storage
	logger    *slog.Logger
	items     []domain.CartItem
	lastSaved string

	listenersMu sync.Mutex
	listeners   map[int]func(Event)
	nextID      int
}

func NewStore(s storage.Storage, logger *slog.Logger) *Store {
	return &Store{
		storage:   s,
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}
}

// Load replaces the in-memory sequence with the persisted one. An absent or
// corrupt value yields an empty cart.
func (s *Store) Load(ctx context.Context) []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw := s.read(ctx)
	s.items = decode(raw, s.logger)
	s.lastSaved = raw
	return clone(s.items)
}

func (s *Store) read(ctx context.Context) string {
	raw, err := s.storage.Get(ctx, Key)
	if err == nil {
		return raw
	}
	if !errors.Is(err, storage.ErrNotFound) {
		s.logger.WarnContext(ctx, "failed to read cart", "error", err)
		return ""
	}

	legacy, err := s.storage.Get(ctx, LegacyKey)
	if err != nil {
		return ""
	}
	if err := s.storage.Set(ctx, Key, legacy); err != nil {
		s.logger.WarnContext(ctx, "could not migrate legacy cart key", "error", err)
	} else {
		s.logger.InfoContext(ctx, "migrated cart data from legacy key", "from", LegacyKey, "to", Key)
	}
	return legacy
}

func decode(raw string, logger *slog.Logger) []domain.CartItem {
	if raw == "" {
		return []domain.CartItem{}
	}
	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		logger.Debug("discarding corrupt cart", "error", err)
		return []domain.CartItem{}
	}
	if items == nil {
		return []domain.CartItem{}
	}
	return items
}

// Add appends item to the end of the sequence.
func (s *Store) Add(ctx context.Context, item domain.CartItem) {
	s.mu.Lock()
	s.items = append(s.items, item)
	s.persist(ctx)
	ev := s.event(false)
	s.mu.Unlock()

	s.emit(ev)
}

// Remove deletes the item at index. Out-of-range indexes leave the cart
// untouched and report false.
func (s *Store) Remove(ctx context.Context, index int) bool {
	s.mu.Lock()
	if index < 0 || index >= len(s.items) {
		s.mu.Unlock()
		return false
	}
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	s.persist(ctx)
	ev := s.event(false)
	s.mu.Unlock()

	s.emit(ev)
	return true
}

// Update hands a copy of the sequence to fn. When fn reports a change the
// modified copy replaces the sequence and is persisted.
func (s *Store) Update(ctx context.Context, fn func(items []domain.CartItem) bool) bool {
	s.mu.Lock()
	items := clone(s.items)
	if !fn(items) {
		s.mu.Unlock()
		return false
	}
	s.items = items
	s.persist(ctx)
	ev := s.event(false)
	s.mu.Unlock()

	s.emit(ev)
	return true
}

// Clear empties the cart. It is used once the order it held has been paid.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.items = []domain.CartItem{}
	s.persist(ctx)
	ev := s.event(false)
	s.mu.Unlock()

	s.emit(ev)
}

// persist writes the whole sequence; callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.items)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to encode cart", "error", err)
		return
	}
	if err := s.storage.Set(ctx, Key, string(data)); err != nil {
		s.logger.WarnContext(ctx, "failed to save cart", "error", err)
		return
	}
	s.lastSaved = string(data)
}

// Items returns a copy of the current sequence.
func (s *Store) Items() []domain.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Total sums the current prices. It is recomputed on every call.
func (s *Store) Total() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartTotal(s.items)
}

// Subscribe registers fn for cart events and returns its cancel function.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

// Watch reloads the cart whenever another writer changes the stored
// sequence, until ctx ends. It needs a storage that implements
// storage.Watcher.
func (s *Store) Watch(ctx context.Context) error {
	w, ok := s.storage.(storage.Watcher)
	if !ok {
		return storage.ErrWatchUnsupported
	}
	changes, err := w.Watch(ctx, Key)
	if err != nil {
		return err
	}

	go func() {
		for range changes {
			s.reloadRemote(ctx)
		}
	}()
	return nil
}

func (s *Store) reloadRemote(ctx context.Context) {
	raw, err := s.storage.Get(ctx, Key)
	if err != nil {
		return
	}

	s.mu.Lock()
	if raw == s.lastSaved {
		s.mu.Unlock()
		return
	}
	s.items = decode(raw, s.logger)
	s.lastSaved = raw
	ev := s.event(true)
	s.mu.Unlock()

	s.emit(ev)
}

func (s *Store) event(remote bool) Event {
	return Event{
		Count:  len(s.items),
		Total:  domain.CartTotal(s.items),
		Remote: remote,
	}
}

func (s *Store) emit(ev Event) {
	s.listenersMu.Lock()
	fns := make([]func(Event), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func clone(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, len(items))
	copy(out, items)
	return out
}

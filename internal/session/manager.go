// Package session keeps the per-browser-session state of the storefront: the
// cart, the checkout controller and the product records.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/southsidewear/storefront/internal/cart"
	"github.com/southsidewear/storefront/internal/catalog"
	"github.com/southsidewear/storefront/internal/checkout"
	"github.com/southsidewear/storefront/internal/storage"
)

const (
	// DefaultIdleTTL is how long an untouched session stays in memory. Its
	// cart survives eviction in storage.
	DefaultIdleTTL = 30 * time.Minute

	// CleanupInterval is how often idle sessions are evicted.
	CleanupInterval = time.Minute
)

// ErrUnknownOrder is returned for an order id no session was recorded for.
var ErrUnknownOrder = errors.New("no session recorded for order")

type Session struct {
	ID       string
	Cart     *cart.Store
	Checkout *checkout.Controller
	Products *catalog.Syncer

	lastSeen time.Time
	cancel   context.CancelFunc
}

// Manager creates sessions on first use and evicts idle ones.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	storage   storage.Storage
	catalog   *catalog.Catalog
	submitter checkout.Submitter
	logger    *slog.Logger
	idleTTL   time.Duration
	now       func() time.Time

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

func NewManager(s storage.Storage, c *catalog.Catalog, submitter checkout.Submitter, logger *slog.Logger, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	m := &Manager{
		sessions:    make(map[string]*Session),
		storage:     s,
		catalog:     c,
		submitter:   submitter,
		logger:      logger,
		idleTTL:     idleTTL,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// ValidID reports whether id looks like an id produced by NewID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get returns the session for id, loading its cart from storage the first
// time the id is seen.
func (m *Manager) Get(ctx context.Context, id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		s.lastSeen = m.now()
		return s
	}

	scoped := storage.NewNamespace(m.storage, "session:"+id)
	store := cart.NewStore(scoped, m.logger.With("session_id", id))
	store.Load(ctx)

	watchCtx, cancel := context.WithCancel(context.Background())
	if err := store.Watch(watchCtx); err != nil && !errors.Is(err, storage.ErrWatchUnsupported) {
		m.logger.WarnContext(ctx, "cart change notifications unavailable", "session_id", id, "error", err)
	}

	s := &Session{
		ID:       id,
		Cart:     store,
		Checkout: checkout.NewController(store, m.submitter),
		Products: catalog.NewSyncer(scoped, m.catalog, m.logger),
		lastSeen: m.now(),
		cancel:   cancel,
	}
	m.sessions[id] = s
	return s
}

func orderKey(orderID string) string {
	return "order:" + orderID + ":session"
}

// RecordOrder remembers that sessionID placed orderID, so the cart can be
// emptied once the payment is approved.
func (m *Manager) RecordOrder(ctx context.Context, sessionID, orderID string) error {
	return m.storage.Set(ctx, orderKey(orderID), sessionID)
}

// ClearCartForOrder empties the cart of the session that placed orderID.
// Sessions not held in memory are cleared in storage; replicas holding the
// session reload through their cart watch.
func (m *Manager) ClearCartForOrder(ctx context.Context, orderID string) error {
	sessionID, err := m.storage.Get(ctx, orderKey(orderID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
		}
		return err
	}

	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()

	if ok {
		s.Cart.Clear(ctx)
	} else if err := storage.NewNamespace(m.storage, "session:"+sessionID).Set(ctx, cart.Key, "[]"); err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "cart cleared after approved payment", "order_id", orderID, "session_id", sessionID)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle()
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) evictIdle() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-m.idleTTL)
	for id, s := range m.sessions {
		if s.lastSeen.Before(cutoff) {
			s.cancel()
			delete(m.sessions, id)
		}
	}
}

// Close stops the cleanup loop and releases every session.
func (m *Manager) Close() {
	close(m.stopCleanup)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.cancel()
		delete(m.sessions, id)
	}
}

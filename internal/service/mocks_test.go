package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/southsidewear/storefront/internal/domain"
)

type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*domain.PendingOrder
	err    error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]*domain.PendingOrder)}
}

func (m *mockOrderRepo) SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *order
	m.orders[order.OrderID] = &cp
	return nil
}

type mockPayments struct {
	prefs  []domain.Preference
	result *domain.PreferenceResult
	err    error
}

func (m *mockPayments) CreatePreference(ctx context.Context, pref domain.Preference) (*domain.PreferenceResult, error) {
	m.prefs = append(m.prefs, pref)
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

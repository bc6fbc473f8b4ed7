package webhook

import (
	"context"
	"io"
	"log/slog"

	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/notify"
	"github.com/southsidewear/storefront/internal/repository"
)

type mockPayments struct {
	payments map[string]*domain.PaymentDetails
	err      error
	calls    []string
}

func (m *mockPayments) GetPayment(_ context.Context, id string) (*domain.PaymentDetails, error) {
	m.calls = append(m.calls, id)
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return p, nil
}

type mockOrders struct {
	orders map[string]*domain.PendingOrder
	err    error
}

func (m *mockOrders) GetPendingOrder(_ context.Context, id string) (*domain.PendingOrder, error) {
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

type mockLog struct {
	entries []string
	err     error
}

func (m *mockLog) Append(entry string) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, entry)
	return nil
}

type mockDispatcher struct {
	messages []notify.Message
}

func (m *mockDispatcher) Dispatch(msg notify.Message) {
	m.messages = append(m.messages, msg)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

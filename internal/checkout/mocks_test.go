package checkout

import (
	"context"
	"io"
	"log/slog"

	"github.com/southsidewear/storefront/internal/domain"
)

type mockSubmitter struct {
	calls    int
	items    []domain.CartItem
	shipping domain.ShippingInfo
	result   *domain.Submission
	err      error
	block    chan struct{}
}

func (m *mockSubmitter) Submit(ctx context.Context, items []domain.CartItem, shipping domain.ShippingInfo) (*domain.Submission, error) {
	m.calls++
	m.items = items
	m.shipping = shipping
	if m.block != nil {
		<-m.block
	}
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/southsidewear/storefront/internal/domain"
)

type mockSource struct {
	products []*domain.Product
	err      error
	delay    time.Duration
	release  chan struct{}
	calls    atomic.Int32
}

func (m *mockSource) GetAllProducts(ctx context.Context) ([]*domain.Product, error) {
	m.calls.Add(1)
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.release != nil {
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.products, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/southsidewear/storefront/internal/catalog"
	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/session"
	"github.com/southsidewear/storefront/internal/storage"
	"github.com/southsidewear/storefront/internal/webhook"
)

const testSessionID = "7b0c2f4e-8a51-4d7e-9c3a-1f2e3d4c5b6a"

type mockSource struct {
	products []*domain.Product
	err      error
}

func (m mockSource) GetAllProducts(context.Context) ([]*domain.Product, error) {
	return m.products, m.err
}

type mockSubmitter struct {
	result *domain.Submission
	err    error
	items  []domain.CartItem
}

func (m *mockSubmitter) Submit(_ context.Context, items []domain.CartItem, _ domain.ShippingInfo) (*domain.Submission, error) {
	m.items = items
	return m.result, m.err
}

type mockOrderService struct {
	lines   []domain.LineItem
	orderID string
	email   string
	result  *domain.PreferenceResult
	prefErr error

	saved   *domain.PendingOrder
	saveErr error
}

func (m *mockOrderService) CreatePreference(_ context.Context, lines []domain.LineItem, orderID, payerEmail string) (*domain.PreferenceResult, error) {
	m.lines = lines
	m.orderID = orderID
	m.email = payerEmail
	return m.result, m.prefErr
}

func (m *mockOrderService) SavePendingOrder(_ context.Context, order *domain.PendingOrder) error {
	m.saved = order
	return m.saveErr
}

type mockProcessor struct {
	outcome webhook.Outcome
	err     error
	calls   int
	body    []byte
	query   url.Values
}

func (m *mockProcessor) HandleNotification(_ context.Context, body []byte, query url.Values) (webhook.Outcome, error) {
	m.calls++
	m.body = body
	m.query = query
	return m.outcome, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var testProducts = []*domain.Product{
	{ID: "classic-tee", Name: "Classic Tee", Price: 25000, Sizes: []string{"S", "M", "L"}},
	{ID: "cargo-pants", Name: "Cargo Pants", Price: 48500, Sizes: []string{"M", "L"}},
}

func newTestManager(t *testing.T, products []*domain.Product, sub *mockSubmitter) (*session.Manager, *catalog.Catalog) {
	t.Helper()
	c := catalog.New(mockSource{products: products})
	m := session.NewManager(storage.NewMemoryStorage(), c, sub, discardLogger(), time.Minute)
	t.Cleanup(m.Close)
	return m, c
}

// withSession attaches the test session id the way SessionMiddleware does.
func withSession(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), sessionIDKey, testSessionID))
}

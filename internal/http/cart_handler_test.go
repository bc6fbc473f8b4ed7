package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/southsidewear/storefront/internal/domain"
)

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) CartResponse {
	t.Helper()
	var resp CartResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAddItem_Success(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", strings.NewReader(`{"id":"classic-tee","size":"M"}`)))
	handler.AddItem(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeCart(t, rec)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Classic Tee", resp.Items[0].Product)
	assert.Equal(t, "M", resp.Items[0].Size)
	assert.Equal(t, int64(25000), resp.Total)
	assert.Equal(t, "$25.000", resp.TotalText)
	assert.Equal(t, 1, m.Get(context.Background(), testSessionID).Cart.Len())
}

func TestAddItem_SameProductTwiceMakesTwoLines(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		req := withSession(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"classic-tee","size":"L"}`)))
		handler.AddItem(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	s := m.Get(context.Background(), testSessionID)
	assert.Equal(t, 2, s.Cart.Len())
	assert.Equal(t, int64(50000), s.Cart.Total())
}

func TestAddItem_SizeRequired(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"classic-tee"}`)))
	handler.AddItem(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "size", resp.Field)
	assert.Equal(t, "size_required", resp.Error)
	assert.Equal(t, 0, m.Get(context.Background(), testSessionID).Cart.Len())
}

func TestAddItem_UnavailableSize(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"cargo-pants","size":"XS"}`)))
	handler.AddItem(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"id":"nope","size":"M"}`)))
	handler.AddItem(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddItem_InvalidJSON(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	rec := httptest.NewRecorder()
	req := withSession(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)))
	handler.AddItem(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoveItem(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())
	ctx := context.Background()
	s := m.Get(ctx, testSessionID)
	s.Cart.Add(ctx, domain.CartItem{ID: "classic-tee", Product: "Classic Tee", Price: 25000, Size: "M"})
	s.Cart.Add(ctx, domain.CartItem{ID: "cargo-pants", Product: "Cargo Pants", Price: 48500, Size: "L"})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCount  int
	}{
		{"out of range is a no-op", `{"index":5}`, http.StatusOK, 2},
		{"negative is a no-op", `{"index":-1}`, http.StatusOK, 2},
		{"missing index", `{}`, http.StatusBadRequest, 2},
		{"removes first line", `{"index":0}`, http.StatusOK, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := withSession(httptest.NewRequest(http.MethodDelete, "/", strings.NewReader(tt.body)))
			handler.RemoveItem(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCount, s.Cart.Len())
		})
	}
	assert.Equal(t, "cargo-pants", s.Cart.Items()[0].ID)
}

func TestReconcile_CorrectsStalePrices(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())
	ctx := context.Background()
	s := m.Get(ctx, testSessionID)
	s.Cart.Add(ctx, domain.CartItem{ID: "classic-tee", Product: "Old Tee", Price: 1, Size: "M"})

	rec := httptest.NewRecorder()
	handler.Reconcile(rec, withSession(httptest.NewRequest(http.MethodPost, "/", nil)))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ReconcileResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Changed)
	assert.Equal(t, int64(25000), resp.Cart.Total)
	assert.Equal(t, "Classic Tee", s.Cart.Items()[0].Product)
}

func TestEvents_StreamsCartChanges(t *testing.T) {
	m, c := newTestManager(t, testProducts, &mockSubmitter{})
	handler := NewCartHandler(m, c, discardLogger())

	srv := httptest.NewServer(SessionMiddleware(false)(http.HandlerFunc(handler.Events)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	require.NoError(t, err)
	req.Header.Set(SessionHeader, testSessionID)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	nextData := func() string {
		for lines.Scan() {
			if data, ok := strings.CutPrefix(lines.Text(), "data: "); ok {
				return data
			}
		}
		return ""
	}

	assert.JSONEq(t, `{"count":0,"total":0}`, nextData())

	m.Get(context.Background(), testSessionID).Cart.Add(context.Background(),
		domain.CartItem{ID: "classic-tee", Product: "Classic Tee", Price: 25000, Size: "M"})

	assert.JSONEq(t, `{"count":1,"total":25000}`, nextData())
}

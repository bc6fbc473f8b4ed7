package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/southsidewear/storefront/internal/cart"
	"github.com/southsidewear/storefront/internal/catalog"
	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/session"
)

const eventsKeepAlive = 25 * time.Second

type CartHandler struct {
	sessions *session.Manager
	catalog  *catalog.Catalog
	logger   *slog.Logger
}

func NewCartHandler(sessions *session.Manager, c *catalog.Catalog, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		catalog:  c,
		logger:   logger,
	}
}

type AddItemRequest struct {
	ID   string `json:"id"`
	Size string `json:"size"`
}

type RemoveItemRequest struct {
	Index *int `json:"index"`
}

type CartItemView struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	Product   string `json:"product"`
	Size      string `json:"size"`
	Price     int64  `json:"price"`
	PriceText string `json:"price_text"`
}

type CartResponse struct {
	Items     []CartItemView `json:"items"`
	Count     int            `json:"count"`
	Total     int64          `json:"total"`
	TotalText string         `json:"total_text"`
}

type ReconcileResponse struct {
	Changed bool         `json:"changed"`
	Cart    CartResponse `json:"cart"`
}

func cartResponse(items []domain.CartItem) CartResponse {
	views := make([]CartItemView, 0, len(items))
	for i, item := range items {
		views = append(views, CartItemView{
			Index:     i,
			ID:        item.ID,
			Product:   item.Product,
			Size:      item.Size,
			Price:     item.Price,
			PriceText: catalog.FormatPrice(item.Price),
		})
	}
	total := domain.CartTotal(items)
	return CartResponse{
		Items:     views,
		Count:     len(items),
		Total:     total,
		TotalText: catalog.FormatPrice(total),
	}
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	respondJSON(w, http.StatusOK, cartResponse(s.Cart.Items()))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.ID == "" {
		handleServiceError(w, r, h.logger, &domain.ValidationError{Field: "id", Message: "product id is required"})
		return
	}
	if req.Size == "" {
		handleServiceError(w, r, h.logger, &domain.ValidationError{Field: "size", Message: "size_required"})
		return
	}

	product, err := h.catalog.Product(r.Context(), req.ID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	if !product.HasSize(req.Size) {
		handleServiceError(w, r, h.logger, &domain.ValidationError{
			Field:   "size",
			Message: fmt.Sprintf("size %q is not available for %s", req.Size, product.Name),
		})
		return
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	s.Cart.Add(r.Context(), domain.CartItem{
		ID:      product.ID,
		Product: product.Name,
		Price:   product.Price,
		Size:    req.Size,
	})

	respondJSON(w, http.StatusCreated, cartResponse(s.Cart.Items()))
}

// RemoveItem handles DELETE /api/v1/cart/items. An index outside the cart
// leaves it unchanged.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	var req RemoveItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "index is required")
		return
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	s.Cart.Remove(r.Context(), *req.Index)
	respondJSON(w, http.StatusOK, cartResponse(s.Cart.Items()))
}

// Reconcile handles POST /api/v1/cart/reconcile: it refreshes the product
// records from the catalog and corrects the cart against them.
func (h *CartHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))

	records, err := s.Products.Sync(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "catalog sync failed, using stored records", "error", err)
		records = s.Products.Records(r.Context())
	}

	changed := catalog.Reconcile(r.Context(), s.Cart, records)
	respondJSON(w, http.StatusOK, ReconcileResponse{
		Changed: changed,
		Cart:    cartResponse(s.Cart.Items()),
	})
}

// Events handles GET /api/v1/cart/events, streaming cart events as
// server-sent events until the client goes away.
func (h *CartHandler) Events(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.DebugContext(r.Context(), "write deadline not adjustable", "error", err)
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))

	events := make(chan cart.Event, 8)
	unsubscribe := s.Cart.Subscribe(func(ev cart.Event) {
		select {
		case events <- ev:
		default:
			// a slow client only needs the latest counts
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	items := s.Cart.Items()
	if err := writeEvent(w, cart.Event{Count: len(items), Total: domain.CartTotal(items)}); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(eventsKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-events:
			if err := writeEvent(w, ev); err != nil {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev cart.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: cart\ndata: %s\n\n", data)
	return err
}

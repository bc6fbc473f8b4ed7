package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/southsidewear/storefront/internal/checkout"
	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/session"
)

type CheckoutHandler struct {
	sessions *session.Manager
	logger   *slog.Logger
}

func NewCheckoutHandler(sessions *session.Manager, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		sessions: sessions,
		logger:   logger,
	}
}

type CheckoutResponse struct {
	Step     checkout.Step       `json:"step"`
	Shipping domain.ShippingInfo `json:"shipping"`
	Cart     CartResponse        `json:"cart"`
}

func checkoutResponse(s *session.Session) CheckoutResponse {
	return CheckoutResponse{
		Step:     s.Checkout.Step(),
		Shipping: s.Checkout.Shipping(),
		Cart:     cartResponse(s.Cart.Items()),
	}
}

// Get handles GET /api/v1/checkout
func (h *CheckoutHandler) Get(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	respondJSON(w, http.StatusOK, checkoutResponse(s))
}

// UpdateShipping handles PATCH /api/v1/checkout/shipping. The body maps
// shipping field names to their values; fields are applied in form order.
func (h *CheckoutHandler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	for field := range fields {
		if _, ok := (domain.ShippingInfo{}).Get(field); !ok {
			handleServiceError(w, r, h.logger, checkout.ErrUnknownField)
			return
		}
	}

	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	for _, field := range domain.ShippingFields {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if err := s.Checkout.SetField(field, value); err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, checkoutResponse(s))
}

// Next handles POST /api/v1/checkout/next
func (h *CheckoutHandler) Next(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	if _, err := s.Checkout.Next(); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse(s))
}

// Back handles POST /api/v1/checkout/back
func (h *CheckoutHandler) Back(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))
	s.Checkout.Back()
	respondJSON(w, http.StatusOK, checkoutResponse(s))
}

// Pay handles POST /api/v1/checkout/pay. On success the client redirects
// the buyer to init_point.
func (h *CheckoutHandler) Pay(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Get(r.Context(), getSessionID(r.Context()))

	sub, err := s.Checkout.Pay(r.Context())
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	if err := h.sessions.RecordOrder(r.Context(), s.ID, sub.OrderID); err != nil {
		h.logger.WarnContext(r.Context(), "failed to record order session", "order_id", sub.OrderID, "error", err)
	}

	h.logger.InfoContext(r.Context(), "redirecting buyer to payment", "order_id", sub.OrderID)
	respondJSON(w, http.StatusOK, sub)
}

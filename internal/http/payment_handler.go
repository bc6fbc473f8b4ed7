package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/mercadopago"
	"github.com/southsidewear/storefront/internal/service"
)

// OrderService is what the payment endpoints need from the order service.
type OrderService interface {
	CreatePreference(ctx context.Context, lines []domain.LineItem, orderID, payerEmail string) (*domain.PreferenceResult, error)
	SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error
}

// PaymentHandler serves the standalone preference and pending-order
// endpoints used by storefront pages that build the request themselves.
type PaymentHandler struct {
	orders OrderService
	logger *slog.Logger
}

func NewPaymentHandler(orders OrderService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		orders: orders,
		logger: logger,
	}
}

type CreatePreferenceRequest struct {
	Items    []domain.PaymentItem `json:"items"`
	Shipping *domain.ShippingInfo `json:"shipping,omitempty"`
	OrderID  string               `json:"order_id,omitempty"`
	Email    string               `json:"email,omitempty"`
}

// PayerEmail is the shipping email, falling back to a top-level email.
func (r CreatePreferenceRequest) PayerEmail() string {
	if r.Shipping != nil && r.Shipping.Email != "" {
		return r.Shipping.Email
	}
	return r.Email
}

type PreferenceErrorResponse struct {
	Error    bool   `json:"error"`
	Message  string `json:"message"`
	HTTPCode int    `json:"httpCode,omitempty"`
	Response string `json:"response,omitempty"`
}

type SavePendingOrderRequest struct {
	OrderID  string               `json:"order_id"`
	Items    []domain.PendingItem `json:"items"`
	Shipping domain.ShippingInfo  `json:"shipping"`
}

type SavePendingOrderResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// CreatePreference handles POST /api/v1/preferences. The provider's answer
// is relayed untouched on success.
func (h *PaymentHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	var req CreatePreferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Items) == 0 {
		respondJSON(w, http.StatusBadRequest, PreferenceErrorResponse{
			Error:   true,
			Message: service.ErrItemsMissing.Message,
		})
		return
	}

	lines := make([]domain.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, item.LineItem())
	}

	res, err := h.orders.CreatePreference(r.Context(), lines, req.OrderID, req.PayerEmail())
	if err != nil {
		var perr *mercadopago.ProviderError
		var nerr *mercadopago.NetworkError
		switch {
		case errors.As(err, &perr):
			h.logger.ErrorContext(r.Context(), "preference rejected", "status", perr.StatusCode, "order_id", req.OrderID)
			respondJSON(w, http.StatusBadGateway, PreferenceErrorResponse{
				Error:    true,
				Message:  "mp_api_error",
				HTTPCode: perr.StatusCode,
				Response: string(perr.Body),
			})
		case errors.As(err, &nerr):
			h.logger.WarnContext(r.Context(), "preference request failed", "error", err, "order_id", req.OrderID)
			respondJSON(w, http.StatusBadGateway, PreferenceErrorResponse{
				Error:   true,
				Message: "mp_api_error",
			})
		default:
			handleServiceError(w, r, h.logger, err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(res.Raw); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to write preference", "error", err)
	}
}

// SavePendingOrder handles POST /api/v1/pending-orders
func (h *PaymentHandler) SavePendingOrder(w http.ResponseWriter, r *http.Request) {
	var req SavePendingOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, SavePendingOrderResponse{Error: "invalid JSON body"})
		return
	}
	if req.OrderID == "" {
		respondJSON(w, http.StatusBadRequest, SavePendingOrderResponse{Error: "missing order_id"})
		return
	}

	var items []domain.CartItem
	for _, item := range req.Items {
		lines, ok := item.CartItems()
		if !ok {
			respondJSON(w, http.StatusBadRequest, SavePendingOrderResponse{Error: "invalid item"})
			return
		}
		items = append(items, lines...)
	}

	err := h.orders.SavePendingOrder(r.Context(), &domain.PendingOrder{
		OrderID:  req.OrderID,
		Items:    items,
		Shipping: req.Shipping,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to save pending order", "order_id", req.OrderID, "error", err)
		respondJSON(w, http.StatusInternalServerError, SavePendingOrderResponse{Error: "could not save order"})
		return
	}

	respondJSON(w, http.StatusOK, SavePendingOrderResponse{OK: true})
}

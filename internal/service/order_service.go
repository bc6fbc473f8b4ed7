package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/mercadopago"
	"github.com/southsidewear/storefront/internal/metrics"
)

const (
	CurrencyARS = "ARS"
	// AutoReturnApproved sends the buyer back automatically after approval.
	AutoReturnApproved = "approved"
)

// ErrItemsMissing rejects a preference request without items.
var ErrItemsMissing = &domain.ValidationError{Field: "items", Message: "items_missing"}

type PendingOrderSaver interface {
	SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error
}

type PreferenceCreator interface {
	CreatePreference(ctx context.Context, pref domain.Preference) (*domain.PreferenceResult, error)
}

// Callbacks are the provider-facing URLs embedded in every preference.
type Callbacks struct {
	NotificationURL string
	BackURLs        domain.BackURLs
}

// OrderService records a pending order and opens a payment preference for it.
type OrderService struct {
	orders    PendingOrderSaver
	payments  PreferenceCreator
	callbacks Callbacks
	logger    *slog.Logger
	now       func() time.Time
}

func NewOrderService(orders PendingOrderSaver, payments PreferenceCreator, callbacks Callbacks, logger *slog.Logger) *OrderService {
	return &OrderService{
		orders:    orders,
		payments:  payments,
		callbacks: callbacks,
		logger:    logger,
		now:       time.Now,
	}
}

// NewOrderID returns "SS-<unix millis>-<0..999999>". It is a correlation key,
// unique with high probability only.
func NewOrderID(now time.Time) string {
	return fmt.Sprintf("SS-%d-%d", now.UnixMilli(), rand.IntN(1_000_000))
}

// Submit validates the checkout, stores the pending order and requests a
// preference. The pending order is kept even when the provider call fails.
func (s *OrderService) Submit(ctx context.Context, items []domain.CartItem, shipping domain.ShippingInfo) (*domain.Submission, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	orderID := NewOrderID(now)

	if err := s.SavePendingOrder(ctx, &domain.PendingOrder{
		OrderID:   orderID,
		Items:     items,
		Shipping:  shipping,
		CreatedAt: now,
	}); err != nil {
		// the webhook falls back to provider data when the record is missing
		s.logger.ErrorContext(ctx, "failed to save pending order", "order_id", orderID, "error", err)
	}

	res, err := s.CreatePreference(ctx, domain.LineItemsFromCart(items), orderID, shipping.Email)
	if err != nil {
		return nil, fmt.Errorf("create preference for order %s: %w", orderID, err)
	}

	s.logger.InfoContext(ctx, "checkout submitted", "order_id", orderID, "preference_id", res.ID, "items", len(items))
	return &domain.Submission{OrderID: orderID, InitPoint: res.InitPoint}, nil
}

// SavePendingOrder upserts order under its id.
func (s *OrderService) SavePendingOrder(ctx context.Context, order *domain.PendingOrder) error {
	if order.OrderID == "" {
		return &domain.ValidationError{Field: "order_id", Message: "missing order_id"}
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = s.now()
	}
	err := s.orders.SavePendingOrder(ctx, order)
	metrics.PendingOrderWrites.WithLabelValues(metrics.Result(err)).Inc()
	return err
}

// CreatePreference requests a preference for lines. orderID and payerEmail
// are optional.
func (s *OrderService) CreatePreference(ctx context.Context, lines []domain.LineItem, orderID, payerEmail string) (*domain.PreferenceResult, error) {
	if len(lines) == 0 {
		return nil, ErrItemsMissing
	}

	res, err := s.payments.CreatePreference(ctx, BuildPreference(lines, orderID, payerEmail, s.callbacks))
	metrics.PreferencesTotal.WithLabelValues(preferenceResult(err)).Inc()
	return res, err
}

// BuildPreference assembles the provider payload: one ARS item per line,
// the order id as external reference and automatic return on approval.
func BuildPreference(lines []domain.LineItem, orderID, payerEmail string, cb Callbacks) domain.Preference {
	items := make([]domain.PreferenceItem, 0, len(lines))
	for _, l := range lines {
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		items = append(items, domain.PreferenceItem{
			Title:      l.Title,
			Quantity:   qty,
			UnitPrice:  l.UnitPrice,
			CurrencyID: CurrencyARS,
		})
	}

	pref := domain.Preference{
		Items:             items,
		ExternalReference: orderID,
		NotificationURL:   cb.NotificationURL,
		BackURLs:          cb.BackURLs,
		AutoReturn:        AutoReturnApproved,
	}
	if payerEmail != "" {
		pref.Payer = &domain.PreferencePayer{Email: payerEmail}
	}
	return pref
}

func preferenceResult(err error) string {
	var nerr *mercadopago.NetworkError
	var perr *mercadopago.ProviderError
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &nerr):
		return "network_error"
	case errors.As(err, &perr):
		return "provider_error"
	}
	return "error"
}

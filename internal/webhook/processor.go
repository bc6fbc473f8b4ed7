// Package webhook processes Mercado Pago payment notifications.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/metrics"
	"github.com/southsidewear/storefront/internal/notify"
	"github.com/southsidewear/storefront/internal/repository"
)

// Outcome is the business result of a notification. Every outcome is
// acknowledged with 200.
type Outcome string

const (
	OutcomeIgnored     Outcome = "ignored"
	OutcomeNotApproved Outcome = "not_approved"
	OutcomeProcessed   Outcome = "processed"
)

// Ack is the plain-text body returned to the provider.
func (o Outcome) Ack() string {
	switch o {
	case OutcomeIgnored:
		return "event ignored"
	case OutcomeNotApproved:
		return "not approved"
	}
	return "OK"
}

type PaymentFetcher interface {
	GetPayment(ctx context.Context, id string) (*domain.PaymentDetails, error)
}

type OrderFinder interface {
	GetPendingOrder(ctx context.Context, orderID string) (*domain.PendingOrder, error)
}

type OrderLog interface {
	Append(entry string) error
}

type Dispatcher interface {
	Dispatch(msg notify.Message)
}

type Processor struct {
	payments   PaymentFetcher
	orders     OrderFinder
	log        OrderLog
	dispatcher Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func NewProcessor(payments PaymentFetcher, orders OrderFinder, log OrderLog, dispatcher Dispatcher, logger *slog.Logger, now func() time.Time) *Processor {
	if now == nil {
		now = time.Now
	}
	return &Processor{
		payments:   payments,
		orders:     orders,
		log:        log,
		dispatcher: dispatcher,
		logger:     logger,
		now:        now,
	}
}

// ParseNotification extracts the payment id from a JSON body or, when the
// body carries no event type, from the ?type=payment&data.id= query form.
// It reports false for anything that is not a payment event.
func ParseNotification(body []byte, query url.Values) (string, bool) {
	var n domain.PaymentNotification
	if err := json.Unmarshal(body, &n); err == nil && n.Type != "" {
		id := strings.TrimSpace(string(n.Data.ID))
		return id, n.Type == "payment" && id != ""
	}

	kind := query.Get("type")
	if kind == "" {
		kind = query.Get("topic")
	}
	id := query.Get("data.id")
	if id == "" {
		id = query.Get("id")
	}
	id = strings.TrimSpace(id)
	return id, kind == "payment" && id != ""
}

// HandleNotification runs one notification to completion. The error is
// non-nil only when the order could not be recorded, which the caller should
// answer with a 5xx so the provider retries.
func (p *Processor) HandleNotification(ctx context.Context, body []byte, query url.Values) (Outcome, error) {
	outcome, err := p.handle(ctx, body, query)
	if err != nil {
		metrics.WebhookOutcomes.WithLabelValues("error").Inc()
		return outcome, err
	}
	metrics.WebhookOutcomes.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

func (p *Processor) handle(ctx context.Context, body []byte, query url.Values) (Outcome, error) {
	paymentID, ok := ParseNotification(body, query)
	if !ok {
		p.logger.DebugContext(ctx, "ignoring notification", "body", string(body), "query", query.Encode())
		return OutcomeIgnored, nil
	}

	payment, err := p.payments.GetPayment(ctx, paymentID)
	if err != nil {
		p.logger.WarnContext(ctx, "payment lookup failed", "payment_id", paymentID, "error", err)
		return OutcomeNotApproved, nil
	}
	if !payment.Approved() {
		p.logger.InfoContext(ctx, "payment not approved", "payment_id", paymentID, "status", payment.Status)
		return OutcomeNotApproved, nil
	}

	summary := Summary{
		PaymentID:  paymentID,
		OrderID:    payment.ExternalReference,
		Payer:      payment.Payer,
		Items:      providerItems(payment),
		ApprovedAt: p.now(),
	}

	if summary.OrderID != "" {
		order, err := p.orders.GetPendingOrder(ctx, summary.OrderID)
		switch {
		case err == nil:
			summary.Shipping = order.Shipping
			if order.Items != nil {
				summary.Items = domain.LineItemsFromCart(order.Items)
			}
		case errors.Is(err, repository.ErrOrderNotFound):
			p.logger.WarnContext(ctx, "approved payment without pending order", "payment_id", paymentID, "order_id", summary.OrderID)
		default:
			p.logger.ErrorContext(ctx, "pending order unreadable, using provider data", "payment_id", paymentID, "order_id", summary.OrderID, "error", err)
		}
	}

	text := summary.Format()
	if err := p.log.Append(text); err != nil {
		return OutcomeProcessed, fmt.Errorf("append order log: %w", err)
	}

	p.dispatcher.Dispatch(notify.Message{
		OrderID:   summary.OrderID,
		PaymentID: paymentID,
		Subject:   EmailSubject,
		Body:      text,
		SentAt:    summary.ApprovedAt,
	})

	p.logger.InfoContext(ctx, "approved order recorded", "payment_id", paymentID, "order_id", summary.OrderID)
	return OutcomeProcessed, nil
}

func providerItems(p *domain.PaymentDetails) []domain.LineItem {
	items := make([]domain.LineItem, 0, len(p.AdditionalInfo.Items))
	for _, it := range p.AdditionalInfo.Items {
		items = append(items, it.LineItem())
	}
	return items
}

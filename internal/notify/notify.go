// Package notify delivers approved-order summaries: a durable append-only
// order log plus best-effort side channels such as email and Kafka.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/southsidewear/storefront/internal/metrics"
)

// Message is one approved-order notification.
type Message struct {
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	SentAt    time.Time `json:"sent_at"`
}

type Notifier interface {
	Send(ctx context.Context, msg Message) error
	Name() string
}

// Multi sends to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, msg); err != nil {
			metrics.NotificationFailures.WithLabelValues(n.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Name() string {
	return "multi"
}

// Dispatcher runs notifiers in the background so a slow or failing channel
// never holds up the caller.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	logger   *slog.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, timeout: timeout, logger: logger}
}

// Dispatch sends msg asynchronously. Failures are logged and dropped.
func (d *Dispatcher) Dispatch(msg Message) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.notifier.Send(ctx, msg); err != nil {
			d.logger.Warn("order notification failed",
				"order_id", msg.OrderID,
				"payment_id", msg.PaymentID,
				"error", err,
			)
		}
	}()
}

// Wait blocks until in-flight dispatches finish or ctx ends.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

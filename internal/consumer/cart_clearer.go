// Package consumer empties the buyer's cart once its order is paid, either
// from the approved-order topic or in process.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/southsidewear/storefront/internal/notify"
	"github.com/southsidewear/storefront/internal/session"
)

const GroupID = "storefront-cart-clearer"

// CartClearer empties the cart that produced an order.
type CartClearer interface {
	ClearCartForOrder(ctx context.Context, orderID string) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads approved-order events and clears the matching carts.
type Consumer struct {
	reader  messageReader
	clearer CartClearer
	logger  *slog.Logger
	backoff time.Duration
}

func NewConsumer(clearer CartClearer, logger *slog.Logger, topic string, brokers ...string) *Consumer {
	if topic == "" {
		topic = notify.DefaultOrderTopic
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  GroupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{
		reader:  reader,
		clearer: clearer,
		logger:  logger,
		backoff: time.Second,
	}
}

// Run consumes until ctx ends.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.processMessage(ctx); err != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(c.backoff):
			}
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Warn("error closing kafka reader", "error", err)
	}
}

// processMessage handles one event. Only read failures are returned;
// unusable events are logged and skipped.
func (c *Consumer) processMessage(ctx context.Context) error {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		c.logger.WarnContext(ctx, "error reading message", "error", err)
		return err
	}

	orderID := string(m.Key)
	if orderID == "" {
		var msg notify.Message
		if err := json.Unmarshal(m.Value, &msg); err != nil {
			c.logger.WarnContext(ctx, "error parsing message", "offset", m.Offset, "error", err)
			return nil
		}
		orderID = msg.OrderID
	}
	if orderID == "" {
		c.logger.DebugContext(ctx, "approved order event without order id", "offset", m.Offset)
		return nil
	}

	if err := c.clearer.ClearCartForOrder(ctx, orderID); err != nil {
		if errors.Is(err, session.ErrUnknownOrder) {
			c.logger.DebugContext(ctx, "no cart to clear", "order_id", orderID)
			return nil
		}
		c.logger.WarnContext(ctx, "failed to clear cart", "order_id", orderID, "error", err)
	}
	return nil
}

// Notifier clears carts in process. It is used when no broker is configured.
type Notifier struct {
	clearer CartClearer
}

func NewNotifier(clearer CartClearer) *Notifier {
	return &Notifier{clearer: clearer}
}

func (n *Notifier) Name() string {
	return "cart-clear"
}

func (n *Notifier) Send(ctx context.Context, msg notify.Message) error {
	if msg.OrderID == "" {
		return nil
	}
	err := n.clearer.ClearCartForOrder(ctx, msg.OrderID)
	if errors.Is(err, session.ErrUnknownOrder) {
		return nil
	}
	return err
}

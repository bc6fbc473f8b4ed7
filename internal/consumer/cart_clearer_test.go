package consumer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/southsidewear/storefront/internal/notify"
	"github.com/southsidewear/storefront/internal/session"
)

func newTestConsumer(r *mockReader, c *mockClearer) *Consumer {
	return &Consumer{reader: r, clearer: c, logger: discardLogger(), backoff: time.Millisecond}
}

func TestProcessMessage_UsesKey(t *testing.T) {
	r := &mockReader{messages: []kafka.Message{{Key: []byte("SS-1-1"), Value: []byte(`{}`)}}}
	c := &mockClearer{}

	require.NoError(t, newTestConsumer(r, c).processMessage(context.Background()))
	assert.Equal(t, []string{"SS-1-1"}, c.cleared)
}

func TestProcessMessage_FallsBackToPayload(t *testing.T) {
	r := &mockReader{messages: []kafka.Message{{Value: []byte(`{"order_id":"SS-2-2"}`)}}}
	c := &mockClearer{}

	require.NoError(t, newTestConsumer(r, c).processMessage(context.Background()))
	assert.Equal(t, []string{"SS-2-2"}, c.cleared)
}

func TestProcessMessage_SkipsUnusableEvents(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"malformed", `not json`},
		{"no order id", `{"payment_id":"9"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &mockReader{messages: []kafka.Message{{Value: []byte(tt.value)}}}
			c := &mockClearer{}

			require.NoError(t, newTestConsumer(r, c).processMessage(context.Background()))
			assert.Empty(t, c.cleared)
		})
	}
}

func TestProcessMessage_ReadError(t *testing.T) {
	r := &mockReader{err: errors.New("broker down")}
	assert.Error(t, newTestConsumer(r, &mockClearer{}).processMessage(context.Background()))
}

func TestRun_StopsOnCancel(t *testing.T) {
	r := &mockReader{messages: []kafka.Message{{Key: []byte("SS-1-1")}, {Key: []byte("SS-3-3")}}}
	c := &mockClearer{err: fmt.Errorf("%w: SS-1-1", session.ErrUnknownOrder)}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		newTestConsumer(r, c).Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.cleared) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("consumer did not stop")
	}
}

func TestConsumer_Close(t *testing.T) {
	r := &mockReader{}
	newTestConsumer(r, &mockClearer{}).Close()
	assert.True(t, r.closed)
}

func TestNotifier_Send(t *testing.T) {
	c := &mockClearer{}
	n := NewNotifier(c)

	require.NoError(t, n.Send(context.Background(), notify.Message{OrderID: "SS-1-1"}))
	require.NoError(t, n.Send(context.Background(), notify.Message{}))
	assert.Equal(t, []string{"SS-1-1"}, c.cleared)
	assert.Equal(t, "cart-clear", n.Name())
}

func TestNotifier_IgnoresUnknownOrders(t *testing.T) {
	n := NewNotifier(&mockClearer{err: fmt.Errorf("%w: x", session.ErrUnknownOrder)})
	assert.NoError(t, n.Send(context.Background(), notify.Message{OrderID: "x"}))

	n = NewNotifier(&mockClearer{err: errors.New("redis down")})
	assert.Error(t, n.Send(context.Background(), notify.Message{OrderID: "x"}))
}

func TestConsumer_KafkaIntegration(t *testing.T) {
	if os.Getenv("STOREFRONT_INTEGRATION") == "" {
		t.Skip("set STOREFRONT_INTEGRATION=1 to run against a Kafka container")
	}
	ctx := context.Background()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})
	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)

	const topic = "storefront-orders-approved-test"
	publisher := notify.NewKafkaNotifier(topic, brokers...)
	t.Cleanup(func() { publisher.Close() })

	// the first write may race topic auto-creation
	require.Eventually(t, func() bool {
		return publisher.Send(ctx, notify.Message{OrderID: "SS-7-7", PaymentID: "1"}) == nil
	}, 30*time.Second, time.Second)

	clearer := &mockClearer{}
	consumer := NewConsumer(clearer, discardLogger(), topic, brokers...)
	t.Cleanup(consumer.Close)

	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	go consumer.Run(runCtx)

	assert.Eventually(t, func() bool {
		clearer.mu.Lock()
		defer clearer.mu.Unlock()
		return len(clearer.cleared) > 0 && clearer.cleared[0] == "SS-7-7"
	}, 60*time.Second, 500*time.Millisecond)
}

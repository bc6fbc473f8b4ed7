package consumer

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"
)

type mockReader struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	m.mu.Lock()
	if m.err != nil {
		m.mu.Unlock()
		return kafka.Message{}, m.err
	}
	if len(m.messages) == 0 {
		m.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := m.messages[0]
	m.messages = m.messages[1:]
	m.mu.Unlock()
	return msg, nil
}

func (m *mockReader) Close() error {
	m.closed = true
	return nil
}

type mockClearer struct {
	mu      sync.Mutex
	cleared []string
	err     error
}

func (m *mockClearer) ClearCartForOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleared = append(m.cleared, orderID)
	return m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

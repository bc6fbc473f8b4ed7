package storage

import (
	"context"
	"sync"
)

// MemoryStorage keeps values in process memory. Writes are announced to
// in-process watchers.
type MemoryStorage struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers map[string][]chan struct{}
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values:   make(map[string]string),
		watchers: make(map[string][]chan struct{}),
	}
}

func (m *MemoryStorage) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	for _, ch := range m.watchers[key] {
		// a watcher that has not drained the last signal will reload anyway
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (m *MemoryStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	m.mu.Lock()
	m.watchers[key] = append(m.watchers[key], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		list := m.watchers[key]
		for i, c := range list {
			if c == ch {
				m.watchers[key] = append(list[:i], list[i+1:]...)
				break
			}
		}
		close(ch)
	}()

	return ch, nil
}

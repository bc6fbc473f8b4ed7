package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const changePrefix = "storage-changed:"

func NewRedisStorage(client *redis.Client, ttl time.Duration) *RedisStorage {
	return &RedisStorage{
		client:   client,
		ttl:      ttl,
		watchers: make(map[string][]chan struct{}),
	}
}

// RedisStorage keeps values in Redis and publishes every write on a per-key
// channel so other tabs of the same session can refresh. All watchers of one
// RedisStorage share a single pattern subscription.
type RedisStorage struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.Mutex
	sub      *redis.PubSub
	watchers map[string][]chan struct{}
}

func (r *RedisStorage) Get(ctx context.Context, key string) (string, error) {
	data, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis get failed: %w", err)
	}
	return data, nil
}

func (r *RedisStorage) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if err := r.client.Publish(ctx, changeChannel(key), value).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	if err := r.subscribe(ctx); err != nil {
		return nil, err
	}

	ch := make(chan struct{}, 1)
	r.mu.Lock()
	r.watchers[key] = append(r.watchers[key], ch)
	r.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		r.removeWatcher(key, ch)
		close(ch)
	}()

	return ch, nil
}

// subscribe opens the shared subscription on first use. Receive blocks until
// it is confirmed, so no write published after Watch returns is missed.
func (r *RedisStorage) subscribe(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub != nil {
		return nil
	}

	sub := r.client.PSubscribe(ctx, changePrefix+"*")
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return fmt.Errorf("redis subscribe failed: %w", err)
	}
	r.sub = sub
	go r.fanOut(sub.Channel())
	return nil
}

func (r *RedisStorage) fanOut(msgs <-chan *redis.Message) {
	for msg := range msgs {
		key := strings.TrimPrefix(msg.Channel, changePrefix)

		r.mu.Lock()
		for _, ch := range r.watchers[key] {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		r.mu.Unlock()
	}
}

func (r *RedisStorage) removeWatcher(key string, ch chan struct{}) {
	list := r.watchers[key]
	for i, c := range list {
		if c == ch {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(r.watchers, key)
		return
	}
	r.watchers[key] = list
}

// Watchers returns the number of open watches.
func (r *RedisStorage) Watchers() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, list := range r.watchers {
		n += len(list)
	}
	return n
}

// Close drops the shared subscription. Open watch channels stay open until
// their contexts end.
func (r *RedisStorage) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sub == nil {
		return nil
	}
	err := r.sub.Close()
	r.sub = nil
	return err
}

func changeChannel(key string) string {
	return changePrefix + key
}

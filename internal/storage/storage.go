// Package storage is the key-value persistence used for per-session client
// state: the cart sequence and the product record mapping.
package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound         = errors.New("key not found")
	ErrWatchUnsupported = errors.New("storage does not support change notifications")
)

// Storage reads and writes whole string values under a key.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Watcher is implemented by storages that announce writes to other readers of
// the same key. The returned channel receives one value per write and is
// closed when ctx ends.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan struct{}, error)
}

// Namespace prefixes every key with prefix, scoping one storage to a session.
type Namespace struct {
	inner  Storage
	prefix string
}

func NewNamespace(inner Storage, prefix string) *Namespace {
	return &Namespace{inner: inner, prefix: prefix}
}

func (n *Namespace) key(k string) string {
	return n.prefix + ":" + k
}

func (n *Namespace) Get(ctx context.Context, key string) (string, error) {
	return n.inner.Get(ctx, n.key(key))
}

func (n *Namespace) Set(ctx context.Context, key, value string) error {
	return n.inner.Set(ctx, n.key(key), value)
}

func (n *Namespace) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	w, ok := n.inner.(Watcher)
	if !ok {
		return nil, ErrWatchUnsupported
	}
	return w.Watch(ctx, n.key(key))
}

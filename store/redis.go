package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spetersoncode/concierge"
)

// RedisAdapter is a Repository backed by Redis string keys.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

var _ concierge.Repository = (*RedisAdapter)(nil)

// RedisOption configures a RedisAdapter.
type RedisOption func(*RedisAdapter)

// WithTTL expires every written key after ttl. Zero, the default, means
// keys never expire.
func WithTTL(ttl time.Duration) RedisOption {
	return func(a *RedisAdapter) {
		a.ttl = ttl
	}
}

// WithPrefix namespaces all keys. Default is "concierge:".
func WithPrefix(prefix string) RedisOption {
	return func(a *RedisAdapter) {
		a.prefix = prefix
	}
}

// NewRedisAdapter creates a Redis-backed repository.
//
// Example:
//
//	repo := store.NewRedisAdapter(
//	    redis.NewClient(&redis.Options{Addr: "localhost:6379"}),
//	    store.WithPrefix("concierge:"),
//	)
func NewRedisAdapter(client *redis.Client, opts ...RedisOption) *RedisAdapter {
	a := &RedisAdapter{
		client: client,
		prefix: "concierge:",
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Get retrieves the value stored under key.
func (a *RedisAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := a.client.Get(ctx, a.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, concierge.NewTransientError(concierge.ErrStorage, "redis get "+key, 0, err)
	}
	return data, true, nil
}

// Put stores value under key.
func (a *RedisAdapter) Put(ctx context.Context, key string, value []byte) error {
	if err := a.client.Set(ctx, a.prefix+key, value, a.ttl).Err(); err != nil {
		return concierge.NewTransientError(concierge.ErrStorage, "redis set "+key, 0, err)
	}
	return nil
}

// Delete removes a key. No error if key doesn't exist.
func (a *RedisAdapter) Delete(ctx context.Context, key string) error {
	if err := a.client.Del(ctx, a.prefix+key).Err(); err != nil {
		return concierge.NewTransientError(concierge.ErrStorage, "redis del "+key, 0, err)
	}
	return nil
}

// List returns the sorted keys starting with prefix, without the adapter's
// namespace.
func (a *RedisAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := globEscaper.Replace(a.prefix+prefix) + "*"
	keys := []string{}
	iter := a.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(iter.Val(), a.prefix))
	}
	if err := iter.Err(); err != nil {
		return nil, concierge.NewTransientError(concierge.ErrStorage, "redis scan "+prefix, 0, err)
	}
	slices.Sort(keys)
	return slices.Compact(keys), nil
}

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

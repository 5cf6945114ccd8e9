// Package redis stores records as plain Redis strings under a key prefix.
package redis

import (
	"context"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
	"github.com/redis/go-redis/v9"
)

var _ securestore.Backend = (*Backend)(nil)

const defaultPrefix = "tokenkeeper:"

type Backend struct {
	rdb    redis.UniversalClient
	prefix string
}

type Option func(*Backend)

// WithPrefix namespaces every key. The default is "tokenkeeper:".
func WithPrefix(prefix string) Option {
	return func(b *Backend) {
		b.prefix = prefix
	}
}

func New(rdb redis.UniversalClient, opts ...Option) *Backend {
	b := &Backend{
		rdb:    rdb,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Dial connects to addr and checks the connection with PING.
func Dial(ctx context.Context, addr string, db int, opts ...Option) (*Backend, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Mark(errors.Wrapf(err, "ping redis %s", addr), errors.ErrStorage)
	}
	return New(rdb, opts...), nil
}

func (b *Backend) Put(ctx context.Context, key, value string) error {
	return b.rdb.Set(ctx, b.prefix+key, value, 0).Err()
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	v, err := b.rdb.Get(ctx, b.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", securestore.ErrNotFound
	}
	return v, err
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.rdb.Del(ctx, b.prefix+key).Err()
}

func (b *Backend) Close() error {
	return b.rdb.Close()
}

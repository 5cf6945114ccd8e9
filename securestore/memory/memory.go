// Package memory is an in-process securestore.Backend used in tests and for
// STORAGE_BACKEND=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
)

var _ securestore.Backend = (*Backend)(nil)

// Put is a recorded write.
type Put struct {
	Key   string
	Value string
}

type Backend struct {
	items     map[string]string
	puts      []Put
	itemLimit int
	failure   error
	lock      sync.RWMutex
}

type Option func(*Backend)

// WithItemLimit rejects values larger than limit bytes, like a capped keychain.
func WithItemLimit(limit int) Option {
	return func(b *Backend) {
		b.itemLimit = limit
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{
		items: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Put(ctx context.Context, key, value string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.check(ctx); err != nil {
		return err
	}
	if b.itemLimit > 0 && len(value) > b.itemLimit {
		return errors.Wrapf(errors.ErrStorage, "value for %q is %d bytes, limit %d", key, len(value), b.itemLimit)
	}
	b.items[key] = value
	b.puts = append(b.puts, Put{Key: key, Value: value})
	return nil
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	if err := b.check(ctx); err != nil {
		return "", err
	}
	v, ok := b.items[key]
	if !ok {
		return "", securestore.ErrNotFound
	}
	return v, nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	if err := b.check(ctx); err != nil {
		return err
	}
	delete(b.items, key)
	return nil
}

// SetFailure makes every subsequent operation return err. A nil err clears it.
func (b *Backend) SetFailure(err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failure = err
}

// Keys returns the stored keys in sorted order.
func (b *Backend) Keys() []string {
	b.lock.RLock()
	defer b.lock.RUnlock()

	keys := make([]string, 0, len(b.items))
	for k := range b.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Puts returns every successful Put in call order.
func (b *Backend) Puts() []Put {
	b.lock.RLock()
	defer b.lock.RUnlock()

	puts := make([]Put, len(b.puts))
	copy(puts, b.puts)
	return puts
}

// Raw returns the record stored under key, bypassing the failure hook.
func (b *Backend) Raw(key string) (string, bool) {
	b.lock.RLock()
	defer b.lock.RUnlock()
	v, ok := b.items[key]
	return v, ok
}

func (b *Backend) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.failure
}

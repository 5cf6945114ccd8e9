// Package keyring stores values in the operating system credential store
// (macOS Keychain, Secret Service, Windows Credential Manager, ...).
package keyring

import (
	"context"
	"sync"

	"github.com/99designs/keyring"
	"github.com/jrsteele09/go-tokenkeeper/internal/errors"
	"github.com/jrsteele09/go-tokenkeeper/securestore"
)

var _ securestore.Backend = (*Backend)(nil)

const defaultLabel = "tokenkeeper credential"

type Backend struct {
	ring  keyring.Keyring
	label string
	mu    sync.Mutex
}

type Option func(*Backend)

// WithLabel sets the label shown by keychain UIs.
func WithLabel(label string) Option {
	return func(b *Backend) {
		b.label = label
	}
}

// New wraps an already opened keyring.
func New(ring keyring.Keyring, opts ...Option) *Backend {
	b := &Backend{
		ring:  ring,
		label: defaultLabel,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Open opens the platform keyring for serviceName.
func Open(serviceName string, opts ...Option) (*Backend, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName:                    serviceName,
		KeychainTrustApplication:       true,
		KeychainAccessibleWhenUnlocked: true,
		LibSecretCollectionName:        "login",
	})
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "open keyring %q", serviceName), errors.ErrStorage)
	}
	return New(ring, opts...), nil
}

func (b *Backend) Put(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: b.label,
	})
}

func (b *Backend) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	item, err := b.ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", securestore.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	err := b.ring.Remove(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}

package token

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/jrsteele09/go-tokenkeeper/credential"
	"github.com/rs/zerolog"
)

const (
	DefaultStorageKey    = "oauth_token"
	DefaultRefreshBuffer = time.Minute
)

type ManagerOption func(*Manager)

// WithStorageKey sets the key the credential is persisted under.
func WithStorageKey(key string) ManagerOption {
	return func(m *Manager) {
		m.storageKey = key
	}
}

// WithRefreshBuffer sets how long before expiry the credential is refreshed.
func WithRefreshBuffer(buffer time.Duration) ManagerOption {
	return func(m *Manager) {
		m.buffer = buffer
	}
}

// WithAutoRefreshDisabled stops the manager from scheduling refreshes.
// Manual Refresh calls still work.
func WithAutoRefreshDisabled() ManagerOption {
	return func(m *Manager) {
		m.autoRefresh = false
	}
}

func WithClock(clock clockwork.Clock) ManagerOption {
	return func(m *Manager) {
		m.clock = clock
	}
}

func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = logger
	}
}

// WithOnChange registers a callback invoked with a copy of every committed
// credential, nil included.
func WithOnChange(fn func(*credential.Credential)) ManagerOption {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// WithSessionDismisser registers a callback run after logout, used to close
// any authentication UI still open.
func WithSessionDismisser(fn func()) ManagerOption {
	return func(m *Manager) {
		m.dismiss = fn
	}
}

func WithRevocationQueue(queue RevocationQueue) ManagerOption {
	return func(m *Manager) {
		m.revocations = queue
	}
}

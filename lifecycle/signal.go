// Package lifecycle reports when the process moves between foreground and
// background and keeps the token refresh schedule honest across suspensions.
package lifecycle

import (
	"sync"

	"github.com/google/uuid"
)

// AppState is the foreground state of the application.
type AppState string

const (
	Active     AppState = "active"
	Background AppState = "background"
	// Inactive is a transitional state some platforms report; it is treated
	// as Background.
	Inactive AppState = "inactive"
)

// IsActive reports whether s is the foreground state.
func (s AppState) IsActive() bool {
	return s == Active
}

// Signal delivers AppState changes.
type Signal interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(AppState)) (unsubscribe func())
}

// Publisher accepts AppState changes.
type Publisher interface {
	Publish(state AppState)
}

type subscription struct {
	id string
	fn func(AppState)
}

// Broadcaster is an in-process Signal. Publish calls subscribers synchronously
// in subscription order.
type Broadcaster struct {
	subs []subscription
	mu   sync.RWMutex
}

var (
	_ Signal    = (*Broadcaster)(nil)
	_ Publisher = (*Broadcaster)(nil)
)

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

func (b *Broadcaster) Subscribe(fn func(AppState)) func() {
	id := uuid.NewString()

	b.mu.Lock()
	b.subs = append(b.subs, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			for i, s := range b.subs {
				if s.id == id {
					b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (b *Broadcaster) Publish(state AppState) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(state)
	}
}

// Len returns the number of subscribers.
func (b *Broadcaster) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

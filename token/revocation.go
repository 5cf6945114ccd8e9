package token

import (
	"sync"
)

// RevocationQueue holds access tokens that must be revoked once the
// authorization server is known.
type RevocationQueue interface {
	Add(accessToken string)
	// Drain returns the queued tokens in insertion order and empties the queue.
	Drain() []string
	Len() int
}

// InMemoryRevocationQueue is a simple in-memory implementation. A token is
// queued at most once.
type InMemoryRevocationQueue struct {
	pending []string
	queued  map[string]struct{}
	mu      sync.Mutex
}

func NewInMemoryRevocationQueue() RevocationQueue {
	return &InMemoryRevocationQueue{
		queued: make(map[string]struct{}),
	}
}

func (q *InMemoryRevocationQueue) Add(accessToken string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, exists := q.queued[accessToken]; exists {
		return
	}
	q.queued[accessToken] = struct{}{}
	q.pending = append(q.pending, accessToken)
}

func (q *InMemoryRevocationQueue) Drain() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	pending := q.pending
	q.pending = nil
	q.queued = make(map[string]struct{})
	return pending
}

func (q *InMemoryRevocationQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

package lifecycle

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Target is the refresh schedule the Reconciler corrects. *token.Manager
// satisfies it.
type Target interface {
	ScheduledDeadline() (deadline time.Time, ok bool)
	RefreshNow(ctx context.Context)
	Reschedule()
}

// Reconciler fixes the refresh schedule when the application returns to the
// foreground. Timers may not advance while the process is suspended, so a
// refresh that became due in the meantime is run at once and any other
// pending refresh is re-armed for the real time remaining.
type Reconciler struct {
	ctx         context.Context
	target      Target
	clock       clockwork.Clock
	log         zerolog.Logger
	unsubscribe func()
	closeOnce   sync.Once

	mu   sync.Mutex
	prev AppState
}

type ReconcilerOption func(*Reconciler)

func WithClock(clock clockwork.Clock) ReconcilerOption {
	return func(r *Reconciler) {
		r.clock = clock
	}
}

func WithLogger(logger zerolog.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		r.log = logger
	}
}

// NewReconciler subscribes to signal. The application is assumed to start in
// the foreground.
func NewReconciler(ctx context.Context, target Target, signal Signal, opts ...ReconcilerOption) *Reconciler {
	r := &Reconciler{
		ctx:    ctx,
		target: target,
		clock:  clockwork.NewRealClock(),
		log:    log.Logger,
		prev:   Active,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.unsubscribe = signal.Subscribe(r.handle)
	return r
}

// Close unsubscribes from the signal. It is safe to call more than once.
func (r *Reconciler) Close() {
	r.closeOnce.Do(r.unsubscribe)
}

func (r *Reconciler) handle(state AppState) {
	r.mu.Lock()
	prev := r.prev
	r.prev = state
	r.mu.Unlock()

	if prev.IsActive() || !state.IsActive() {
		return
	}

	deadline, ok := r.target.ScheduledDeadline()
	if !ok {
		return
	}

	if now := r.clock.Now(); !now.Before(deadline) {
		r.log.Info().Time("deadline", deadline).Msg("Refresh deadline passed while in background, refreshing now")
		r.target.RefreshNow(r.ctx)
		return
	}
	r.log.Debug().Time("deadline", deadline).Msg("Rescheduling refresh after returning to foreground")
	r.target.Reschedule()
}

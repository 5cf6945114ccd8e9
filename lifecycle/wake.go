package lifecycle

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultWakeInterval = 30 * time.Second

// WakeDetector notices system sleep: it ticks on the monotonic clock, which
// stops during sleep, and compares against the wall clock, which does not.
// A gap much larger than the interval is published as Background then Active.
type WakeDetector struct {
	publisher Publisher
	clock     clockwork.Clock
	interval  time.Duration
	threshold time.Duration
	log       zerolog.Logger
}

type WakeOption func(*WakeDetector)

func WithWakeClock(clock clockwork.Clock) WakeOption {
	return func(w *WakeDetector) {
		w.clock = clock
	}
}

func WithWakeLogger(logger zerolog.Logger) WakeOption {
	return func(w *WakeDetector) {
		w.log = logger
	}
}

// WithWakeInterval sets how often the clocks are compared. The gap that counts
// as a wake-up defaults to twice the interval.
func WithWakeInterval(interval time.Duration) WakeOption {
	return func(w *WakeDetector) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func NewWakeDetector(p Publisher, opts ...WakeOption) *WakeDetector {
	w := &WakeDetector{
		publisher: p,
		clock:     clockwork.NewRealClock(),
		interval:  DefaultWakeInterval,
		log:       log.Logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.threshold = 2 * w.interval
	return w
}

// Run blocks until ctx is done.
func (w *WakeDetector) Run(ctx context.Context) {
	// Round(0) drops the monotonic reading so Sub measures wall time.
	last := w.clock.Now().Round(0)
	ticker := w.clock.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			now := w.clock.Now().Round(0)
			if gap := now.Sub(last); gap > w.threshold {
				w.log.Info().Dur("gap", gap).Msg("Detected wake from sleep")
				w.publisher.Publish(Background)
				w.publisher.Publish(Active)
			}
			last = now
		}
	}
}

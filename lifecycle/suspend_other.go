//go:build !unix

package lifecycle

import (
	"context"

	"github.com/rs/zerolog"
)

// NotifyProcessSuspend is a no-op on platforms without job-control signals.
// The WakeDetector still covers system sleep there.
func NotifyProcessSuspend(ctx context.Context, p Publisher, logger zerolog.Logger) (stop func()) {
	return func() {}
}

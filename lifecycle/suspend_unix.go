//go:build unix

package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
)

// NotifyProcessSuspend publishes Background when the process is stopped from
// the terminal (SIGTSTP) and Background then Active when it is continued
// (SIGCONT). The returned function stops listening.
func NotifyProcessSuspend(ctx context.Context, p Publisher, logger zerolog.Logger) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGTSTP, syscall.SIGCONT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-sigs:
				switch sig {
				case syscall.SIGTSTP:
					logger.Info().Msg("Suspending")
					p.Publish(Background)
					// Handling SIGTSTP suppresses the default stop, so stop explicitly.
					if err := syscall.Kill(os.Getpid(), syscall.SIGSTOP); err != nil {
						logger.Err(err).Msg("Failed to stop process")
					}
				case syscall.SIGCONT:
					logger.Info().Msg("Resumed")
					p.Publish(Background)
					p.Publish(Active)
				}
			}
		}
	}()

	return func() {
		signal.Stop(sigs)
		cancel()
		<-done
	}
}

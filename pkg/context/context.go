package context

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pipebench/pipebench/pkg/log"
)

var (
	ctx            context.Context
	cancel         context.CancelFunc
	ctxInitialized sync.Once
)

// AddInterruptCancellation will catch the first SIGINT/SIGTERM and cancel the context.
// Upon the second signal the program exits immediately, which is the only way out of a
// reactor that is blocked on a stalled channel without a deadline
func AddInterruptCancellation(ctx context.Context, cancel context.CancelFunc) {
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(c)
		done := ctx.Done()
		interrupts := 0
		for {
			select {
			case <-c:
				interrupts++
				if interrupts > 1 {
					log.Info().Msg("Received multiple interrupt signals. Exiting")
					os.Exit(1)
				}
				log.Info().Msg("Received interrupt signal")
				cancel()
			case <-done:
				if interrupts > 0 {
					// keep listening so a second interrupt still force exits
					done = nil
					continue
				}
				return
			}
		}
	}()
}

// InitContext will initialize the global context used to catch interrupts. This is automatically called
// by Context and Cancel
func InitContext() {
	ctxInitialized.Do(func() {
		ctx, cancel = context.WithCancel(context.Background())
		AddInterruptCancellation(ctx, cancel)
	})
}

// Context returns the global interrupt aware context. This is safe to call from multiple goroutines
// and will always return the same context
func Context() context.Context {
	InitContext()
	return ctx
}

// Cancel will cancel the global context
func Cancel() {
	InitContext()
	cancel()
}

// WithOptionalTimeout derives a context with a deadline of d from parent. A non-positive d
// yields a plain cancellable context, so a run without a deadline keeps blocking indefinitely
func WithOptionalTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, d)
}

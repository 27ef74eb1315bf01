// Package poll runs a bounded recurring check until a stop condition holds.
//
// Both the reminder scheduler and the AI response watcher are built on it:
// a fixed interval, an idempotent read on every tick, and a stop condition
// reported by the check itself.
package poll

import (
	"context"
	"log/slog"
	"time"
)

// Func is one check. Returning done=true ends the loop. A non-nil error
// abandons the current tick only; the next tick runs as usual.
type Func func(ctx context.Context) (done bool, err error)

type settings struct {
	immediate bool
	logger    *slog.Logger
	name      string
}

// Option configures Until.
type Option func(*settings)

// Immediately runs the first check before waiting for the first tick.
func Immediately() Option {
	return func(s *settings) { s.immediate = true }
}

// WithLogger sets the logger used for failed checks.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// Named labels log lines from this loop.
func Named(name string) Option {
	return func(s *settings) { s.name = name }
}

// Until calls fn every interval until fn reports done or ctx is cancelled.
// It returns nil when fn reported done and ctx.Err() on cancellation. Once ctx
// is cancelled no further check starts; a check already running is not
// interrupted by Until itself.
func Until(ctx context.Context, interval time.Duration, fn Func, opts ...Option) error {
	s := settings{logger: slog.Default(), name: "poll"}
	for _, o := range opts {
		o(&s)
	}
	if interval <= 0 {
		interval = time.Second
	}

	if s.immediate {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.check(ctx, fn) {
			return nil
		}
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		// Cancellation and a tick can be ready together; cancellation wins.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.check(ctx, fn) {
			return nil
		}
	}
}

func (s settings) check(ctx context.Context, fn Func) bool {
	done, err := fn(ctx)
	if err != nil {
		s.logger.Warn("check failed, retrying next tick", "loop", s.name, "error", err)
		return false
	}
	return done
}

package exchange

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kalambet/ainoter/internal/poll"
	"github.com/kalambet/ainoter/internal/storage"
)

// Loader reads an exchange by id.
type Loader interface {
	Load(ctx context.Context, accountID, id int64) (Exchange, error)
}

// Watcher re-reads an exchange until its response arrives.
type Watcher struct {
	loader   Loader
	interval time.Duration
	logger   *slog.Logger
}

// NewWatcher creates a Watcher. If interval is <= 0, it defaults to 2s.
func NewWatcher(loader Loader, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Watcher{loader: loader, interval: interval, logger: slog.Default()}
}

// Wait returns the exchange once its response is non-empty. Cancelling ctx
// stops watching; the background call keeps running and still stores its
// result. A deleted exchange ends the wait with storage.ErrNotFound.
func (w *Watcher) Wait(ctx context.Context, accountID, id int64) (Exchange, error) {
	var (
		result  Exchange
		waitErr error
	)
	err := poll.Until(ctx, w.interval, func(ctx context.Context) (bool, error) {
		ex, err := w.loader.Load(ctx, accountID, id)
		if errors.Is(err, storage.ErrNotFound) {
			waitErr = err
			return true, nil
		}
		if err != nil {
			return false, err
		}
		if ex.Pending() {
			return false, nil
		}
		result = ex
		return true, nil
	}, poll.Immediately(), poll.WithLogger(w.logger.With("exchange_id", id)), poll.Named("exchange"))
	if err != nil {
		return Exchange{}, err
	}
	if waitErr != nil {
		return Exchange{}, waitErr
	}
	return result, nil
}

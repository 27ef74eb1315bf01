package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kalambet/ainoter/internal/poll"
	"github.com/kalambet/ainoter/internal/storage"
)

// ErrStopped is returned by Start after the scheduler has been stopped.
var ErrStopped = errors.New("scheduler stopped")

// ErrSoundMissing is returned by a Notifier whose sound resource does not
// exist. The scheduler ignores it.
var ErrSoundMissing = errors.New("sound resource missing")

// Source yields due reminders and records delivery. *Manager implements it.
type Source interface {
	Due(ctx context.Context, accountID int64, now time.Time) ([]Reminder, error)
	Delete(ctx context.Context, accountID, id int64) error
}

// Notifier presents a reminder to the user.
type Notifier interface {
	// Play starts the notification sound. It is best-effort.
	Play(ctx context.Context, sound string) error
	// Acknowledge shows text and blocks until the user dismisses it.
	Acknowledge(ctx context.Context, title, text string) error
}

type State int32

const (
	Idle State = iota
	Delivering
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Delivering:
		return "delivering"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

type Options struct {
	// Interval between polls. Defaults to 5s.
	Interval time.Duration
	// Sound is passed to Notifier.Play for every delivery.
	Sound  string
	Clock  Clock
	Logger *slog.Logger
}

// Scheduler delivers the due reminders of one account. It is created at
// login and stopped at logout; each session owns exactly one.
type Scheduler struct {
	source    Source
	accountID int64
	notifier  Notifier
	interval  time.Duration
	sound     string
	clock     Clock
	logger    *slog.Logger

	state  atomic.Int32
	pollMu sync.Mutex // one batch at a time

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewScheduler(source Source, accountID int64, notifier Notifier, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Scheduler{
		source:    source,
		accountID: accountID,
		notifier:  notifier,
		interval:  opts.Interval,
		sound:     opts.Sound,
		clock:     opts.Clock,
		logger:    opts.Logger.With("account_id", accountID),
	}
	s.state.Store(int32(Idle))
	return s
}

func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Start launches the poll loop. The first poll runs one interval after
// Start. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.cancel != nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		_ = poll.Until(ctx, s.interval, func(ctx context.Context) (bool, error) {
			// The batch runs to completion even if Stop arrives mid-way.
			_, err := s.PollOnce(context.WithoutCancel(ctx))
			return false, err
		}, poll.WithLogger(s.logger), poll.Named("reminders"))
	}()

	s.logger.Info("reminder scheduler started", "interval", s.interval)
	return nil
}

// Stop halts the loop and waits for a batch in progress to finish. No poll
// starts after Stop is called. Stop is idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.state.Store(int32(Stopped))
	s.logger.Info("reminder scheduler stopped")
}

// PollOnce delivers every reminder due now, in order, and returns how many
// were delivered. Each reminder is deleted before it is shown, so it is
// never shown twice; if a delete fails the batch stops there.
func (s *Scheduler) PollOnce(ctx context.Context) (int, error) {
	s.pollMu.Lock()
	defer s.pollMu.Unlock()

	now := s.clock.Now()
	due, err := s.source.Due(ctx, s.accountID, now)
	if err != nil {
		return 0, fmt.Errorf("querying due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	defer s.setIdle()
	delivered := 0
	for _, r := range due {
		s.state.CompareAndSwap(int32(Idle), int32(Delivering))

		if err := s.source.Delete(ctx, s.accountID, r.ID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Removed by the user since the query.
				continue
			}
			return delivered, fmt.Errorf("deleting reminder %d: %w", r.ID, err)
		}

		if err := s.notifier.Play(ctx, s.sound); err != nil {
			if errors.Is(err, ErrSoundMissing) {
				s.logger.Debug("no notification sound", "sound", s.sound)
			} else {
				s.logger.Warn("playing notification sound", "error", err)
			}
		}

		if err := s.notifier.Acknowledge(ctx, "Reminder", r.Text); err != nil {
			s.logger.Warn("acknowledgment failed", "reminder_id", r.ID, "error", err)
		}
		delivered++
		s.logger.Info("reminder delivered", "reminder_id", r.ID)
	}
	return delivered, nil
}

func (s *Scheduler) setIdle() {
	s.state.CompareAndSwap(int32(Delivering), int32(Idle))
}

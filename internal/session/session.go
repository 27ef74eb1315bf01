// Package session owns the state of one logged-in account: the account
// itself and its reminder scheduler.
package session

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/kalambet/ainoter/internal/account"
)

// Scheduler is the background task started at login and stopped at logout.
type Scheduler interface {
	Start() error
	Stop()
}

type Session struct {
	account account.Account
	sched   Scheduler
	logger  *slog.Logger

	once sync.Once
	done chan struct{}
}

// Open starts sched on behalf of acc. The caller must Close the session.
func Open(acc account.Account, sched Scheduler) (*Session, error) {
	if err := sched.Start(); err != nil {
		return nil, fmt.Errorf("starting reminder scheduler: %w", err)
	}
	s := &Session{
		account: acc,
		sched:   sched,
		logger:  slog.Default().With("account_id", acc.ID),
		done:    make(chan struct{}),
	}
	s.logger.Info("session opened", "username", acc.Username)
	return s, nil
}

func (s *Session) Account() account.Account { return s.account }

// Close logs out: it stops the scheduler and closes Done. Safe to call
// more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.sched.Stop()
		close(s.done)
		s.logger.Info("session closed")
	})
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} { return s.done }

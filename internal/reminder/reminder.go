// Package reminder stores timed reminders and delivers them when due.
//
// Delivery is recorded by deleting the row: a reminder that no longer
// exists cannot be matched again.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kalambet/ainoter/internal/storage"
	"github.com/kalambet/ainoter/internal/validation"
)

// Store is the subset of the persistence gateway used by Manager.
type Store interface {
	Insert(ctx context.Context, t storage.Table, fields storage.Fields) (int64, error)
	Update(ctx context.Context, t storage.Table, id, ownerID int64, fields storage.Fields) error
	Delete(ctx context.Context, t storage.Table, id, ownerID int64) error
	Get(ctx context.Context, dest any, t storage.Table, id, ownerID int64) error
	Select(ctx context.Context, dest any, t storage.Table, f storage.Filter, orderBy ...storage.Order) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Reminder is a text due at a local wall-clock time. Due has second
// precision and no time zone of its own.
type Reminder struct {
	ID        int64
	AccountID int64
	Text      string
	Due       time.Time
	CreatedAt time.Time
}

type Manager struct {
	store  Store
	clock  Clock
	logger *slog.Logger
}

func NewManager(store Store) *Manager {
	return NewManagerWithClock(store, realClock{})
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store Store, clock Clock) *Manager {
	return &Manager{store: store, clock: clock, logger: slog.Default()}
}

type input struct {
	Text string `validate:"notblank,max=1000"`
}

// Save inserts r when r.ID is 0 and replaces text and due time otherwise.
// The due time must be strictly after the current time.
func (m *Manager) Save(ctx context.Context, accountID int64, r Reminder) (Reminder, error) {
	text := strings.TrimSpace(r.Text)
	if err := validation.Struct(input{Text: text}); err != nil {
		return Reminder{}, err
	}
	due := r.Due.In(time.Local).Truncate(time.Second)
	now := m.clock.Now()
	if !due.After(now) {
		return Reminder{}, validation.New("due", "must be in the future")
	}

	if r.ID == 0 {
		created := now.UTC().Truncate(time.Second)
		id, err := m.store.Insert(ctx, storage.Reminders, storage.Fields{
			"account_id": accountID,
			"text":       text,
			"due_at":     storage.FormatDue(due),
			"created_at": storage.FormatTimestamp(created),
		})
		if err != nil {
			return Reminder{}, fmt.Errorf("creating reminder: %w", err)
		}
		return Reminder{ID: id, AccountID: accountID, Text: text, Due: due, CreatedAt: created}, nil
	}

	err := m.store.Update(ctx, storage.Reminders, r.ID, accountID, storage.Fields{
		"text":   text,
		"due_at": storage.FormatDue(due),
	})
	if err != nil {
		return Reminder{}, fmt.Errorf("updating reminder %d: %w", r.ID, err)
	}
	return m.Load(ctx, accountID, r.ID)
}

func (m *Manager) Load(ctx context.Context, accountID, id int64) (Reminder, error) {
	var row storage.ReminderRow
	if err := m.store.Get(ctx, &row, storage.Reminders, id, accountID); err != nil {
		return Reminder{}, fmt.Errorf("loading reminder %d: %w", id, err)
	}
	return m.fromRow(row), nil
}

func (m *Manager) Delete(ctx context.Context, accountID, id int64) error {
	if err := m.store.Delete(ctx, storage.Reminders, id, accountID); err != nil {
		return fmt.Errorf("deleting reminder %d: %w", id, err)
	}
	return nil
}

// List returns all pending reminders of the account, soonest first.
func (m *Manager) List(ctx context.Context, accountID int64) ([]Reminder, error) {
	return m.selectWhere(ctx, accountID, nil)
}

// Due returns the reminders due at or before now, ordered by due time and
// then id.
func (m *Manager) Due(ctx context.Context, accountID int64, now time.Time) ([]Reminder, error) {
	return m.selectWhere(ctx, accountID, []storage.Cond{
		{Column: "due_at", Op: storage.OpLTE, Value: storage.FormatDue(now)},
	})
}

func (m *Manager) selectWhere(ctx context.Context, accountID int64, conds []storage.Cond) ([]Reminder, error) {
	var rows []storage.ReminderRow
	err := m.store.Select(ctx, &rows, storage.Reminders,
		storage.Filter{OwnerID: accountID, Conds: conds},
		storage.Order{Column: "due_at"}, storage.Order{Column: "id"})
	if err != nil {
		return nil, fmt.Errorf("listing reminders: %w", err)
	}
	out := make([]Reminder, len(rows))
	for i, r := range rows {
		out[i] = m.fromRow(r)
	}
	return out, nil
}

func (m *Manager) fromRow(r storage.ReminderRow) Reminder {
	due, err := storage.ParseDue(r.DueAt)
	if err != nil {
		m.logger.Warn("unparseable due time", "reminder_id", r.ID, "value", r.DueAt, "error", err)
	}
	created, _ := storage.ParseTimestamp(r.CreatedAt)
	return Reminder{ID: r.ID, AccountID: r.AccountID, Text: r.Text, Due: due, CreatedAt: created}
}

package storage

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a requested record does not exist or is
	// owned by a different account. Callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable wraps driver failures: the store could not be opened or queried.
	ErrUnavailable = errors.New("storage unavailable")
)

// DueLayout is the on-disk format of reminder due times. Due times are
// timezone-naive local wall-clock values; the fixed width keeps string
// comparison in SQL consistent with time ordering.
const DueLayout = "2006-01-02T15:04:05"

// FormatTimestamp renders an audit timestamp (created/updated) in UTC.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseTimestamp parses a value written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// FormatDue renders a reminder due time as naive local time.
func FormatDue(t time.Time) string {
	return t.In(time.Local).Format(DueLayout)
}

// ParseDue parses a naive due time in the local time zone.
func ParseDue(s string) (time.Time, error) {
	return time.ParseInLocation(DueLayout, s, time.Local)
}

type AccountRow struct {
	ID           int64  `db:"id"`
	Username     string `db:"username"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

type NoteRow struct {
	ID        int64  `db:"id"`
	AccountID int64  `db:"account_id"`
	Title     string `db:"title"`
	Content   string `db:"content"` // JSON array of blocks stored as text
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

type ReminderRow struct {
	ID        int64  `db:"id"`
	AccountID int64  `db:"account_id"`
	Text      string `db:"text"`
	DueAt     string `db:"due_at"`
	CreatedAt string `db:"created_at"`
}

type ExchangeRow struct {
	ID        int64  `db:"id"`
	AccountID int64  `db:"account_id"`
	Prompt    string `db:"prompt"`
	Response  string `db:"response"`
	CreatedAt string `db:"created_at"`
}

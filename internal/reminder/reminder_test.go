package reminder

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/ainoter/internal/storage"
	"github.com/kalambet/ainoter/internal/validation"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createAccount(t *testing.T, s *storage.Store, name string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), storage.Accounts, storage.Fields{
		"username":      name,
		"password_hash": "x",
		"created_at":    storage.FormatTimestamp(time.Now()),
	})
	require.NoError(t, err)
	return id
}

var t0 = time.Date(2026, 6, 1, 9, 0, 0, 0, time.Local)

func TestSaveValidation(t *testing.T) {
	s := openTestStore(t)
	alice := createAccount(t, s, "alice")
	m := NewManagerWithClock(s, &mockClock{now: t0})
	ctx := context.Background()

	_, err := m.Save(ctx, alice, Reminder{Text: "  ", Due: t0.Add(time.Hour)})
	assert.True(t, validation.IsValidation(err), "blank text: %v", err)

	_, err = m.Save(ctx, alice, Reminder{Text: "past", Due: t0.Add(-time.Minute)})
	assert.True(t, validation.IsValidation(err), "past due: %v", err)

	_, err = m.Save(ctx, alice, Reminder{Text: "now", Due: t0})
	assert.True(t, validation.IsValidation(err), "due == now: %v", err)

	list, err := m.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSaveAndUpdate(t *testing.T) {
	s := openTestStore(t)
	alice := createAccount(t, s, "alice")
	m := NewManagerWithClock(s, &mockClock{now: t0})
	ctx := context.Background()

	r, err := m.Save(ctx, alice, Reminder{Text: " Standup ", Due: t0.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, "Standup", r.Text)

	r.Text = "Retro"
	r.Due = t0.Add(2 * time.Hour)
	updated, err := m.Save(ctx, alice, r)
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "Retro", updated.Text)
	assert.True(t, updated.Due.Equal(t0.Add(2*time.Hour)), "due = %v", updated.Due)
}

func TestListAscendingByDue(t *testing.T) {
	s := openTestStore(t)
	alice := createAccount(t, s, "alice")
	m := NewManagerWithClock(s, &mockClock{now: t0})
	ctx := context.Background()

	for _, d := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		_, err := m.Save(ctx, alice, Reminder{Text: d.String(), Due: t0.Add(d)})
		require.NoError(t, err)
	}
	list, err := m.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "1h0m0s", list[0].Text)
	assert.Equal(t, "3h0m0s", list[2].Text)
}

func TestDueIncludesBoundary(t *testing.T) {
	s := openTestStore(t)
	alice := createAccount(t, s, "alice")
	clock := &mockClock{now: t0}
	m := NewManagerWithClock(s, clock)
	ctx := context.Background()

	exact, err := m.Save(ctx, alice, Reminder{Text: "exact", Due: t0.Add(time.Minute)})
	require.NoError(t, err)
	_, err = m.Save(ctx, alice, Reminder{Text: "later", Due: t0.Add(time.Minute + time.Second)})
	require.NoError(t, err)

	due, err := m.Due(ctx, alice, t0.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, exact.ID, due[0].ID)
}

func TestReminderOwnership(t *testing.T) {
	s := openTestStore(t)
	alice := createAccount(t, s, "alice")
	bob := createAccount(t, s, "bob")
	m := NewManagerWithClock(s, &mockClock{now: t0})
	ctx := context.Background()

	r, err := m.Save(ctx, alice, Reminder{Text: "private", Due: t0.Add(time.Hour)})
	require.NoError(t, err)

	_, err = m.Load(ctx, bob, r.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = m.Save(ctx, bob, Reminder{ID: r.ID, Text: "x", Due: t0.Add(time.Hour)})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, m.Delete(ctx, bob, r.ID), storage.ErrNotFound)

	due, err := m.Due(ctx, bob, t0.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, due)
}

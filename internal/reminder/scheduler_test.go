package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/ainoter/internal/storage"
)

type delivery struct {
	title string
	text  string
}

type mockNotifier struct {
	mu      sync.Mutex
	played  int
	acked   []delivery
	playErr error
	block   chan struct{} // when set, Acknowledge waits on it
	entered chan struct{}
}

func (n *mockNotifier) Play(context.Context, string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.played++
	return n.playErr
}

func (n *mockNotifier) Acknowledge(_ context.Context, title, text string) error {
	if n.entered != nil {
		n.entered <- struct{}{}
	}
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.acked = append(n.acked, delivery{title: title, text: text})
	return nil
}

func (n *mockNotifier) texts() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, len(n.acked))
	for i, d := range n.acked {
		out[i] = d.text
	}
	return out
}

// flakySource wraps a Manager and fails selected calls.
type flakySource struct {
	*Manager
	mu         sync.Mutex
	dueErrs    int
	deleteFail map[int64]bool
	dueCalls   int
}

func (f *flakySource) Due(ctx context.Context, accountID int64, now time.Time) ([]Reminder, error) {
	f.mu.Lock()
	f.dueCalls++
	if f.dueErrs > 0 {
		f.dueErrs--
		f.mu.Unlock()
		return nil, storage.ErrUnavailable
	}
	f.mu.Unlock()
	return f.Manager.Due(ctx, accountID, now)
}

func (f *flakySource) Delete(ctx context.Context, accountID, id int64) error {
	if f.deleteFail[id] {
		return storage.ErrUnavailable
	}
	return f.Manager.Delete(ctx, accountID, id)
}

func (f *flakySource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dueCalls
}

type fixture struct {
	store *storage.Store
	mgr   *Manager
	clock *mockClock
	alice int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := openTestStore(t)
	clock := &mockClock{now: t0}
	return &fixture{store: s, mgr: NewManagerWithClock(s, clock), clock: clock, alice: createAccount(t, s, "alice")}
}

func (f *fixture) add(t *testing.T, text string, due time.Time) Reminder {
	t.Helper()
	r, err := f.mgr.Save(context.Background(), f.alice, Reminder{Text: text, Due: due})
	require.NoError(t, err)
	return r
}

func TestPollDeliversDueOnceEach(t *testing.T) {
	f := newFixture(t)
	f.add(t, "second", t0.Add(2*time.Minute))
	f.add(t, "first", t0.Add(time.Minute))
	f.add(t, "future", t0.Add(time.Hour))
	f.clock.Set(t0.Add(5 * time.Minute))

	n := &mockNotifier{}
	s := NewScheduler(f.mgr, f.alice, n, Options{Clock: f.clock})

	count, err := s.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []string{"first", "second"}, n.texts())
	assert.Equal(t, 2, n.played)

	left, err := f.mgr.List(context.Background(), f.alice)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "future", left[0].Text)

	// A second poll with nothing newly due delivers nothing.
	count, err = s.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, n.texts(), 2)
	assert.Equal(t, Idle, s.State())
}

func TestPollBoundaryDueEqualsNow(t *testing.T) {
	f := newFixture(t)
	f.add(t, "exact", t0.Add(time.Minute))
	f.clock.Set(t0.Add(time.Minute))

	n := &mockNotifier{}
	count, err := NewScheduler(f.mgr, f.alice, n, Options{Clock: f.clock}).PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"exact"}, n.texts())
}

func TestPollTieBreakByID(t *testing.T) {
	f := newFixture(t)
	due := t0.Add(time.Minute)
	a := f.add(t, "a", due)
	b := f.add(t, "b", due)
	require.Less(t, a.ID, b.ID)
	f.clock.Set(due)

	n := &mockNotifier{}
	_, err := NewScheduler(f.mgr, f.alice, n, Options{Clock: f.clock}).PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.texts())
}

func TestPollMissingSoundStillAcknowledges(t *testing.T) {
	f := newFixture(t)
	f.add(t, "quiet", t0.Add(time.Minute))
	f.clock.Set(t0.Add(time.Hour))

	n := &mockNotifier{playErr: ErrSoundMissing}
	count, err := NewScheduler(f.mgr, f.alice, n, Options{Clock: f.clock, Sound: "missing.wav"}).PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"quiet"}, n.texts())
}

func TestPollStoreUnavailableRetriesNextTick(t *testing.T) {
	f := newFixture(t)
	f.add(t, "eventually", t0.Add(time.Minute))
	f.clock.Set(t0.Add(time.Hour))

	src := &flakySource{Manager: f.mgr, dueErrs: 1}
	n := &mockNotifier{}
	s := NewScheduler(src, f.alice, n, Options{Clock: f.clock})

	_, err := s.PollOnce(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Empty(t, n.texts())

	count, err := s.PollOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestPollDeleteFailureStopsBatch(t *testing.T) {
	f := newFixture(t)
	first := f.add(t, "first", t0.Add(time.Minute))
	second := f.add(t, "second", t0.Add(2*time.Minute))
	f.add(t, "third", t0.Add(3*time.Minute))
	f.clock.Set(t0.Add(time.Hour))

	src := &flakySource{Manager: f.mgr, deleteFail: map[int64]bool{second.ID: true}}
	n := &mockNotifier{}
	count, err := NewScheduler(src, f.alice, n, Options{Clock: f.clock}).PollOnce(context.Background())
	assert.ErrorIs(t, err, storage.ErrUnavailable)
	assert.Equal(t, 1, count)
	assert.Equal(t, []string{"first"}, n.texts())

	_, err = f.mgr.Load(context.Background(), f.alice, first.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = f.mgr.Load(context.Background(), f.alice, second.ID)
	assert.NoError(t, err, "undelivered reminder must survive")
}

func TestPollSkipsReminderDeletedMeanwhile(t *testing.T) {
	f := newFixture(t)
	r := f.add(t, "gone", t0.Add(time.Minute))
	f.clock.Set(t0.Add(time.Hour))

	src := &racingSource{Manager: f.mgr, victim: r.ID}
	n := &mockNotifier{}
	count, err := NewScheduler(src, f.alice, n, Options{Clock: f.clock}).PollOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, n.texts())
}

// racingSource deletes victim right after returning it as due.
type racingSource struct {
	*Manager
	victim int64
}

func (r *racingSource) Due(ctx context.Context, accountID int64, now time.Time) ([]Reminder, error) {
	due, err := r.Manager.Due(ctx, accountID, now)
	if err == nil {
		_ = r.Manager.Delete(ctx, accountID, r.victim)
	}
	return due, err
}

func TestSchedulerDeliversPastDueOnFirstTick(t *testing.T) {
	f := newFixture(t)
	f.add(t, "overdue", t0.Add(time.Minute))
	f.clock.Set(t0.Add(24 * time.Hour))

	n := &mockNotifier{}
	s := NewScheduler(f.mgr, f.alice, n, Options{Clock: f.clock, Interval: 10 * time.Millisecond})
	require.NoError(t, s.Start())
	defer s.Stop()

	require.Eventually(t, func() bool { return len(n.texts()) == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestSchedulerStopPreventsFurtherPolls(t *testing.T) {
	f := newFixture(t)
	src := &flakySource{Manager: f.mgr}
	n := &mockNotifier{}
	s := NewScheduler(src, f.alice, n, Options{Clock: f.clock, Interval: 5 * time.Millisecond})
	require.NoError(t, s.Start())

	require.Eventually(t, func() bool { return src.calls() >= 2 }, 2*time.Second, time.Millisecond)
	s.Stop()
	assert.Equal(t, Stopped, s.State())

	f.add(t, "after logout", t0.Add(time.Minute))
	f.clock.Set(t0.Add(time.Hour))
	calls := src.calls()
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, calls, src.calls(), "no poll may run after Stop")
	assert.Empty(t, n.texts())

	s.Stop()
	assert.ErrorIs(t, s.Start(), ErrStopped)
}

func TestSchedulerStopWaitsForBatch(t *testing.T) {
	f := newFixture(t)
	f.add(t, "one", t0.Add(time.Minute))
	f.add(t, "two", t0.Add(2*time.Minute))
	f.clock.Set(t0.Add(time.Hour))

	n := &mockNotifier{block: make(chan struct{}), entered: make(chan struct{}, 2)}
	s := NewScheduler(f.mgr, f.alice, n, Options{Clock: f.clock, Interval: 5 * time.Millisecond})
	require.NoError(t, s.Start())

	select {
	case <-n.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first reminder was not presented")
	}
	assert.Equal(t, Delivering, s.State())

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a reminder was awaiting acknowledgment")
	case <-time.After(30 * time.Millisecond):
	}

	close(n.block)
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return after the batch finished")
	}

	assert.Equal(t, []string{"one", "two"}, n.texts())
	assert.Equal(t, Stopped, s.State())
}

func TestAliceStandupScenario(t *testing.T) {
	s := openTestStore(t)
	alice := createAccount(t, s, "alice")
	mgr := NewManager(s)
	ctx := context.Background()

	_, err := mgr.Save(ctx, alice, Reminder{Text: "Standup", Due: time.Now().Add(time.Second)})
	require.NoError(t, err)

	n := &mockNotifier{}
	sched := NewScheduler(mgr, alice, n, Options{Interval: 100 * time.Millisecond})
	require.NoError(t, sched.Start())
	defer sched.Stop()

	require.Eventually(t, func() bool { return len(n.texts()) == 1 }, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"Standup"}, n.texts())

	list, err := mgr.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, list)

	time.Sleep(300 * time.Millisecond)
	assert.Len(t, n.texts(), 1, "delivered exactly once")
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "delivering", Delivering.String())
	assert.Equal(t, "stopped", Stopped.String())
	assert.False(t, errors.Is(ErrStopped, ErrSoundMissing))
}

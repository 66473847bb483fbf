package viewer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/queueview/internal/core"
)

// scriptedFetcher replays results in order and repeats the last one.
type scriptedFetcher struct {
	mu       sync.Mutex
	results  []fetchResult
	calls    int
	inFlight int
	overlap  bool
	gate     chan struct{}
}

type fetchResult struct {
	snapshot *core.Snapshot
	err      error
}

func (f *scriptedFetcher) Fetch(ctx context.Context) (*core.Snapshot, error) {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > 1 {
		f.overlap = true
	}
	res := f.results[min(f.calls, len(f.results)-1)]
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return res.snapshot, res.err
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func waitParked(t *testing.T, clock *FakeClock, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return clock.Waiters() == n }, time.Second, time.Millisecond)
}

func TestPollerPollsImmediatelyThenAfterInterval(t *testing.T) {
	clock := NewFakeClock(epoch)
	view := &recordingView{}
	fetcher := &scriptedFetcher{results: []fetchResult{{snapshot: snapshotOf(testJob(1, "pending"))}}}
	p := NewPoller(fetcher, NewReconciler(view, nil), PollerConfig{Clock: clock})

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	waitParked(t, clock, 1)
	assert.Equal(t, 1, fetcher.Calls())

	clock.Advance(DefaultInterval - time.Millisecond)
	assert.Equal(t, 1, fetcher.Calls())

	clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return fetcher.Calls() == 2 }, time.Second, time.Millisecond)
	waitParked(t, clock, 1)

	status := p.Status()
	assert.True(t, status.Running)
	assert.Equal(t, 2, status.Polls)
	assert.Equal(t, 0, status.Failures)
}

func TestPollerSerializesPolls(t *testing.T) {
	clock := NewFakeClock(epoch)
	gate := make(chan struct{})
	fetcher := &scriptedFetcher{
		results: []fetchResult{{snapshot: snapshotOf()}},
		gate:    gate,
	}
	p := NewPoller(fetcher, NewReconciler(&recordingView{}, nil), PollerConfig{Clock: clock})

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	require.Eventually(t, func() bool { return fetcher.Calls() == 1 }, time.Second, time.Millisecond)

	// the next poll is only scheduled once the slow one returns
	clock.Advance(10 * DefaultInterval)
	assert.Equal(t, 0, clock.Waiters())
	assert.Equal(t, 1, fetcher.Calls())

	gate <- struct{}{}
	waitParked(t, clock, 1)

	clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return fetcher.Calls() == 2 }, time.Second, time.Millisecond)
	gate <- struct{}{}
	waitParked(t, clock, 1)

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	assert.False(t, fetcher.overlap)
}

func TestPollerKeepsRowsOnFailure(t *testing.T) {
	clock := NewFakeClock(epoch)
	table := newTestTable(clock, OrderAscending)
	r := NewReconciler(table, nil)
	fetcher := &scriptedFetcher{results: []fetchResult{
		{snapshot: snapshotOf(testJob(1, "pending"), testJob(2, "pending"))},
		{err: errors.New("connection refused")},
		{err: core.ErrMalformedSnapshot},
		{snapshot: snapshotOf(testJob(2, "pending"))},
	}}
	p := NewPoller(fetcher, r, PollerConfig{Clock: clock, Interval: time.Second})

	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, []core.JobID{1, 2}, table.IDs())

	err := p.Poll(context.Background())
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, []core.JobID{1, 2}, table.IDs())

	err = p.Poll(context.Background())
	assert.ErrorIs(t, err, core.ErrMalformedSnapshot)
	assert.Equal(t, []core.JobID{1, 2}, table.IDs())

	status := p.Status()
	assert.Equal(t, 3, status.Polls)
	assert.Equal(t, 2, status.Failures)
	assert.Equal(t, core.ErrMalformedSnapshot.Error(), status.LastError)
	assert.Equal(t, epoch, status.LastSuccess)

	require.NoError(t, p.Poll(context.Background()))
	assert.Equal(t, []core.JobID{2}, table.IDs())
	assert.Empty(t, p.Status().LastError)
}

func TestPollerReschedulesAfterFailure(t *testing.T) {
	clock := NewFakeClock(epoch)
	view := &recordingView{}
	fetcher := &scriptedFetcher{results: []fetchResult{
		{err: errors.New("timeout")},
		{snapshot: snapshotOf(testJob(8, "pending"))},
	}}
	p := NewPoller(fetcher, NewReconciler(view, nil), PollerConfig{Clock: clock})

	require.NoError(t, p.Start(context.Background()))
	defer p.Stop()

	waitParked(t, clock, 1)
	assert.Equal(t, 1, p.Status().Failures)

	clock.Advance(DefaultInterval)
	require.Eventually(t, func() bool { return len(p.reconciler.Displayed()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []core.JobID{8}, p.reconciler.Displayed())
	assert.Equal(t, []call{{"insert", 8}}, view.calls)
}

func TestPollerStartStop(t *testing.T) {
	clock := NewFakeClock(epoch)
	fetcher := &scriptedFetcher{results: []fetchResult{{snapshot: snapshotOf()}}}
	p := NewPoller(fetcher, NewReconciler(&recordingView{}, nil), PollerConfig{Clock: clock})

	require.NoError(t, p.Start(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyRunning)
	waitParked(t, clock, 1)

	p.Stop()
	assert.False(t, p.Status().Running)
	assert.Equal(t, 0, clock.Waiters())
	calls := fetcher.Calls()

	clock.Advance(10 * DefaultInterval)
	assert.Equal(t, calls, fetcher.Calls())

	// stopping twice is harmless and the poller can be started again
	p.Stop()
	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return fetcher.Calls() == calls+1 }, time.Second, time.Millisecond)
	p.Stop()
}

func TestPollerStopsWithContext(t *testing.T) {
	clock := NewFakeClock(epoch)
	fetcher := &scriptedFetcher{results: []fetchResult{{snapshot: snapshotOf()}}}
	p := NewPoller(fetcher, NewReconciler(&recordingView{}, nil), PollerConfig{Clock: clock})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, p.Start(ctx))
	waitParked(t, clock, 1)

	cancel()
	select {
	case <-p.Done():
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	assert.False(t, p.Status().Running)
}

func TestPollerFetchTimeout(t *testing.T) {
	fetcher := &scriptedFetcher{
		results: []fetchResult{{snapshot: snapshotOf()}},
		gate:    make(chan struct{}),
	}
	p := NewPoller(fetcher, NewReconciler(&recordingView{}, nil), PollerConfig{
		Clock:        NewFakeClock(epoch),
		FetchTimeout: 10 * time.Millisecond,
	})

	err := p.Poll(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

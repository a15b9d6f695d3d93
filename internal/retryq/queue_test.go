package retryq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/dispatch"
	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
)

type fakeRecorder struct {
	mu   sync.Mutex
	recs []delivery.Record
}

func (f *fakeRecorder) Append(_ context.Context, rec delivery.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recs = append(f.recs, rec)
}

func (f *fakeRecorder) byStatus(s delivery.Status) []delivery.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []delivery.Record
	for _, r := range f.recs {
		if r.Status == s {
			out = append(out, r)
		}
	}
	return out
}

type fakeDispatcher struct {
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(context.Context, event.DispatchRequest) (dispatch.Result, error) {
	f.calls++
	if f.err != nil {
		return dispatch.Result{}, f.err
	}
	return dispatch.Result{Delivered: 1}, nil
}

type manualClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *manualClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *manualClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func slaReq() event.DispatchRequest {
	return event.DispatchRequest{
		TenantID: "t-1",
		Type:     event.TicketSLABreach,
		After:    event.Entity{ID: "tk-9", Title: "SLA breach", Priority: event.PriorityUrgent},
	}
}

func TestEnqueueWritesQueuedRecordAndReportsDepth(t *testing.T) {
	rec := &fakeRecorder{}
	q := New(rec)

	depth := q.Enqueue(context.Background(), slaReq())
	assert.Equal(t, 1, depth)
	assert.Equal(t, 1, q.Depth())

	queued := rec.byStatus(delivery.StatusQueued)
	require.Len(t, queued, 1)
	assert.Equal(t, "t-1", queued[0].TenantID)
	assert.Empty(t, queued[0].RecipientID, "queued records are per dispatch, not per recipient")
	assert.Equal(t, delivery.KindImmediate, queued[0].Kind)
}

func TestRunner_SuccessRemovesItem(t *testing.T) {
	rec := &fakeRecorder{}
	clk := &manualClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	q := New(rec).WithClock(clk.now)
	disp := &fakeDispatcher{}
	r := NewRunner(zap.NewNop(), q, disp, time.Second)

	q.Enqueue(context.Background(), slaReq())
	r.Tick(context.Background())

	assert.Equal(t, 1, disp.calls)
	assert.Zero(t, q.Depth())
	assert.Empty(t, rec.byStatus(delivery.StatusDeadLetter))
}

func TestRunner_BackoffScheduleThenDeadLetter(t *testing.T) {
	rec := &fakeRecorder{}
	clk := &manualClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	q := New(rec).WithClock(clk.now)
	disp := &fakeDispatcher{err: errors.New("smtp: connection refused")}
	r := NewRunner(zap.NewNop(), q, disp, time.Second)
	ctx := context.Background()

	q.Enqueue(ctx, slaReq())

	// Attempt 1 fails, next try +1s out.
	r.Tick(ctx)
	require.Equal(t, 1, q.Depth())
	assert.Equal(t, clk.now().Add(1*time.Second), q.items[0].nextAttemptAt)

	// Not due yet: a tick in between is a no-op.
	r.Tick(ctx)
	assert.Equal(t, 1, disp.calls)

	// Attempt 2 fails, next try +4s out.
	clk.advance(1 * time.Second)
	r.Tick(ctx)
	assert.Equal(t, clk.now().Add(4*time.Second), q.items[0].nextAttemptAt)

	// Attempt 3 fails, next try +12s out.
	clk.advance(4 * time.Second)
	r.Tick(ctx)
	assert.Equal(t, clk.now().Add(12*time.Second), q.items[0].nextAttemptAt)
	assert.Equal(t, 3, disp.calls)

	// Schedule exhausted: picked once more, dead-lettered without another
	// transport attempt, queue left empty.
	clk.advance(12 * time.Second)
	r.Tick(ctx)
	assert.Equal(t, 3, disp.calls)
	assert.Zero(t, q.Depth())

	dead := rec.byStatus(delivery.StatusDeadLetter)
	require.Len(t, dead, 1)
	assert.Equal(t, 3, dead[0].Attempts)
	assert.Equal(t, "smtp: connection refused", dead[0].LastError)
	assert.Equal(t, "tk-9", dead[0].EntityID)
}

func TestRunner_RecoveryMidSchedule(t *testing.T) {
	rec := &fakeRecorder{}
	clk := &manualClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	q := New(rec).WithClock(clk.now)
	disp := &fakeDispatcher{err: errors.New("smtp: connection refused")}
	r := NewRunner(zap.NewNop(), q, disp, time.Second)
	ctx := context.Background()

	q.Enqueue(ctx, slaReq())
	r.Tick(ctx)

	disp.err = nil
	clk.advance(1 * time.Second)
	r.Tick(ctx)

	assert.Zero(t, q.Depth())
	assert.Empty(t, rec.byStatus(delivery.StatusDeadLetter))
}

func TestRunner_OverlappingTickIsNoop(t *testing.T) {
	rec := &fakeRecorder{}
	clk := &manualClock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	q := New(rec).WithClock(clk.now)
	disp := &fakeDispatcher{}
	r := NewRunner(zap.NewNop(), q, disp, time.Second)

	q.Enqueue(context.Background(), slaReq())
	r.draining.Store(true)
	r.Tick(context.Background())

	assert.Zero(t, disp.calls)
	assert.Equal(t, 1, q.Depth())
}

func TestPopDuePicksEarliestAndRemovesIt(t *testing.T) {
	q := New(&fakeRecorder{})
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	q.items = []*item{
		{req: event.DispatchRequest{After: event.Entity{ID: "b"}}, nextAttemptAt: base.Add(2 * time.Second)},
		{req: event.DispatchRequest{After: event.Entity{ID: "a"}}, nextAttemptAt: base.Add(1 * time.Second)},
		{req: event.DispatchRequest{After: event.Entity{ID: "c"}}, nextAttemptAt: base.Add(10 * time.Second)},
	}

	it := q.popDue(base.Add(5 * time.Second))
	require.NotNil(t, it)
	assert.Equal(t, "a", it.req.After.ID)
	assert.Equal(t, 2, q.Depth())

	it = q.popDue(base.Add(5 * time.Second))
	require.NotNil(t, it)
	assert.Equal(t, "b", it.req.After.ID)

	assert.Nil(t, q.popDue(base.Add(5*time.Second)), "c is not due yet")
}

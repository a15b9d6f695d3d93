// Package retryq holds dispatches that failed transport and re-attempts
// them on a fixed backoff schedule until exhaustion, then dead-letters.
// State lives only in process memory; queued-but-undelivered items are lost
// on crash and the delivery records already written are the durable trace.
package retryq

import (
	"context"
	"sync"
	"time"

	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
)

// backoffSchedule is fixed: three extra attempts after the first failure.
var backoffSchedule = []time.Duration{1 * time.Second, 4 * time.Second, 12 * time.Second}

type item struct {
	req           event.DispatchRequest
	attempts      int
	nextAttemptAt time.Time
	lastErr       string
}

// Queue is the in-memory retry queue. All mutation goes through one mutex;
// an item is removed the instant it is picked, so at most one copy of it is
// ever in flight.
type Queue struct {
	mu    sync.Mutex
	items []*item

	records delivery.Recorder
	now     func() time.Time
}

func New(records delivery.Recorder) *Queue {
	return &Queue{records: records, now: time.Now}
}

// WithClock overrides the time source; test hook.
func (q *Queue) WithClock(now func() time.Time) *Queue {
	q.now = now
	return q
}

// Enqueue schedules a dispatch for immediate attempt and writes its
// `queued` delivery record. Safe to call while the driver is draining.
func (q *Queue) Enqueue(ctx context.Context, req event.DispatchRequest) int {
	rec := delivery.NewRecord(req.TenantID, "", req.Type, req.After.ID, delivery.KindImmediate, delivery.StatusQueued)
	q.records.Append(ctx, rec)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, &item{req: req, nextAttemptAt: q.now()})
	return len(q.items)
}

func (q *Queue) Depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// popDue removes and returns the earliest-due ready item, or nil when
// nothing is due.
func (q *Queue) popDue(now time.Time) *item {
	q.mu.Lock()
	defer q.mu.Unlock()

	best := -1
	for i, it := range q.items {
		if it.nextAttemptAt.After(now) {
			continue
		}
		if best == -1 || it.nextAttemptAt.Before(q.items[best].nextAttemptAt) {
			best = i
		}
	}
	if best == -1 {
		return nil
	}
	it := q.items[best]
	q.items = append(q.items[:best], q.items[best+1:]...)
	return it
}

func (q *Queue) requeue(it *item) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, it)
}

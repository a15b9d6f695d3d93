// Package digest accumulates per-(tenant, recipient, event-type) rolling
// counters and flushes them as one batched email when their due-time
// arrives. Entries live only in process memory; un-flushed windows are lost
// on shutdown.
package digest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/domain/policy"
	"github.com/heraldhq/herald/internal/domain/recipient"
	"github.com/heraldhq/herald/internal/domain/transport"
	"github.com/heraldhq/herald/internal/render"
)

const (
	maxEntityIDs    = 12
	maxEntityTitles = 8
)

type key struct {
	tenantID    string
	recipientID string
	eventType   event.Type
}

type entry struct {
	recipientEmail string

	// dueAt is computed from the first contribution and held fixed until
	// flush; later contributions never move it.
	dueAt time.Time

	count        int
	entityIDs    []string
	entityTitles []string
	seenIDs      map[string]struct{}
	seenTitles   map[string]struct{}

	lastStatus   string
	lastPriority string
	lastActor    string
}

type Aggregator struct {
	mu      sync.Mutex
	entries map[key]*entry

	log     *zap.Logger
	out     transport.Client
	records delivery.Recorder
	now     func() time.Time
}

func NewAggregator(log *zap.Logger, out transport.Client, records delivery.Recorder) *Aggregator {
	return &Aggregator{
		entries: make(map[key]*entry),
		log:     log.With(zap.String("component", "digest.aggregator")),
		out:     out,
		records: records,
		now:     time.Now,
	}
}

// WithClock overrides the time source; test hook.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Accumulate folds one dispatch into the recipient's digest window. Pure
// bookkeeping, never fails.
func (a *Aggregator) Accumulate(req event.DispatchRequest, rcpt recipient.Recipient, pol *policy.NotificationPolicy) {
	a.mu.Lock()
	defer a.mu.Unlock()

	k := key{tenantID: req.TenantID, recipientID: rcpt.UserID, eventType: req.Type}
	e, ok := a.entries[k]
	if !ok {
		e = &entry{
			recipientEmail: rcpt.Email,
			dueAt:          computeDueAt(a.now(), pol.Digest.Cadence, pol.Digest.DailyHourLocal, pol.QuietHours.TimezoneOffsetMinutes),
			seenIDs:        make(map[string]struct{}),
			seenTitles:     make(map[string]struct{}),
		}
		a.entries[k] = e
	}

	e.count++
	if _, seen := e.seenIDs[req.After.ID]; !seen {
		e.seenIDs[req.After.ID] = struct{}{}
		if len(e.entityIDs) < maxEntityIDs {
			e.entityIDs = append(e.entityIDs, req.After.ID)
		}
	}
	if title := req.After.Title; title != "" {
		if _, seen := e.seenTitles[title]; !seen {
			e.seenTitles[title] = struct{}{}
			if len(e.entityTitles) < maxEntityTitles {
				e.entityTitles = append(e.entityTitles, title)
			}
		}
	}
	e.lastStatus = req.After.Status
	e.lastPriority = string(req.After.Priority)
	e.lastActor = req.ActorName
}

// Len reports the number of open digest windows.
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}

// FlushDue sends one batched notification per entry whose due-time has
// arrived. Entries are deleted whether the send succeeds or not: digest
// sends are never retried, the next occurrence of the key starts a fresh
// window. Returns the number of entries flushed.
func (a *Aggregator) FlushDue(ctx context.Context, now time.Time) int {
	type due struct {
		k key
		e *entry
	}

	a.mu.Lock()
	var ready []due
	for k, e := range a.entries {
		if !e.dueAt.After(now) {
			ready = append(ready, due{k: k, e: e})
			delete(a.entries, k)
		}
	}
	a.mu.Unlock()

	for _, d := range ready {
		a.flushOne(ctx, d.k, d.e)
	}
	return len(ready)
}

func (a *Aggregator) flushOne(ctx context.Context, k key, e *entry) {
	data := render.DigestData{
		EventType:    k.eventType,
		Count:        e.count,
		EntityIDs:    e.entityIDs,
		EntityTitles: e.entityTitles,
		LastStatus:   e.lastStatus,
		LastPriority: e.lastPriority,
		LastActor:    e.lastActor,
	}

	entityID := ""
	if len(e.entityIDs) > 0 {
		entityID = e.entityIDs[0]
	}
	rec := delivery.NewRecord(k.tenantID, k.recipientID, k.eventType, entityID, delivery.KindDigest, delivery.StatusSent)
	rec.Attempts = 1

	subject := render.DigestSubject(data)
	body, err := render.DigestBody(data)
	if err == nil {
		err = a.out.SendEmail(ctx, k.tenantID, []string{e.recipientEmail}, subject, body, entityID)
	}
	if err != nil {
		rec.Status = delivery.StatusDeadLetter
		rec.LastError = err.Error()
		a.log.Warn("digest send failed",
			zap.String("tenant_id", k.tenantID),
			zap.String("recipient_id", k.recipientID),
			zap.String("event_type", string(k.eventType)),
			zap.Int("count", e.count),
			zap.Error(err),
		)
	}
	a.records.Append(ctx, rec)
}

// computeDueAt converts now into the tenant's local time via the fixed
// offset, rounds to the next cadence boundary, and converts back. Hourly
// rounds up to the start of the next local hour; daily picks the next
// occurrence of dailyHourLocal, rolling to tomorrow when today's has
// passed.
func computeDueAt(now time.Time, cadence policy.Cadence, dailyHourLocal, tzOffsetMin int) time.Time {
	offset := time.Duration(tzOffsetMin) * time.Minute
	local := now.UTC().Add(offset)

	var nextLocal time.Time
	if cadence == policy.CadenceDaily {
		nextLocal = time.Date(local.Year(), local.Month(), local.Day(), dailyHourLocal, 0, 0, 0, time.UTC)
		if !nextLocal.After(local) {
			nextLocal = nextLocal.Add(24 * time.Hour)
		}
	} else {
		nextLocal = local.Truncate(time.Hour).Add(time.Hour)
	}
	return nextLocal.Add(-offset)
}

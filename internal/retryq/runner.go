package retryq

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/dispatch"
	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
)

const minInterval = time.Second

var (
	mAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_retryq_attempts_total", Help: "Retry queue dispatch attempts.",
	})
	mRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_retryq_requeued_total", Help: "Items re-queued after a failed attempt.",
	})
	mDeadLettered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_retryq_dead_letter_total", Help: "Items dropped after exhausting the backoff schedule.",
	})
	mDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "herald_retryq_depth", Help: "Items currently waiting in the retry queue.",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "herald_retryq_tick_duration_seconds", Help: "Drain tick duration.",
		Buckets: prometheus.DefBuckets,
	})
)

// Dispatcher is the synchronous dispatch entrypoint the driver re-invokes.
type Dispatcher interface {
	Dispatch(ctx context.Context, req event.DispatchRequest) (dispatch.Result, error)
}

// Runner drains the queue on a timer. A tick that fires while the previous
// one is still draining no-ops instead of running concurrently.
type Runner struct {
	log      *zap.Logger
	queue    *Queue
	engine   Dispatcher
	interval time.Duration

	draining atomic.Bool
}

func NewRunner(log *zap.Logger, q *Queue, engine Dispatcher, interval time.Duration) *Runner {
	if interval < minInterval {
		interval = minInterval
	}
	return &Runner{
		log:      log.With(zap.String("component", "retryq.runner")),
		queue:    q,
		engine:   engine,
		interval: interval,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("retry queue driver stop")
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick drains every due item, earliest first, running each dispatch to
// completion before picking the next.
func (r *Runner) Tick(ctx context.Context) {
	if !r.draining.CompareAndSwap(false, true) {
		return
	}
	defer r.draining.Store(false)

	t0 := time.Now()
	tr := otel.Tracer("retryq.runner")
	ctx, span := tr.Start(ctx, "retryq.tick")
	defer span.End()

	processed := 0
	for {
		it := r.queue.popDue(r.queue.now())
		if it == nil {
			break
		}
		r.processItem(ctx, it)
		processed++
	}

	mDepth.Set(float64(r.queue.Depth()))
	mTickDur.Observe(time.Since(t0).Seconds())
	span.SetAttributes(attribute.Int("tick.processed", processed))
}

func (r *Runner) processItem(ctx context.Context, it *item) {
	// Exhausted items are terminal: no further transport attempt, only the
	// dead_letter record remains as evidence.
	if it.attempts >= len(backoffSchedule) {
		rec := delivery.NewRecord(it.req.TenantID, "", it.req.Type, it.req.After.ID, delivery.KindImmediate, delivery.StatusDeadLetter)
		rec.Attempts = it.attempts
		rec.LastError = it.lastErr
		r.queue.records.Append(ctx, rec)
		mDeadLettered.Inc()
		r.log.Warn("dispatch dead-lettered",
			zap.String("tenant_id", it.req.TenantID),
			zap.String("event_type", string(it.req.Type)),
			zap.String("entity_id", it.req.After.ID),
			zap.Int("attempts", it.attempts),
			zap.String("last_error", it.lastErr),
		)
		return
	}

	mAttempts.Inc()
	_, err := r.engine.Dispatch(ctx, it.req)
	if err == nil {
		return
	}

	it.attempts++
	it.lastErr = err.Error()
	it.nextAttemptAt = r.queue.now().Add(backoffSchedule[it.attempts-1])
	r.queue.requeue(it)
	mRequeued.Inc()
	r.log.Warn("dispatch failed, re-queued",
		zap.String("tenant_id", it.req.TenantID),
		zap.String("event_type", string(it.req.Type)),
		zap.Int("attempts", it.attempts),
		zap.Time("next_attempt_at", it.nextAttemptAt),
		zap.Error(err),
	)
}

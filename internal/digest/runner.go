package digest

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const minInterval = 5 * time.Second

var (
	mFlushed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "herald_digest_flushed_total", Help: "Digest entries flushed.",
	})
	mOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "herald_digest_open_windows", Help: "Digest windows currently accumulating.",
	})
	mFlushDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "herald_digest_flush_duration_seconds", Help: "Flush tick duration.",
		Buckets: prometheus.DefBuckets,
	})
)

// Runner flushes due digest windows on a timer; overlapping ticks no-op.
type Runner struct {
	log      *zap.Logger
	agg      *Aggregator
	interval time.Duration

	flushing atomic.Bool
}

func NewRunner(log *zap.Logger, agg *Aggregator, interval time.Duration) *Runner {
	if interval < minInterval {
		interval = minInterval
	}
	return &Runner{
		log:      log.With(zap.String("component", "digest.runner")),
		agg:      agg,
		interval: interval,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("digest runner stop")
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

func (r *Runner) Tick(ctx context.Context) {
	if !r.flushing.CompareAndSwap(false, true) {
		return
	}
	defer r.flushing.Store(false)

	t0 := time.Now()
	n := r.agg.FlushDue(ctx, r.agg.now())
	if n > 0 {
		mFlushed.Add(float64(n))
		r.log.Debug("digest windows flushed", zap.Int("flushed", n))
	}
	mOpen.Set(float64(r.agg.Len()))
	mFlushDur.Observe(time.Since(t0).Seconds())
}

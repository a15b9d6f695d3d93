// Package notification is the engine's upward-facing surface: synchronous
// dispatch, fire-and-forget enqueue, and the lifecycle of the two
// background drivers.
package notification

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/digest"
	"github.com/heraldhq/herald/internal/dispatch"
	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/retryq"
)

type Config struct {
	Enabled        bool
	QueueInterval  time.Duration
	DigestInterval time.Duration
}

type EnqueueAck struct {
	Queued     bool `json:"queued"`
	QueueDepth int  `json:"queue_depth"`
}

type Service struct {
	log    *zap.Logger
	engine *dispatch.Engine
	queue  *retryq.Queue
	qrun   *retryq.Runner
	drun   *digest.Runner
	cfg    Config

	mu      sync.Mutex
	stop    context.CancelFunc
	stopped chan struct{}
}

func New(log *zap.Logger, engine *dispatch.Engine, queue *retryq.Queue, qrun *retryq.Runner, drun *digest.Runner, cfg Config) *Service {
	return &Service{
		log:    log.With(zap.String("component", "notification.service")),
		engine: engine,
		queue:  queue,
		qrun:   qrun,
		drun:   drun,
		cfg:    cfg,
	}
}

// Dispatch evaluates the event synchronously. Transport failures propagate
// so the caller can decide to enqueue for retry.
func (s *Service) Dispatch(ctx context.Context, req event.DispatchRequest) (dispatch.Result, error) {
	return s.engine.Dispatch(ctx, req)
}

// Enqueue hands the event to the retry queue for background delivery.
func (s *Service) Enqueue(ctx context.Context, req event.DispatchRequest) EnqueueAck {
	depth := s.queue.Enqueue(ctx, req)
	return EnqueueAck{Queued: true, QueueDepth: depth}
}

// Start arms the queue-drain and digest-flush timers. A no-op when the
// feature flag is off. Calling Start twice without Stop is a no-op.
func (s *Service) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("notification delivery disabled, timers not armed")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	done := make(chan struct{})
	s.stopped = done

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = s.qrun.Run(runCtx)
	}()
	go func() {
		defer wg.Done()
		_ = s.drun.Run(runCtx)
	}()
	go func() {
		wg.Wait()
		close(done)
	}()

	s.log.Info("notification timers armed",
		zap.Duration("queue_interval", s.cfg.QueueInterval),
		zap.Duration("digest_interval", s.cfg.DigestInterval),
	)
}

// Stop disarms both timers and waits for in-flight ticks to finish.
// In-flight dispatches and un-flushed digest windows are dropped.
func (s *Service) Stop() {
	s.mu.Lock()
	stop, done := s.stop, s.stopped
	s.stop, s.stopped = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
	s.log.Info("notification timers stopped")
}

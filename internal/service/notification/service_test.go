package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/digest"
	"github.com/heraldhq/herald/internal/dispatch"
	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/domain/transport"
	"github.com/heraldhq/herald/internal/retryq"
)

type nullRecorder struct {
	mu sync.Mutex
	n  int
}

func (r *nullRecorder) Append(context.Context, delivery.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.n++
}

type nullTransport struct{}

func (nullTransport) SendEmail(context.Context, string, []string, string, string, string) error {
	return nil
}

func (nullTransport) SendChatCard(context.Context, string, string, string, string, []transport.Fact) error {
	return nil
}

type nullDispatcher struct{}

func (nullDispatcher) Dispatch(context.Context, event.DispatchRequest) (dispatch.Result, error) {
	return dispatch.Result{}, nil
}

func newService(enabled bool) (*Service, *nullRecorder) {
	l := zap.NewNop()
	rec := &nullRecorder{}
	agg := digest.NewAggregator(l, nullTransport{}, rec)
	queue := retryq.New(rec)
	return New(
		l,
		nil,
		queue,
		retryq.NewRunner(l, queue, nullDispatcher{}, time.Second),
		digest.NewRunner(l, agg, 5*time.Second),
		Config{Enabled: enabled, QueueInterval: time.Second, DigestInterval: 5 * time.Second},
	), rec
}

func TestService_EnqueueAcksWithDepth(t *testing.T) {
	svc, rec := newService(true)

	ack := svc.Enqueue(context.Background(), event.DispatchRequest{
		TenantID: "t-1",
		Type:     event.TicketSLABreach,
		After:    event.Entity{ID: "tk-1"},
	})
	assert.True(t, ack.Queued)
	assert.Equal(t, 1, ack.QueueDepth)
	assert.Equal(t, 1, rec.n, "queued record written")

	ack = svc.Enqueue(context.Background(), event.DispatchRequest{
		TenantID: "t-1",
		Type:     event.TicketSLABreach,
		After:    event.Entity{ID: "tk-2"},
	})
	assert.Equal(t, 2, ack.QueueDepth)
}

func TestService_StartDisabledIsNoop(t *testing.T) {
	svc, _ := newService(false)

	svc.Start(context.Background())
	svc.Stop() // must not block or panic with no timers armed
}

func TestService_StartStopLifecycle(t *testing.T) {
	svc, _ := newService(true)

	ctx := context.Background()
	svc.Start(ctx)
	svc.Start(ctx) // second Start is a no-op, not a second pair of drivers
	svc.Stop()
	svc.Stop() // idempotent
}

package intake

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/service/notification"
)

type fakeEnqueuer struct {
	reqs []event.DispatchRequest
}

func (f *fakeEnqueuer) Enqueue(_ context.Context, req event.DispatchRequest) notification.EnqueueAck {
	f.reqs = append(f.reqs, req)
	return notification.EnqueueAck{Queued: true, QueueDepth: len(f.reqs)}
}

func TestHandle_QueuesWellFormedEvent(t *testing.T) {
	svc := &fakeEnqueuer{}
	c := &Controller{Log: zap.NewNop(), Svc: svc}

	req := event.DispatchRequest{
		TenantID: "t-1",
		Type:     event.TicketCreated,
		After:    event.Entity{ID: "tk-1", Title: "Checkout broken", Priority: event.PriorityHigh},
	}
	payload, err := json.Marshal(req)
	require.NoError(t, err)

	require.NoError(t, c.handle(context.Background(), []byte("tk-1"), payload))
	require.Len(t, svc.reqs, 1)
	assert.Equal(t, req, svc.reqs[0])
}

func TestHandle_DropsMalformedPayload(t *testing.T) {
	svc := &fakeEnqueuer{}
	c := &Controller{Log: zap.NewNop(), Svc: svc}

	err := c.handle(context.Background(), nil, []byte("{not json"))
	assert.NoError(t, err, "malformed payloads must not poison the partition")
	assert.Empty(t, svc.reqs)
}

func TestHandle_DropsIncompleteEvent(t *testing.T) {
	svc := &fakeEnqueuer{}
	c := &Controller{Log: zap.NewNop(), Svc: svc}

	cases := []event.DispatchRequest{
		{Type: event.TicketCreated, After: event.Entity{ID: "tk-1"}},  // no tenant
		{TenantID: "t-1", After: event.Entity{ID: "tk-1"}},            // no type
		{TenantID: "t-1", Type: event.TicketCreated},                  // no entity id
	}
	for _, req := range cases {
		payload, err := json.Marshal(req)
		require.NoError(t, err)
		assert.NoError(t, c.handle(context.Background(), nil, payload))
	}
	assert.Empty(t, svc.reqs)
}

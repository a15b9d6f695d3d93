package intake

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/service/notification"
)

// Enqueuer is the slice of the notification service the intake needs.
type Enqueuer interface {
	Enqueue(ctx context.Context, req event.DispatchRequest) notification.EnqueueAck
}

type Controller struct {
	Log *zap.Logger
	Sub *Consumer
	Svc Enqueuer
}

func (c *Controller) Run(ctx context.Context) error {
	return c.Sub.Consume(ctx, c.handle)
}

func (c *Controller) handle(ctx context.Context, _ []byte, value []byte) error {
	var req event.DispatchRequest
	if err := json.Unmarshal(value, &req); err != nil {
		// Malformed payloads are dropped, not retried.
		c.Log.Warn("intake: undecodable event, skipping", zap.Error(err))
		return nil
	}
	if req.TenantID == "" || req.Type == "" || req.After.ID == "" {
		c.Log.Warn("intake: incomplete event, skipping",
			zap.String("tenant_id", req.TenantID),
			zap.String("event_type", string(req.Type)),
		)
		return nil
	}
	ack := c.Svc.Enqueue(ctx, req)
	c.Log.Debug("event queued",
		zap.String("tenant_id", req.TenantID),
		zap.String("event_type", string(req.Type)),
		zap.Int("queue_depth", ack.QueueDepth),
	)
	return nil
}

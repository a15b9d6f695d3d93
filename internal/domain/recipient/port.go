package recipient

import (
	"context"

	"github.com/heraldhq/herald/internal/domain/event"
)

// Resolver returns the candidate set of notifiable users for an event. The
// actor is excluded unless the event type allows self-notification.
type Resolver interface {
	Resolve(ctx context.Context, tenantID string, t event.Type, entity event.Entity, actorID string) ([]Recipient, error)
}

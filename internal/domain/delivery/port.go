package delivery

import (
	"context"

	"github.com/heraldhq/herald/internal/domain/event"
)

// Recorder appends delivery records. Implementations are fire-and-forget:
// they must swallow their own failures and never block or fail the caller's
// control flow.
type Recorder interface {
	Append(ctx context.Context, rec Record)
}

// Reader reconstructs the attempt history for a dispatch; used by health
// checks and ops tooling, never by the engine itself.
type Reader interface {
	History(ctx context.Context, tenantID string, t event.Type, entityID string) ([]Record, error)
}

type AuditEntry struct {
	TenantID   string         `json:"tenant_id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
}

type Audit interface {
	Write(ctx context.Context, e AuditEntry)
}

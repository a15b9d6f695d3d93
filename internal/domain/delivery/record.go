package delivery

import (
	"time"

	"github.com/google/uuid"

	"github.com/heraldhq/herald/internal/domain/event"
)

type Kind string

const (
	KindImmediate Kind = "immediate"
	KindDigest    Kind = "digest"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusSent       Status = "sent"
	StatusSuppressed Status = "suppressed"
	StatusFailed     Status = "failed"
	StatusDeadLetter Status = "dead_letter"
)

const ReasonDedupWindow = "dedup_window"

// Record is one delivery attempt. Records are append-only: every state
// transition produces a new row, so the attempt history for a dispatch is
// reconstructable by querying (tenant, event type, entity).
type Record struct {
	ID            uuid.UUID  `json:"id"`
	TenantID      string     `json:"tenant_id"`
	RecipientID   string     `json:"recipient_id"`
	EventType     event.Type `json:"event_type"`
	EntityID      string     `json:"entity_id"`
	Kind          Kind       `json:"kind"`
	Status        Status     `json:"status"`
	Reason        string     `json:"reason,omitempty"`
	Attempts      int        `json:"attempts"`
	NextAttemptAt *time.Time `json:"next_attempt_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func NewRecord(tenantID, recipientID string, t event.Type, entityID string, kind Kind, status Status) Record {
	return Record{
		ID:          uuid.New(),
		TenantID:    tenantID,
		RecipientID: recipientID,
		EventType:   t,
		EntityID:    entityID,
		Kind:        kind,
		Status:      status,
	}
}

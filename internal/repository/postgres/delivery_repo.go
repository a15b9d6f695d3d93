package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/delivery"
	"github.com/heraldhq/herald/internal/domain/event"
)

var (
	_ delivery.Recorder = (*DeliveryRepo)(nil)
	_ delivery.Reader   = (*DeliveryRepo)(nil)
)

// DeliveryRepo persists delivery records. Rows are append-only: every state
// transition is a fresh insert, nothing is updated in place.
type DeliveryRepo struct {
	db  *DB
	log *zap.Logger
}

func NewDeliveryRepo(db *DB, log *zap.Logger) *DeliveryRepo {
	return &DeliveryRepo{db: db, log: log.With(zap.String("component", "postgres.delivery"))}
}

const (
	qDeliveryInsert = `
INSERT INTO delivery_records
  (id, tenant_id, recipient_id, event_type, entity_id, kind, status, reason, attempts, next_attempt_at, last_error, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, COALESCE($12, now()));
`
	qDeliveryHistory = `
SELECT id, tenant_id, recipient_id, event_type, entity_id, kind, status, reason, attempts, next_attempt_at, last_error, created_at
FROM delivery_records
WHERE tenant_id = $1 AND event_type = $2 AND entity_id = $3
ORDER BY created_at ASC;
`
)

// Append is fire-and-forget per the Recorder contract: a failed insert is
// logged and swallowed so it can never fail the dispatch control flow.
func (r *DeliveryRepo) Append(ctx context.Context, rec delivery.Record) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, qDeliveryInsert,
		rec.ID,
		rec.TenantID,
		rec.RecipientID,
		string(rec.EventType),
		rec.EntityID,
		string(rec.Kind),
		string(rec.Status),
		rec.Reason,
		rec.Attempts,
		rec.NextAttemptAt,
		rec.LastError,
		nullTime(rec.CreatedAt),
	)
	if err != nil {
		r.log.Error("append delivery record failed",
			zap.String("tenant_id", rec.TenantID),
			zap.String("status", string(rec.Status)),
			zap.Error(err),
		)
	}
}

func (r *DeliveryRepo) History(ctx context.Context, tenantID string, t event.Type, entityID string) ([]delivery.Record, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qDeliveryHistory, tenantID, string(t), entityID)
	if err != nil {
		return nil, fmt.Errorf("query delivery history: %w", err)
	}
	defer rows.Close()

	var out []delivery.Record
	for rows.Next() {
		var rec delivery.Record
		if err := rows.Scan(
			&rec.ID, &rec.TenantID, &rec.RecipientID, &rec.EventType, &rec.EntityID,
			&rec.Kind, &rec.Status, &rec.Reason, &rec.Attempts, &rec.NextAttemptAt,
			&rec.LastError, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan delivery record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

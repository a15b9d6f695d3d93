package postgres

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/heraldhq/herald/internal/domain/delivery"
)

var _ delivery.Audit = (*AuditRepo)(nil)

// AuditRepo appends audit-log entries; failures are logged and swallowed,
// auditing must not fail a dispatch.
type AuditRepo struct {
	db  *DB
	log *zap.Logger
}

func NewAuditRepo(db *DB, log *zap.Logger) *AuditRepo {
	return &AuditRepo{db: db, log: log.With(zap.String("component", "postgres.audit"))}
}

const qAuditInsert = `
INSERT INTO audit_log (tenant_id, user_id, action, entity_type, entity_id, metadata, created_at)
VALUES ($1, $2, $3, $4, $5, $6, now());
`

func (r *AuditRepo) Write(ctx context.Context, e delivery.AuditEntry) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	meta, err := json.Marshal(e.Metadata)
	if err != nil {
		meta = []byte("{}")
	}
	if _, err := r.db.Pool.Exec(ctx, qAuditInsert,
		e.TenantID, e.UserID, e.Action, e.EntityType, e.EntityID, meta,
	); err != nil {
		r.log.Error("audit write failed",
			zap.String("tenant_id", e.TenantID),
			zap.String("action", e.Action),
			zap.Error(err),
		)
	}
}

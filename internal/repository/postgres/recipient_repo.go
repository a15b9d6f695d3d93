package postgres

import (
	"context"
	"fmt"

	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/domain/recipient"
)

var _ recipient.Resolver = (*RecipientRepo)(nil)

// RecipientRepo resolves the candidate notifiable users for an event from
// org membership. Critical events go to admins plus the assignee; everything
// else goes to the users directly involved with the ticket plus admins.
type RecipientRepo struct{ db *DB }

func NewRecipientRepo(db *DB) *RecipientRepo { return &RecipientRepo{db: db} }

const qMembers = `
SELECT user_id, email, display_name, role
FROM org_members
WHERE tenant_id = $1
  AND active
  AND (role = ANY($2) OR user_id = ANY($3))
ORDER BY user_id;
`

func (r *RecipientRepo) Resolve(ctx context.Context, tenantID string, t event.Type, entity event.Entity, actorID string) ([]recipient.Recipient, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	roles := []string{"owner", "admin"}
	involved := make([]string, 0, 2)
	if entity.AssigneeID != "" {
		involved = append(involved, entity.AssigneeID)
	}
	if !event.Critical(t) && entity.CreatorID != "" {
		involved = append(involved, entity.CreatorID)
	}

	rows, err := r.db.Pool.Query(ctx, qMembers, tenantID, roles, involved)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var out []recipient.Recipient
	for rows.Next() {
		var rc recipient.Recipient
		if err := rows.Scan(&rc.UserID, &rc.Email, &rc.DisplayName, &rc.Role); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		if rc.UserID == actorID && !event.SelfNotify(t) {
			continue
		}
		out = append(out, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

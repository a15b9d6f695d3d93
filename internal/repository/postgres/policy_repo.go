package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/domain/policy"
)

var _ policy.Store = (*PolicyRepo)(nil)

// PolicyRepo reads per-tenant notification policies. The engine calls Get
// on every dispatch, so the query stays a single-row primary-key lookup.
type PolicyRepo struct{ db *DB }

func NewPolicyRepo(db *DB) *PolicyRepo { return &PolicyRepo{db: db} }

const qPolicyGet = `
SELECT enabled, email_enabled, chat_enabled,
       quiet_enabled, quiet_start_hour, quiet_end_hour, tz_offset_minutes,
       digest_enabled, digest_cadence, digest_daily_hour,
       events
FROM notification_policies
WHERE tenant_id = $1;
`

func (r *PolicyRepo) Get(ctx context.Context, tenantID string) (*policy.NotificationPolicy, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	p := policy.Default()
	var cadence string
	var eventsJSON []byte

	err := r.db.Pool.QueryRow(ctx, qPolicyGet, tenantID).Scan(
		&p.Enabled, &p.Channels.Email, &p.Channels.Chat,
		&p.QuietHours.Enabled, &p.QuietHours.StartHour, &p.QuietHours.EndHour, &p.QuietHours.TimezoneOffsetMinutes,
		&p.Digest.Enabled, &cadence, &p.Digest.DailyHourLocal,
		&eventsJSON,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return policy.Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("query policy: %w", err)
	}

	if cadence != "" {
		p.Digest.Cadence = policy.Cadence(cadence)
	}
	if len(eventsJSON) > 0 {
		rules := map[event.Type]policy.EventRule{}
		if err := json.Unmarshal(eventsJSON, &rules); err != nil {
			return nil, fmt.Errorf("decode event rules: %w", err)
		}
		p.Events = rules
	}
	return p, nil
}

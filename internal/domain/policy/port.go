package policy

import "context"

type Store interface {
	// Get returns the tenant's policy with defaults applied for anything
	// unset. It never returns a nil policy on a nil error.
	Get(ctx context.Context, tenantID string) (*NotificationPolicy, error)
}

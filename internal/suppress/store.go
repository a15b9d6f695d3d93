// Package suppress enforces per-event minimum resend intervals. The store
// keeps only the most recent successful-send timestamp per suppression key;
// ShouldSend is a pure read and only MarkSent advances the window.
package suppress

import (
	"context"
	"time"
)

type Store interface {
	// ShouldSend reports whether a send is allowed: true when no prior
	// timestamp exists or the prior one is older than window.
	ShouldSend(ctx context.Context, tenantID, key string, window time.Duration) (bool, error)

	// MarkSent records a successful send. Callers must only invoke it
	// after the transport call succeeded.
	MarkSent(ctx context.Context, tenantID, key string) error
}

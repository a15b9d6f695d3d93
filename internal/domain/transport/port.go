package transport

import "context"

// Fact is one label/value pair rendered on a chat card.
type Fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Client performs the actual outbound sends and is the only collaborator
// allowed to fail on network I/O.
type Client interface {
	SendEmail(ctx context.Context, tenantID string, to []string, subject, htmlBody, entityID string) error
	// SendChatCard is best-effort; callers swallow its errors.
	SendChatCard(ctx context.Context, tenantID, title, summary, entityID string, facts []Fact) error
}

package event

import (
	"strings"
	"time"
)

type Type string

const (
	TicketCreated          Type = "ticket_created"
	TicketAssigned         Type = "ticket_assigned"
	TicketStatusChanged    Type = "ticket_status_changed"
	TicketCommented        Type = "ticket_commented"
	TicketSLABreach        Type = "ticket_sla_breach"
	TicketApprovalRequired Type = "ticket_approval_required"

	TeamMemberAdded   Type = "team_member_added"
	TeamMemberRemoved Type = "team_member_removed"
	TaskDue           Type = "task_due"
	TaskOverdue       Type = "task_overdue"
	SecurityAlert     Type = "security_alert"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Entity is a point-in-time snapshot of the ticket (or task) an event is
// about. Snapshots are taken by the caller and never mutated afterwards.
type Entity struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	Priority   Priority `json:"priority"`
	ProjectID  string   `json:"project_id"`
	AssigneeID string   `json:"assignee_id"`
	CreatorID  string   `json:"creator_id"`
}

// DispatchRequest is one notification-worthy domain event handed to the
// engine. It is immutable input; the engine never stores it.
type DispatchRequest struct {
	TenantID    string  `json:"tenant_id"`
	ActorUserID string  `json:"actor_user_id"`
	ActorName   string  `json:"actor_name"`
	Type        Type    `json:"type"`
	After       Entity  `json:"after"`
	Before      *Entity `json:"before,omitempty"`
	CommentText string  `json:"comment_text,omitempty"`
}

// Critical events bypass quiet hours for immediate delivery.
func Critical(t Type) bool {
	switch t {
	case TicketSLABreach, TicketApprovalRequired, SecurityAlert:
		return true
	}
	return false
}

// SelfNotify reports whether the acting user may be notified about their
// own event (a creator who self-assigns still wants the confirmation).
func SelfNotify(t Type) bool {
	return t == TicketCreated
}

// ChatNotifiable is the fixed allowlist of events that also produce a
// best-effort chat card, once per dispatch.
func ChatNotifiable(t Type) bool {
	switch t {
	case TicketCreated, TicketAssigned, TicketSLABreach, TicketApprovalRequired, SecurityAlert:
		return true
	}
	return false
}

// DedupWindow is the minimum interval between two sends sharing the same
// suppression key, per event type.
func DedupWindow(t Type) time.Duration {
	switch t {
	case TicketCreated:
		return 10 * time.Minute
	case TicketCommented:
		return 3 * time.Minute
	case TicketSLABreach, TicketApprovalRequired:
		return 15 * time.Minute
	case TaskDue, TaskOverdue:
		return 60 * time.Minute
	case SecurityAlert:
		return 2 * time.Minute
	}
	return 5 * time.Minute
}

// SuppressionKey identifies one logical notification for dedup purposes.
// Two dispatches with the same key inside the dedup window collapse into a
// single send per recipient.
func SuppressionKey(tenantID, recipientID string, t Type, e Entity) string {
	tail := e.Status
	if tail == "" {
		tail = e.Title
	}
	return strings.Join([]string{tenantID, recipientID, string(t), e.ID, tail}, "|")
}

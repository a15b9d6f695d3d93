package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNotifiable(t *testing.T) {
	cases := []struct {
		name string
		req  DispatchRequest
		want bool
	}{
		{"critical regardless of priority", DispatchRequest{Type: TicketSLABreach, After: Entity{Priority: PriorityLow}}, true},
		{"security alert", DispatchRequest{Type: SecurityAlert}, true},
		{"membership change", DispatchRequest{Type: TeamMemberAdded}, true},
		{"high priority ticket", DispatchRequest{Type: TicketStatusChanged, After: Entity{Priority: PriorityHigh}}, true},
		{"urgent task", DispatchRequest{Type: TaskDue, After: Entity{Priority: PriorityUrgent}}, true},
		{"normal priority ticket", DispatchRequest{Type: TicketStatusChanged, After: Entity{Priority: PriorityNormal}}, false},
		{"low priority comment", DispatchRequest{Type: TicketCommented, After: Entity{Priority: PriorityLow}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Notifiable(tc.req))
		})
	}
}

func TestDedupWindow(t *testing.T) {
	assert.Equal(t, 10*time.Minute, DedupWindow(TicketCreated))
	assert.Equal(t, 3*time.Minute, DedupWindow(TicketCommented))
	assert.Equal(t, 15*time.Minute, DedupWindow(TicketSLABreach))
	assert.Equal(t, 15*time.Minute, DedupWindow(TicketApprovalRequired))
	assert.Equal(t, 60*time.Minute, DedupWindow(TaskOverdue))
	assert.Equal(t, 2*time.Minute, DedupWindow(SecurityAlert))
	assert.Equal(t, 5*time.Minute, DedupWindow(TicketAssigned), "default window")
	assert.Equal(t, 5*time.Minute, DedupWindow(TeamMemberAdded), "default window")
}

func TestSuppressionKey(t *testing.T) {
	e := Entity{ID: "tk-1", Title: "Checkout broken", Status: "open"}
	key := SuppressionKey("t-1", "u-2", TicketStatusChanged, e)
	assert.Equal(t, "t-1|u-2|ticket_status_changed|tk-1|open", key)

	// Without a status the title anchors the key.
	e.Status = ""
	key = SuppressionKey("t-1", "u-2", TicketCreated, e)
	assert.Equal(t, "t-1|u-2|ticket_created|tk-1|Checkout broken", key)

	// Different recipients never collide.
	assert.NotEqual(t,
		SuppressionKey("t-1", "u-2", TicketCreated, e),
		SuppressionKey("t-1", "u-3", TicketCreated, e),
	)
}

func TestChatNotifiableAllowlist(t *testing.T) {
	assert.True(t, ChatNotifiable(TicketCreated))
	assert.True(t, ChatNotifiable(SecurityAlert))
	assert.False(t, ChatNotifiable(TicketCommented))
	assert.False(t, ChatNotifiable(TicketStatusChanged))
	assert.False(t, ChatNotifiable(TeamMemberRemoved))
}

func TestSelfNotify(t *testing.T) {
	assert.True(t, SelfNotify(TicketCreated))
	assert.False(t, SelfNotify(TicketAssigned))
	assert.False(t, SelfNotify(TicketCommented))
}

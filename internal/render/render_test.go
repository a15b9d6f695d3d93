package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heraldhq/herald/internal/domain/event"
)

func TestImmediateSubjectAndBody(t *testing.T) {
	req := event.DispatchRequest{
		TenantID:    "t-1",
		ActorName:   "Alice",
		Type:        event.TicketAssigned,
		CommentText: "",
		After: event.Entity{
			ID:       "tk-42",
			Title:    "Checkout broken",
			Status:   "open",
			Priority: event.PriorityHigh,
		},
	}

	subj := ImmediateSubject(req)
	assert.Contains(t, subj, "tk-42")
	assert.Contains(t, subj, "Alice assigned a ticket")
	assert.Contains(t, subj, "Checkout broken")

	body, err := ImmediateBody(req)
	require.NoError(t, err)
	assert.Contains(t, body, "Checkout broken")
	assert.Contains(t, body, "open")
	assert.Contains(t, body, "high")
	assert.NotContains(t, body, "<blockquote>", "no comment block without a comment")
}

func TestImmediateBody_EscapesTenantStrings(t *testing.T) {
	req := event.DispatchRequest{
		ActorName:   "Mallory",
		Type:        event.TicketCommented,
		CommentText: `<script>alert("x")</script>`,
		After: event.Entity{
			ID:    "tk-7",
			Title: `<img src=x onerror=alert(1)>`,
		},
	}

	body, err := ImmediateBody(req)
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
	assert.NotContains(t, body, "<img src=x")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestDigestSubjectAndBody(t *testing.T) {
	d := DigestData{
		EventType:    event.TicketCommented,
		Count:        3,
		EntityIDs:    []string{"tk-1", "tk-2"},
		EntityTitles: []string{"Broken checkout", "Slow search"},
		LastStatus:   "open",
		LastPriority: "high",
		LastActor:    "Alice",
	}

	subj := DigestSubject(d)
	assert.Contains(t, subj, "3")
	assert.Contains(t, subj, "ticket_commented")

	body, err := DigestBody(d)
	require.NoError(t, err)
	assert.Contains(t, body, "Broken checkout")
	assert.Contains(t, body, "tk-1, tk-2")
	assert.Contains(t, body, "Alice")
}

func TestDigestSubject_SingularNoun(t *testing.T) {
	subj := DigestSubject(DigestData{EventType: event.TaskDue, Count: 1})
	assert.Contains(t, subj, "1 task_due update")
	assert.NotContains(t, subj, "updates")
}

func TestChatFacts(t *testing.T) {
	req := event.DispatchRequest{
		ActorName: "Alice",
		Type:      event.TicketCreated,
		After:     event.Entity{Status: "open", Priority: event.PriorityUrgent},
	}
	facts := ChatFacts(req)
	require.Len(t, facts, 3)
	assert.Equal(t, "Status", facts[0].Name)
	assert.Equal(t, "urgent", facts[1].Value)
	assert.Equal(t, "Alice", facts[2].Value)

	req.ActorName = ""
	assert.Len(t, ChatFacts(req), 2)
}

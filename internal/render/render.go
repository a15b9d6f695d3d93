// Package render builds the outbound notification content. Bodies are HTML
// and tenant-provided strings (titles, comments) always pass through
// html/template escaping.
package render

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/heraldhq/herald/internal/domain/event"
	"github.com/heraldhq/herald/internal/domain/transport"
)

var immediateTmpl = template.Must(template.New("immediate").Parse(`<html><body>
<h3>{{.Headline}}</h3>
<p><b>{{.Title}}</b></p>
<table>
<tr><td>Status</td><td>{{.Status}}</td></tr>
<tr><td>Priority</td><td>{{.Priority}}</td></tr>
<tr><td>By</td><td>{{.Actor}}</td></tr>
</table>
{{if .Comment}}<blockquote>{{.Comment}}</blockquote>{{end}}
<p>Ticket {{.EntityID}}</p>
</body></html>
`))

var digestTmpl = template.Must(template.New("digest").Parse(`<html><body>
<h3>{{.Count}} {{.Noun}} since your last digest</h3>
{{if .Titles}}<ul>{{range .Titles}}<li>{{.}}</li>{{end}}</ul>{{end}}
<p>Latest: {{.LastActor}} &mdash; status {{.LastStatus}}, priority {{.LastPriority}}</p>
<p>Tickets: {{.IDs}}</p>
</body></html>
`))

func headline(t event.Type, actor string) string {
	switch t {
	case event.TicketCreated:
		return actor + " created a ticket"
	case event.TicketAssigned:
		return actor + " assigned a ticket"
	case event.TicketStatusChanged:
		return actor + " changed a ticket status"
	case event.TicketCommented:
		return actor + " commented on a ticket"
	case event.TicketSLABreach:
		return "SLA breached"
	case event.TicketApprovalRequired:
		return "Approval required"
	case event.TaskDue:
		return "Task due"
	case event.TaskOverdue:
		return "Task overdue"
	case event.SecurityAlert:
		return "Security alert"
	case event.TeamMemberAdded:
		return actor + " added a team member"
	case event.TeamMemberRemoved:
		return actor + " removed a team member"
	}
	return "Workspace update"
}

func ImmediateSubject(req event.DispatchRequest) string {
	return fmt.Sprintf("[%s] %s: %s", req.After.ID, headline(req.Type, req.ActorName), req.After.Title)
}

func ImmediateBody(req event.DispatchRequest) (string, error) {
	var b strings.Builder
	err := immediateTmpl.Execute(&b, map[string]any{
		"Headline": headline(req.Type, req.ActorName),
		"Title":    req.After.Title,
		"Status":   req.After.Status,
		"Priority": string(req.After.Priority),
		"Actor":    req.ActorName,
		"Comment":  req.CommentText,
		"EntityID": req.After.ID,
	})
	if err != nil {
		return "", fmt.Errorf("render immediate body: %w", err)
	}
	return b.String(), nil
}

// DigestData is the flattened view of one digest entry at flush time.
type DigestData struct {
	EventType    event.Type
	Count        int
	EntityIDs    []string
	EntityTitles []string
	LastStatus   string
	LastPriority string
	LastActor    string
}

func DigestSubject(d DigestData) string {
	noun := "updates"
	if d.Count == 1 {
		noun = "update"
	}
	return fmt.Sprintf("Digest: %d %s %s", d.Count, string(d.EventType), noun)
}

func DigestBody(d DigestData) (string, error) {
	var b strings.Builder
	err := digestTmpl.Execute(&b, map[string]any{
		"Count":        d.Count,
		"Noun":         string(d.EventType) + " events",
		"Titles":       d.EntityTitles,
		"LastActor":    d.LastActor,
		"LastStatus":   d.LastStatus,
		"LastPriority": d.LastPriority,
		"IDs":          strings.Join(d.EntityIDs, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("render digest body: %w", err)
	}
	return b.String(), nil
}

// ChatFacts builds the fact list shown on the chat card.
func ChatFacts(req event.DispatchRequest) []transport.Fact {
	facts := []transport.Fact{
		{Name: "Status", Value: req.After.Status},
		{Name: "Priority", Value: string(req.After.Priority)},
	}
	if req.ActorName != "" {
		facts = append(facts, transport.Fact{Name: "By", Value: req.ActorName})
	}
	return facts
}

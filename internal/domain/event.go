package domain

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/spec-kit/servicedesk/internal/richtext"
)

// EventType enumerates audit record kinds.
type EventType string

const (
	EventStatusChanged    EventType = "status_changed"
	EventAssigneeAssigned EventType = "assignee_assigned"
	EventAssigneeChanged  EventType = "assignee_changed"
	EventRequesterUpdated EventType = "requester_updated"
	EventReopened         EventType = "reopened"
)

// TicketEvent is an append-only audit record of one change on a ticket.
type TicketEvent struct {
	ID        int64
	TicketID  int64
	ActorID   string
	Type      EventType
	From      *string
	To        *string
	Note      *string
	CreatedAt time.Time
}

// TicketSnapshot captures the requester-editable fields before an edit.
type TicketSnapshot struct {
	Title       string         `json:"title"`
	Description richtext.Doc   `json:"description"`
	Priority    TicketPriority `json:"priority"`
	Category    string         `json:"category"`
	WorkType    *string        `json:"work_type"`
	ProjectID   *int64         `json:"project_id"`
	ProjectName *string        `json:"project_name"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// SnapshotOf copies the editable state of t.
func SnapshotOf(t *Ticket, projectName *string) TicketSnapshot {
	return TicketSnapshot{
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
		Category:    t.Category,
		WorkType:    t.WorkType,
		ProjectID:   t.ProjectID,
		ProjectName: projectName,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// RequesterEditNote is the note payload of a requester_updated event.
type RequesterEditNote struct {
	Summary string         `json:"summary"`
	Before  TicketSnapshot `json:"before"`
}

// Encode renders the note as stored on the event.
func (n RequesterEditNote) Encode() (string, error) {
	raw, err := json.Marshal(n)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

var errNotEditNote = errors.New("note is not a requester edit payload")

// ParseRequesterEditNote decodes a requester_updated note.
func ParseRequesterEditNote(note string) (RequesterEditNote, error) {
	var n RequesterEditNote
	trimmed := strings.TrimSpace(note)
	if !strings.HasPrefix(trimmed, "{") {
		return n, errNotEditNote
	}
	if err := json.Unmarshal([]byte(trimmed), &n); err != nil {
		return n, err
	}
	return n, nil
}

// Message renders a one-line description of the event for feeds.
func (e *TicketEvent) Message() string {
	note := ""
	if e.Note != nil {
		note = *e.Note
	}
	switch e.Type {
	case EventStatusChanged:
		if e.From != nil || e.To != nil {
			return orDash(e.From) + " -> " + orDash(e.To)
		}
	case EventAssigneeAssigned, EventAssigneeChanged:
		if note != "" {
			return note
		}
	case EventRequesterUpdated:
		if parsed, err := ParseRequesterEditNote(note); err == nil && strings.TrimSpace(parsed.Summary) != "" {
			return parsed.Summary
		}
	case EventReopened:
		return "reopened"
	}
	return note
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

package domain

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/richtext"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// TicketStatuses lists every status in display order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is part of the fixed status set.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

// TicketPriorities lists every priority from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p is part of the fixed priority set.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// DefaultCategory is used when a ticket is created without one.
const DefaultCategory = "general"

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          int64
	Title       string
	Description richtext.Doc
	Status      TicketStatus
	Priority    TicketPriority
	Category    string
	WorkType    *string
	ProjectID   *int64
	RequesterID string
	AssigneeID  *string
	ReopenCount int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// EditableByRequester reports whether the requester may still change fields.
func (t *Ticket) EditableByRequester() bool {
	return t.Status == TicketStatusOpen
}

// CanReopen reports whether a reopen round may be filed against status.
func CanReopen(status TicketStatus) bool {
	return status == TicketStatusResolved || status == TicketStatusClosed
}

package domain

import (
	"strings"
	"time"

	"github.com/spec-kit/servicedesk/internal/richtext"
)

// DraftTicket is an unpublished ticket owned by its requester. Every field
// but the owner is optional.
type DraftTicket struct {
	ID          int64
	Title       *string
	Description *richtext.Doc
	Priority    *TicketPriority
	Category    *string
	WorkType    *string
	ProjectID   *int64
	RequesterID string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasContent reports whether at least one field carries a value.
func (d *DraftTicket) HasContent() bool {
	if nonBlank(d.Title) || nonBlank(d.Category) || nonBlank(d.WorkType) {
		return true
	}
	if d.Priority != nil && *d.Priority != "" {
		return true
	}
	if d.ProjectID != nil {
		return true
	}
	return d.Description != nil && !richtext.IsEmpty(d.Description)
}

// NormalizeText trims s and maps a blank result to nil.
func NormalizeText(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func nonBlank(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

package domain

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/richtext"
)

// TicketComment is a message on a ticket thread. Internal comments are staff only.
type TicketComment struct {
	ID         int64
	TicketID   int64
	AuthorID   string
	Title      *string
	Body       richtext.Doc
	IsInternal bool
	ReopenID   *int64
	CreatedAt  time.Time
}

package domain

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/richtext"
)

// TicketReopen is one requester-filed reopen round.
type TicketReopen struct {
	ID          int64
	TicketID    int64
	Description richtext.Doc
	RequesterID string
	CreatedAt   time.Time
}

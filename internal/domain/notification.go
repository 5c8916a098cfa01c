package domain

import "time"

// Notification types that are not ticket event types.
const (
	NotificationNewTicket          = "new_ticket"
	NotificationRequesterCommented = "requester_commented"
)

// Notification is a derived feed entry; it is never stored.
type Notification struct {
	ID          string    `json:"id"`
	TicketID    int64     `json:"ticket_id"`
	TicketTitle string    `json:"ticket_title"`
	Type        string    `json:"type"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string       `json:"title" validate:"required,max=200"`
	Description richtext.Doc `json:"description"`
	Priority    string       `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category    string       `json:"category" validate:"max=50"`
	WorkType    *string      `json:"work_type"`
	ProjectID   *int64       `json:"project_id"`
}

// ToInput converts the request.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Category:    r.Category,
		WorkType:    r.WorkType,
		ProjectID:   r.ProjectID,
	}
}

// UpdateTicketRequest is a requester self-edit. Absent fields are left alone;
// an explicit null clears work_type or project_id.
type UpdateTicketRequest struct {
	Title       optional.Field[string]       `json:"title"`
	Description optional.Field[richtext.Doc] `json:"description"`
	Priority    optional.Field[string]       `json:"priority"`
	Category    optional.Field[string]       `json:"category"`
	WorkType    optional.Field[*string]      `json:"work_type"`
	ProjectID   optional.Field[*int64]       `json:"project_id"`
}

// ToInput converts the request.
func (r UpdateTicketRequest) ToInput() service.TicketUpdateInput {
	return service.TicketUpdateInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Category:    r.Category,
		WorkType:    r.WorkType,
		ProjectID:   r.ProjectID,
	}
}

// TicketResponse is a ticket with its people resolved.
type TicketResponse struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Description richtext.Doc `json:"description"`
	Status      string       `json:"status"`
	Priority    string       `json:"priority"`
	Category    string       `json:"category"`
	WorkType    *string      `json:"work_type"`
	ProjectID   *int64       `json:"project_id"`
	ProjectName *string      `json:"project_name"`
	Requester   *UserSummary `json:"requester"`
	Assignee    *UserSummary `json:"assignee"`
	ReopenCount int          `json:"reopen_count"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// EventResponse is one audit entry.
type EventResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	ActorID   string    `json:"actor_emp_no"`
	Type      string    `json:"type"`
	From      *string   `json:"from_value"`
	To        *string   `json:"to_value"`
	Note      *string   `json:"note"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketDetailResponse bundles everything the ticket page renders.
type TicketDetailResponse struct {
	Ticket      TicketResponse       `json:"ticket"`
	Comments    []CommentResponse    `json:"comments"`
	Events      []EventResponse      `json:"events"`
	Attachments []AttachmentResponse `json:"attachments"`
}

// NewTicketResponse maps a decorated ticket.
func NewTicketResponse(v *service.TicketView) TicketResponse {
	t := v.Ticket
	return TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		Category:    t.Category,
		WorkType:    t.WorkType,
		ProjectID:   t.ProjectID,
		ProjectName: v.ProjectName,
		Requester:   NewUserSummary(v.Requester),
		Assignee:    NewUserSummary(v.Assignee),
		ReopenCount: t.ReopenCount,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// NewTicketResponses maps a list.
func NewTicketResponses(views []service.TicketView) []TicketResponse {
	out := make([]TicketResponse, 0, len(views))
	for i := range views {
		out = append(out, NewTicketResponse(&views[i]))
	}
	return out
}

// NewEventResponses maps audit entries.
func NewEventResponses(events []domain.TicketEvent) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		e := &events[i]
		out = append(out, EventResponse{
			ID:        e.ID,
			TicketID:  e.TicketID,
			ActorID:   e.ActorID,
			Type:      string(e.Type),
			From:      e.From,
			To:        e.To,
			Note:      e.Note,
			Message:   e.Message(),
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}

// NewTicketDetailResponse maps the detail bundle.
func NewTicketDetailResponse(d *service.TicketDetail) TicketDetailResponse {
	return TicketDetailResponse{
		Ticket:      NewTicketResponse(&d.Ticket),
		Comments:    NewCommentResponses(d.Comments),
		Events:      NewEventResponses(d.Events),
		Attachments: NewAttachmentResponses(d.Attachments),
	}
}

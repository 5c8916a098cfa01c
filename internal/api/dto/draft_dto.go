package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
)

// DraftRequest creates or patches a draft. Every field is optional and an
// explicit null clears it.
type DraftRequest struct {
	Title       optional.Field[*string]       `json:"title"`
	Description optional.Field[*richtext.Doc] `json:"description"`
	Priority    optional.Field[*string]       `json:"priority"`
	Category    optional.Field[*string]       `json:"category"`
	WorkType    optional.Field[*string]       `json:"work_type"`
	ProjectID   optional.Field[*int64]        `json:"project_id"`
}

// ToInput converts the request.
func (r DraftRequest) ToInput() service.DraftInput {
	return service.DraftInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
		Category:    r.Category,
		WorkType:    r.WorkType,
		ProjectID:   r.ProjectID,
	}
}

// DraftResponse is one draft ticket.
type DraftResponse struct {
	ID          int64         `json:"id"`
	Title       *string       `json:"title"`
	Description *richtext.Doc `json:"description"`
	Priority    *string       `json:"priority"`
	Category    *string       `json:"category"`
	WorkType    *string       `json:"work_type"`
	ProjectID   *int64        `json:"project_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// NewDraftResponse maps a draft.
func NewDraftResponse(d *domain.DraftTicket) DraftResponse {
	resp := DraftResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		WorkType:    d.WorkType,
		ProjectID:   d.ProjectID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.Priority != nil {
		p := string(*d.Priority)
		resp.Priority = &p
	}
	return resp
}

// NewDraftResponses maps a list.
func NewDraftResponses(in []domain.DraftTicket) []DraftResponse {
	out := make([]DraftResponse, 0, len(in))
	for i := range in {
		out = append(out, NewDraftResponse(&in[i]))
	}
	return out
}

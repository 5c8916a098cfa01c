package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
)

// StatusChangeRequest moves a ticket to a new status.
type StatusChangeRequest struct {
	Status string  `json:"status" validate:"required"`
	Note   *string `json:"note"`
}

// AssignRequest sets or clears the assignee.
type AssignRequest struct {
	AssigneeEmpNo *string `json:"assignee_emp_no"`
}

// AllowedTransitionsResponse lists statuses reachable from the current one.
type AllowedTransitionsResponse struct {
	Current string   `json:"current"`
	Allowed []string `json:"allowed"`
}

// CreateProjectRequest payload.
type CreateProjectRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

// ReorderProjectsRequest lists project ids in display order.
type ReorderProjectsRequest struct {
	IDs []int64 `json:"ids" validate:"required,min=1"`
}

// AddMemberRequest payload.
type AddMemberRequest struct {
	EmployeeNo string `json:"emp_no" validate:"required"`
}

// ProjectResponse is one project row.
type ProjectResponse struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	SortOrder int        `json:"sort_order"`
	CreatedBy string     `json:"created_by"`
	CreatedAt time.Time  `json:"created_at"`
}

// MemberResponse confirms a membership.
type MemberResponse struct {
	ProjectID  int64     `json:"project_id"`
	EmployeeNo string    `json:"emp_no"`
	CreatedAt  time.Time `json:"created_at"`
}

// KnowledgeRequest creates a notice or FAQ.
type KnowledgeRequest struct {
	Title    string       `json:"title" validate:"required,max=200"`
	Body     richtext.Doc `json:"body"`
	Category *string      `json:"category"`
}

// ToInput converts the request.
func (r KnowledgeRequest) ToInput() service.KnowledgeInput {
	return service.KnowledgeInput{Title: r.Title, Body: r.Body, Category: r.Category}
}

// UpdateKnowledgeRequest edits a notice or FAQ.
type UpdateKnowledgeRequest struct {
	Title    optional.Field[string]       `json:"title"`
	Body     optional.Field[richtext.Doc] `json:"body"`
	Category optional.Field[*string]      `json:"category"`
}

// ToInput converts the request.
func (r UpdateKnowledgeRequest) ToInput() service.KnowledgeUpdateInput {
	return service.KnowledgeUpdateInput{Title: r.Title, Body: r.Body, Category: r.Category}
}

// KnowledgeResponse renders a notice or FAQ with sanitized HTML.
type KnowledgeResponse struct {
	ID          int64                `json:"id"`
	Kind        string               `json:"kind"`
	Title       string               `json:"title"`
	Body        richtext.Doc         `json:"body"`
	BodyHTML    string               `json:"body_html"`
	Category    *string              `json:"category,omitempty"`
	Author      *UserSummary         `json:"author"`
	Attachments []AttachmentResponse `json:"attachments,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// NewProjectResponse maps a project.
func NewProjectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID,
		Name:      p.Name,
		StartDate: p.StartDate,
		EndDate:   p.EndDate,
		SortOrder: p.SortOrder,
		CreatedBy: p.CreatedBy,
		CreatedAt: p.CreatedAt,
	}
}

// NewProjectResponses maps a list.
func NewProjectResponses(in []domain.Project) []ProjectResponse {
	out := make([]ProjectResponse, 0, len(in))
	for i := range in {
		out = append(out, NewProjectResponse(&in[i]))
	}
	return out
}

// NewKnowledgeResponse maps a knowledge view.
func NewKnowledgeResponse(v *service.KnowledgeView) KnowledgeResponse {
	item := v.Item
	resp := KnowledgeResponse{
		ID:        item.ID,
		Kind:      string(item.Kind),
		Title:     item.Title,
		Body:      item.Body,
		BodyHTML:  v.BodyHTML,
		Category:  item.Category,
		Author:    NewUserSummary(v.Author),
		CreatedAt: item.CreatedAt,
		UpdatedAt: item.UpdatedAt,
	}
	if len(v.Attachments) > 0 {
		resp.Attachments = NewAttachmentResponses(v.Attachments)
	}
	return resp
}

// NewKnowledgeResponses maps a list.
func NewKnowledgeResponses(in []service.KnowledgeView) []KnowledgeResponse {
	out := make([]KnowledgeResponse, 0, len(in))
	for i := range in {
		out = append(out, NewKnowledgeResponse(&in[i]))
	}
	return out
}

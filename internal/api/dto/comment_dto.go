package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/service"
)

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Title      *string      `json:"title"`
	Body       richtext.Doc `json:"body"`
	IsInternal bool         `json:"is_internal"`
	ReopenID   *int64       `json:"reopen_id"`
}

// ToInput converts the request.
func (r CreateCommentRequest) ToInput() service.CommentInput {
	return service.CommentInput{Title: r.Title, Body: r.Body, IsInternal: r.IsInternal, ReopenID: r.ReopenID}
}

// CommentResponse is a comment with its author resolved.
type CommentResponse struct {
	ID         int64        `json:"id"`
	TicketID   int64        `json:"ticket_id"`
	Author     *UserSummary `json:"author"`
	AuthorID   string       `json:"author_emp_no"`
	Title      *string      `json:"title"`
	Body       richtext.Doc `json:"body"`
	IsInternal bool         `json:"is_internal"`
	ReopenID   *int64       `json:"reopen_id"`
	CreatedAt  time.Time    `json:"created_at"`
}

// CreateReopenRequest payload.
type CreateReopenRequest struct {
	Description richtext.Doc `json:"description"`
}

// ReopenResponse is one reopen round.
type ReopenResponse struct {
	ID          int64        `json:"id"`
	TicketID    int64        `json:"ticket_id"`
	Description richtext.Doc `json:"description"`
	RequesterID string       `json:"requester_emp_no"`
	CreatedAt   time.Time    `json:"created_at"`
}

// NewCommentResponse maps a decorated comment.
func NewCommentResponse(v *service.CommentView) CommentResponse {
	c := v.Comment
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		Author:     NewUserSummary(v.Author),
		AuthorID:   c.AuthorID,
		Title:      c.Title,
		Body:       c.Body,
		IsInternal: c.IsInternal,
		ReopenID:   c.ReopenID,
		CreatedAt:  c.CreatedAt,
	}
}

// NewCommentResponses maps a list.
func NewCommentResponses(in []service.CommentView) []CommentResponse {
	out := make([]CommentResponse, 0, len(in))
	for i := range in {
		out = append(out, NewCommentResponse(&in[i]))
	}
	return out
}

// NewReopenResponse maps a reopen round.
func NewReopenResponse(r *domain.TicketReopen) ReopenResponse {
	return ReopenResponse{
		ID:          r.ID,
		TicketID:    r.TicketID,
		Description: r.Description,
		RequesterID: r.RequesterID,
		CreatedAt:   r.CreatedAt,
	}
}

// NewReopenResponses maps a list.
func NewReopenResponses(in []domain.TicketReopen) []ReopenResponse {
	out := make([]ReopenResponse, 0, len(in))
	for i := range in {
		out = append(out, NewReopenResponse(&in[i]))
	}
	return out
}

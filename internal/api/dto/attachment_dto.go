package dto

import (
	"strconv"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

// RegisterAttachmentRequest binds an object uploaded through /api/uploads.
type RegisterAttachmentRequest struct {
	Key         string `json:"key" validate:"required"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size" validate:"min=0"`
	IsInternal  bool   `json:"is_internal"`
	CommentID   *int64 `json:"comment_id"`
	ReopenID    *int64 `json:"reopen_id"`
}

// ToInput converts the request.
func (r RegisterAttachmentRequest) ToInput() service.AttachmentRegisterInput {
	return service.AttachmentRegisterInput{
		Key:         r.Key,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Size:        r.Size,
		IsInternal:  r.IsInternal,
		CommentID:   r.CommentID,
		ReopenID:    r.ReopenID,
	}
}

// StoredObjectResponse describes bytes that are not yet bound to a ticket.
type StoredObjectResponse struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	TicketID    *int64    `json:"ticket_id,omitempty"`
	CommentID   *int64    `json:"comment_id,omitempty"`
	NoticeID    *int64    `json:"notice_id,omitempty"`
	ReopenID    *int64    `json:"reopen_id,omitempty"`
	IsInternal  bool      `json:"is_internal"`
	UploadedBy  string    `json:"uploaded_by"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewAttachmentResponse maps an attachment row. The storage key stays
// server side; clients fetch bytes through the download route.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:          a.ID,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
		TicketID:    a.TicketID,
		CommentID:   a.CommentID,
		NoticeID:    a.NoticeID,
		ReopenID:    a.ReopenID,
		IsInternal:  a.IsInternal,
		UploadedBy:  a.UploadedBy,
		URL:         "/api/attachments/" + strconv.FormatInt(a.ID, 10) + "/download",
		CreatedAt:   a.CreatedAt,
	}
}

// NewAttachmentResponses maps a list.
func NewAttachmentResponses(in []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(in))
	for i := range in {
		out = append(out, NewAttachmentResponse(&in[i]))
	}
	return out
}

// NewStoredObjectResponse maps an unbound object.
func NewStoredObjectResponse(o *service.StoredObject) StoredObjectResponse {
	return StoredObjectResponse{Key: o.Key, Filename: o.Filename, ContentType: o.ContentType, Size: o.Size}
}

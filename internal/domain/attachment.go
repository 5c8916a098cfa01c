package domain

import "time"

// Attachment is metadata for a stored object bound to a ticket or notice.
type Attachment struct {
	ID          int64
	Key         string
	Filename    string
	ContentType string
	Size        int64
	TicketID    *int64
	CommentID   *int64
	NoticeID    *int64
	ReopenID    *int64
	IsInternal  bool
	UploadedBy  string
	CreatedAt   time.Time
}

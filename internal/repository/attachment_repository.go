package repository

import (
	"context"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	// Create fails with ErrDuplicate when the storage key is already bound.
	Create(ctx context.Context, attachment *domain.Attachment) error
	GetByID(ctx context.Context, id int64) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.Attachment, error)
	ListByNotice(ctx context.Context, noticeID int64) ([]domain.Attachment, error)
	Delete(ctx context.Context, id int64) error
}

type attachmentRepository struct {
	q querier
}

const attachmentColumns = `id, storage_key, filename, content_type, size_bytes, ticket_id, comment_id, notice_id, reopen_id,
               is_internal, uploaded_by_emp_no, created_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO attachments (storage_key, filename, content_type, size_bytes, ticket_id, comment_id, notice_id, reopen_id, is_internal, uploaded_by_emp_no)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	err := r.q.QueryRow(ctx, query,
		attachment.Key,
		attachment.Filename,
		attachment.ContentType,
		attachment.Size,
		attachment.TicketID,
		attachment.CommentID,
		attachment.NoticeID,
		attachment.ReopenID,
		attachment.IsInternal,
		attachment.UploadedBy,
	).Scan(&attachment.ID, &attachment.CreatedAt)
	return duplicate(err)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id int64) (*domain.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments WHERE id=$1`
	var attachment domain.Attachment
	if err := r.q.QueryRow(ctx, query, id).Scan(attachmentFields(&attachment)...); err != nil {
		return nil, notFound(err)
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.Attachment, error) {
	query := `SELECT ` + attachmentColumns + ` FROM attachments WHERE ticket_id=$1`
	if !includeInternal {
		query += ` AND is_internal = FALSE`
	}
	query += ` ORDER BY id DESC`
	return r.list(ctx, query, ticketID)
}

func (r *attachmentRepository) ListByNotice(ctx context.Context, noticeID int64) ([]domain.Attachment, error) {
	const query = `SELECT ` + attachmentColumns + ` FROM attachments WHERE notice_id=$1 ORDER BY id ASC`
	return r.list(ctx, query, noticeID)
}

func (r *attachmentRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM attachments WHERE id=$1`
	return requireAffected(r.q.Exec(ctx, query, id))
}

func (r *attachmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Attachment, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(attachmentFields(&attachment)...); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func attachmentFields(a *domain.Attachment) []any {
	return []any{
		&a.ID,
		&a.Key,
		&a.Filename,
		&a.ContentType,
		&a.Size,
		&a.TicketID,
		&a.CommentID,
		&a.NoticeID,
		&a.ReopenID,
		&a.IsInternal,
		&a.UploadedBy,
		&a.CreatedAt,
	}
}

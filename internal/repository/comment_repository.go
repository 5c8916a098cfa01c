package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
)

// CommentFeedRow is a comment joined with the title of its ticket.
type CommentFeedRow struct {
	Comment     domain.TicketComment
	TicketTitle string
}

// CommentRepository persists ticket thread comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.TicketComment) error
	GetByID(ctx context.Context, id int64) (*domain.TicketComment, error)
	ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.TicketComment, error)
	// ListRequesterCommentsOnAssigned returns public comments written by
	// requester-role users on tickets assigned to assigneeID, newest first.
	ListRequesterCommentsOnAssigned(ctx context.Context, assigneeID string, limit int) ([]CommentFeedRow, error)
}

type commentRepository struct {
	q querier
}

const commentColumns = `c.id, c.ticket_id, c.author_emp_no, c.title, c.body, c.is_internal, c.reopen_id, c.created_at`

func (r *commentRepository) Create(ctx context.Context, comment *domain.TicketComment) error {
	body, err := richtext.Serialize(comment.Body)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_comments (ticket_id, author_emp_no, title, body, is_internal, reopen_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		comment.TicketID,
		comment.AuthorID,
		comment.Title,
		body,
		comment.IsInternal,
		comment.ReopenID,
	).Scan(&comment.ID, &comment.CreatedAt)
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*domain.TicketComment, error) {
	const query = `SELECT ` + commentColumns + ` FROM ticket_comments c WHERE c.id=$1`
	comment, err := scanComment(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return comment, nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID int64, includeInternal bool) ([]domain.TicketComment, error) {
	query := `SELECT ` + commentColumns + ` FROM ticket_comments c WHERE c.ticket_id=$1`
	if !includeInternal {
		query += ` AND c.is_internal = FALSE`
	}
	query += ` ORDER BY c.id ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketComment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}
	return result, rows.Err()
}

func (r *commentRepository) ListRequesterCommentsOnAssigned(ctx context.Context, assigneeID string, limit int) ([]CommentFeedRow, error) {
	const query = `
        SELECT ` + commentColumns + `, t.title
        FROM ticket_comments c
        JOIN tickets t ON t.id = c.ticket_id
        JOIN users u ON u.emp_no = c.author_emp_no
        WHERE t.assignee_emp_no=$1 AND c.is_internal = FALSE AND u.role = 'requester'
        ORDER BY c.created_at DESC, c.id DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, assigneeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CommentFeedRow
	for rows.Next() {
		var (
			row  CommentFeedRow
			body string
		)
		c := &row.Comment
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Title, &body, &c.IsInternal, &c.ReopenID, &c.CreatedAt, &row.TicketTitle); err != nil {
			return nil, err
		}
		if c.Body, err = richtext.Deserialize(body); err != nil {
			return nil, fmt.Errorf("comment %d body: %w", c.ID, err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func scanComment(row pgx.Row) (*domain.TicketComment, error) {
	var (
		comment domain.TicketComment
		body    string
	)
	if err := row.Scan(
		&comment.ID,
		&comment.TicketID,
		&comment.AuthorID,
		&comment.Title,
		&body,
		&comment.IsInternal,
		&comment.ReopenID,
		&comment.CreatedAt,
	); err != nil {
		return nil, err
	}
	doc, err := richtext.Deserialize(body)
	if err != nil {
		return nil, fmt.Errorf("comment %d body: %w", comment.ID, err)
	}
	comment.Body = doc
	return &comment, nil
}

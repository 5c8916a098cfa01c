package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
)

// ReopenRepository persists reopen rounds.
type ReopenRepository interface {
	Create(ctx context.Context, reopen *domain.TicketReopen) error
	GetByID(ctx context.Context, id int64) (*domain.TicketReopen, error)
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketReopen, error)
}

type reopenRepository struct {
	q querier
}

func (r *reopenRepository) Create(ctx context.Context, reopen *domain.TicketReopen) error {
	description, err := richtext.Serialize(reopen.Description)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_reopens (ticket_id, description, requester_emp_no)
        VALUES ($1,$2,$3)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query, reopen.TicketID, description, reopen.RequesterID).
		Scan(&reopen.ID, &reopen.CreatedAt)
}

func (r *reopenRepository) GetByID(ctx context.Context, id int64) (*domain.TicketReopen, error) {
	const query = `
        SELECT id, ticket_id, description, requester_emp_no, created_at
        FROM ticket_reopens WHERE id=$1`
	reopen, err := scanReopen(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return reopen, nil
}

func (r *reopenRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketReopen, error) {
	const query = `
        SELECT id, ticket_id, description, requester_emp_no, created_at
        FROM ticket_reopens WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketReopen
	for rows.Next() {
		reopen, err := scanReopen(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *reopen)
	}
	return result, rows.Err()
}

func scanReopen(row pgx.Row) (*domain.TicketReopen, error) {
	var (
		reopen      domain.TicketReopen
		description string
	)
	if err := row.Scan(&reopen.ID, &reopen.TicketID, &description, &reopen.RequesterID, &reopen.CreatedAt); err != nil {
		return nil, err
	}
	doc, err := richtext.Deserialize(description)
	if err != nil {
		return nil, fmt.Errorf("reopen %d description: %w", reopen.ID, err)
	}
	reopen.Description = doc
	return &reopen, nil
}

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
)

// TicketFilter captures list parameters. Nil fields are not applied.
type TicketFilter struct {
	RequesterID *string
	AssigneeID  *string
	Status      *domain.TicketStatus
	Priority    *domain.TicketPriority
	Category    *string
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]domain.Ticket, error)
	Delete(ctx context.Context, id int64) error
}

type ticketRepository struct {
	q querier
}

const ticketColumns = `id, title, description, status, priority, category, work_type, project_id,
               requester_emp_no, assignee_emp_no, reopen_count, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	description, err := richtext.Serialize(ticket.Description)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO tickets (title, description, status, priority, category, work_type, project_id, requester_emp_no, assignee_emp_no)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, reopen_count, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		ticket.Title,
		description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.WorkType,
		ticket.ProjectID,
		ticket.RequesterID,
		ticket.AssigneeID,
	).Scan(&ticket.ID, &ticket.ReopenCount, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	description, err := richtext.Serialize(ticket.Description)
	if err != nil {
		return err
	}
	const query = `
        UPDATE tickets SET title=$1, description=$2, status=$3, priority=$4, category=$5, work_type=$6,
            project_id=$7, assignee_emp_no=$8, reopen_count=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`
	if err := r.q.QueryRow(ctx, query,
		ticket.Title,
		description,
		ticket.Status,
		ticket.Priority,
		ticket.Category,
		ticket.WorkType,
		ticket.ProjectID,
		ticket.AssigneeID,
		ticket.ReopenCount,
		ticket.ID,
	).Scan(&ticket.UpdatedAt); err != nil {
		return notFound(err)
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1 FOR UPDATE`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	ticket, err := scanTicket(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT ` + ticketColumns + ` FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.RequesterID != nil {
		args = append(args, *filter.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_emp_no=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_emp_no=$%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`%s WHERE %s ORDER BY id DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListCreatedSince(ctx context.Context, since time.Time, limit int) ([]domain.Ticket, error) {
	const query = `SELECT ` + ticketColumns + ` FROM tickets
        WHERE created_at >= $1 ORDER BY created_at DESC, id DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM tickets WHERE id=$1`
	return requireAffected(r.q.Exec(ctx, query, id))
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket      domain.Ticket
		description string
	)
	if err := row.Scan(
		&ticket.ID,
		&ticket.Title,
		&description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.Category,
		&ticket.WorkType,
		&ticket.ProjectID,
		&ticket.RequesterID,
		&ticket.AssigneeID,
		&ticket.ReopenCount,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc, err := richtext.Deserialize(description)
	if err != nil {
		return nil, fmt.Errorf("ticket %d description: %w", ticket.ID, err)
	}
	ticket.Description = doc
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

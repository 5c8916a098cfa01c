package repository

import (
	"context"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// EventFeedRow is an event joined with the title of its ticket.
type EventFeedRow struct {
	Event       domain.TicketEvent
	TicketTitle string
}

// TicketEventRepository stores the append-only audit log.
type TicketEventRepository interface {
	Create(ctx context.Context, event *domain.TicketEvent) error
	// ListByTicket returns newest first with id as tie-break.
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketEvent, error)
	ListForRequester(ctx context.Context, requesterID string, limit int) ([]EventFeedRow, error)
}

type ticketEventRepository struct {
	q querier
}

func (r *ticketEventRepository) Create(ctx context.Context, event *domain.TicketEvent) error {
	const query = `
        INSERT INTO ticket_events (ticket_id, actor_emp_no, type, from_value, to_value, note)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		event.TicketID,
		event.ActorID,
		event.Type,
		event.From,
		event.To,
		event.Note,
	).Scan(&event.ID, &event.CreatedAt)
}

func (r *ticketEventRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketEvent, error) {
	const query = `
        SELECT id, ticket_id, actor_emp_no, type, from_value, to_value, note, created_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY created_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketEvent
	for rows.Next() {
		var event domain.TicketEvent
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.ActorID,
			&event.Type,
			&event.From,
			&event.To,
			&event.Note,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

func (r *ticketEventRepository) ListForRequester(ctx context.Context, requesterID string, limit int) ([]EventFeedRow, error) {
	const query = `
        SELECT e.id, e.ticket_id, e.actor_emp_no, e.type, e.from_value, e.to_value, e.note, e.created_at, t.title
        FROM ticket_events e JOIN tickets t ON t.id = e.ticket_id
        WHERE t.requester_emp_no=$1
        ORDER BY e.created_at DESC, e.id DESC LIMIT $2`
	rows, err := r.q.Query(ctx, query, requesterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []EventFeedRow
	for rows.Next() {
		var row EventFeedRow
		if err := rows.Scan(
			&row.Event.ID,
			&row.Event.TicketID,
			&row.Event.ActorID,
			&row.Event.Type,
			&row.Event.From,
			&row.Event.To,
			&row.Event.Note,
			&row.Event.CreatedAt,
			&row.TicketTitle,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
)

// DraftRepository persists per-requester drafts.
type DraftRepository interface {
	Create(ctx context.Context, draft *domain.DraftTicket) error
	Update(ctx context.Context, draft *domain.DraftTicket) error
	GetByID(ctx context.Context, id int64) (*domain.DraftTicket, error)
	ListByRequester(ctx context.Context, requesterID string) ([]domain.DraftTicket, error)
	Delete(ctx context.Context, id int64) error
}

type draftRepository struct {
	q querier
}

const draftColumns = `id, title, description, priority, category, work_type, project_id, requester_emp_no, created_at, updated_at`

func (r *draftRepository) Create(ctx context.Context, draft *domain.DraftTicket) error {
	description, err := serializeOptional(draft.Description)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO draft_tickets (title, description, priority, category, work_type, project_id, requester_emp_no)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query,
		draft.Title,
		description,
		draft.Priority,
		draft.Category,
		draft.WorkType,
		draft.ProjectID,
		draft.RequesterID,
	).Scan(&draft.ID, &draft.CreatedAt, &draft.UpdatedAt)
}

func (r *draftRepository) Update(ctx context.Context, draft *domain.DraftTicket) error {
	description, err := serializeOptional(draft.Description)
	if err != nil {
		return err
	}
	const query = `
        UPDATE draft_tickets SET title=$1, description=$2, priority=$3, category=$4, work_type=$5,
            project_id=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	if err := r.q.QueryRow(ctx, query,
		draft.Title,
		description,
		draft.Priority,
		draft.Category,
		draft.WorkType,
		draft.ProjectID,
		draft.ID,
	).Scan(&draft.UpdatedAt); err != nil {
		return notFound(err)
	}
	return nil
}

func (r *draftRepository) GetByID(ctx context.Context, id int64) (*domain.DraftTicket, error) {
	const query = `SELECT ` + draftColumns + ` FROM draft_tickets WHERE id=$1`
	draft, err := scanDraft(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return draft, nil
}

func (r *draftRepository) ListByRequester(ctx context.Context, requesterID string) ([]domain.DraftTicket, error) {
	const query = `SELECT ` + draftColumns + ` FROM draft_tickets
        WHERE requester_emp_no=$1 ORDER BY updated_at DESC, id DESC`
	rows, err := r.q.Query(ctx, query, requesterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DraftTicket
	for rows.Next() {
		draft, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *draft)
	}
	return result, rows.Err()
}

func (r *draftRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM draft_tickets WHERE id=$1`
	return requireAffected(r.q.Exec(ctx, query, id))
}

func scanDraft(row pgx.Row) (*domain.DraftTicket, error) {
	var (
		draft       domain.DraftTicket
		description *string
	)
	if err := row.Scan(
		&draft.ID,
		&draft.Title,
		&description,
		&draft.Priority,
		&draft.Category,
		&draft.WorkType,
		&draft.ProjectID,
		&draft.RequesterID,
		&draft.CreatedAt,
		&draft.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if description != nil {
		doc, err := richtext.Deserialize(*description)
		if err != nil {
			return nil, fmt.Errorf("draft %d description: %w", draft.ID, err)
		}
		draft.Description = &doc
	}
	return &draft, nil
}

func serializeOptional(doc *richtext.Doc) (*string, error) {
	if doc == nil {
		return nil, nil
	}
	out, err := richtext.Serialize(*doc)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

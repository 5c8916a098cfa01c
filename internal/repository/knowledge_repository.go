package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/richtext"
)

// KnowledgeFilter narrows notice and FAQ listings.
type KnowledgeFilter struct {
	Category *string
	Query    string
}

// KnowledgeRepository persists notices and FAQs in one table keyed by kind.
type KnowledgeRepository interface {
	Create(ctx context.Context, item *domain.KnowledgeItem) error
	Update(ctx context.Context, item *domain.KnowledgeItem) error
	GetByID(ctx context.Context, kind domain.KnowledgeKind, id int64) (*domain.KnowledgeItem, error)
	List(ctx context.Context, kind domain.KnowledgeKind, filter KnowledgeFilter) ([]domain.KnowledgeItem, error)
	Delete(ctx context.Context, kind domain.KnowledgeKind, id int64) error
}

type knowledgeRepository struct {
	q querier
}

const knowledgeColumns = `id, kind, title, body, category, author_emp_no, created_at, updated_at`

func (r *knowledgeRepository) Create(ctx context.Context, item *domain.KnowledgeItem) error {
	body, err := richtext.Serialize(item.Body)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO knowledge_items (kind, title, body, category, author_emp_no)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.q.QueryRow(ctx, query, item.Kind, item.Title, body, item.Category, item.AuthorID).
		Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

func (r *knowledgeRepository) Update(ctx context.Context, item *domain.KnowledgeItem) error {
	body, err := richtext.Serialize(item.Body)
	if err != nil {
		return err
	}
	const query = `
        UPDATE knowledge_items SET title=$1, body=$2, category=$3, updated_at=NOW()
        WHERE id=$4 AND kind=$5
        RETURNING updated_at`
	if err := r.q.QueryRow(ctx, query, item.Title, body, item.Category, item.ID, item.Kind).Scan(&item.UpdatedAt); err != nil {
		return notFound(err)
	}
	return nil
}

func (r *knowledgeRepository) GetByID(ctx context.Context, kind domain.KnowledgeKind, id int64) (*domain.KnowledgeItem, error) {
	const query = `SELECT ` + knowledgeColumns + ` FROM knowledge_items WHERE id=$1 AND kind=$2`
	item, err := scanKnowledge(r.q.QueryRow(ctx, query, id, kind))
	if err != nil {
		return nil, notFound(err)
	}
	return item, nil
}

func (r *knowledgeRepository) List(ctx context.Context, kind domain.KnowledgeKind, filter KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	args := []any{kind}
	clauses := []string{"kind=$1"}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(title) LIKE $%d", len(args)))
	}
	query := fmt.Sprintf(`SELECT %s FROM knowledge_items WHERE %s ORDER BY created_at DESC, id DESC`,
		knowledgeColumns, strings.Join(clauses, " AND "))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.KnowledgeItem
	for rows.Next() {
		item, err := scanKnowledge(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func (r *knowledgeRepository) Delete(ctx context.Context, kind domain.KnowledgeKind, id int64) error {
	const query = `DELETE FROM knowledge_items WHERE id=$1 AND kind=$2`
	return requireAffected(r.q.Exec(ctx, query, id, kind))
}

func scanKnowledge(row pgx.Row) (*domain.KnowledgeItem, error) {
	var (
		item domain.KnowledgeItem
		body string
	)
	if err := row.Scan(&item.ID, &item.Kind, &item.Title, &body, &item.Category, &item.AuthorID, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	doc, err := richtext.Deserialize(body)
	if err != nil {
		return nil, fmt.Errorf("%s %d body: %w", item.Kind, item.ID, err)
	}
	item.Body = doc
	return &item, nil
}

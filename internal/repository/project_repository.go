package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// ProjectFilter narrows project listings.
type ProjectFilter struct {
	Query    string
	MemberID *string
}

// ProjectRepository manages projects and their membership rows.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	GetByID(ctx context.Context, id int64) (*domain.Project, error)
	List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error)
	ListByIDs(ctx context.Context, ids []int64) ([]domain.Project, error)
	UpdateSortOrder(ctx context.Context, id int64, sortOrder int) error
	Delete(ctx context.Context, id int64) error
	AddMember(ctx context.Context, member *domain.ProjectMember) error
	RemoveMember(ctx context.Context, projectID int64, employeeNo string) error
	RemoveAllMembers(ctx context.Context, projectID int64) error
	IsMember(ctx context.Context, projectID int64, employeeNo string) (bool, error)
	ListMembers(ctx context.Context, projectID int64) ([]domain.ProjectMember, error)
}

type projectRepository struct {
	q querier
}

const projectColumns = `p.id, p.name, p.start_date, p.end_date, p.sort_order, p.created_by_emp_no, p.created_at`

func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	const query = `
        INSERT INTO projects (name, start_date, end_date, sort_order, created_by_emp_no)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.q.QueryRow(ctx, query,
		project.Name,
		project.StartDate,
		project.EndDate,
		project.SortOrder,
		project.CreatedBy,
	).Scan(&project.ID, &project.CreatedAt)
}

func (r *projectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects p WHERE p.id=$1`
	var project domain.Project
	if err := r.q.QueryRow(ctx, query, id).Scan(
		&project.ID,
		&project.Name,
		&project.StartDate,
		&project.EndDate,
		&project.SortOrder,
		&project.CreatedBy,
		&project.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &project, nil
}

func (r *projectRepository) List(ctx context.Context, filter ProjectFilter) ([]domain.Project, error) {
	base := `SELECT ` + projectColumns + ` FROM projects p`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.MemberID != nil {
		args = append(args, *filter.MemberID)
		base += fmt.Sprintf(" JOIN project_members m ON m.project_id = p.id AND m.emp_no=$%d", len(args))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(p.name) LIKE $%d", len(args)))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY p.sort_order ASC, p.id ASC`, base, strings.Join(clauses, " AND "))
	return r.list(ctx, query, args...)
}

func (r *projectRepository) ListByIDs(ctx context.Context, ids []int64) ([]domain.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + projectColumns + ` FROM projects p WHERE p.id = ANY($1)`
	return r.list(ctx, query, ids)
}

func (r *projectRepository) UpdateSortOrder(ctx context.Context, id int64, sortOrder int) error {
	const query = `UPDATE projects SET sort_order=$1 WHERE id=$2`
	return requireAffected(r.q.Exec(ctx, query, sortOrder, id))
}

func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM projects WHERE id=$1`
	return requireAffected(r.q.Exec(ctx, query, id))
}

func (r *projectRepository) AddMember(ctx context.Context, member *domain.ProjectMember) error {
	const query = `
        INSERT INTO project_members (project_id, emp_no)
        VALUES ($1,$2)
        ON CONFLICT (project_id, emp_no) DO UPDATE SET project_id = EXCLUDED.project_id
        RETURNING created_at`
	return r.q.QueryRow(ctx, query, member.ProjectID, member.EmployeeNo).Scan(&member.CreatedAt)
}

func (r *projectRepository) RemoveMember(ctx context.Context, projectID int64, employeeNo string) error {
	const query = `DELETE FROM project_members WHERE project_id=$1 AND emp_no=$2`
	return requireAffected(r.q.Exec(ctx, query, projectID, employeeNo))
}

func (r *projectRepository) RemoveAllMembers(ctx context.Context, projectID int64) error {
	const query = `DELETE FROM project_members WHERE project_id=$1`
	_, err := r.q.Exec(ctx, query, projectID)
	return err
}

func (r *projectRepository) IsMember(ctx context.Context, projectID int64, employeeNo string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id=$1 AND emp_no=$2)`
	var exists bool
	if err := r.q.QueryRow(ctx, query, projectID, employeeNo).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *projectRepository) ListMembers(ctx context.Context, projectID int64) ([]domain.ProjectMember, error) {
	const query = `
        SELECT project_id, emp_no, created_at
        FROM project_members WHERE project_id=$1 ORDER BY created_at ASC, emp_no ASC`
	rows, err := r.q.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ProjectMember
	for rows.Next() {
		var member domain.ProjectMember
		if err := rows.Scan(&member.ProjectID, &member.EmployeeNo, &member.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, member)
	}
	return result, rows.Err()
}

func (r *projectRepository) list(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Project
	for rows.Next() {
		var project domain.Project
		if err := rows.Scan(
			&project.ID,
			&project.Name,
			&project.StartDate,
			&project.EndDate,
			&project.SortOrder,
			&project.CreatedBy,
			&project.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, project)
	}
	return result, rows.Err()
}

package repository

import (
	"context"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// UserRepository handles employee account persistence.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmployeeNo(ctx context.Context, employeeNo string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
	ListByEmployeeNos(ctx context.Context, employeeNos []string) ([]domain.User, error)
}

type userRepository struct {
	q querier
}

const userColumns = `emp_no, email, password_hash, name, eng_name, title, department, role, is_verified, created_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (emp_no, email, password_hash, name, eng_name, title, department, role, is_verified)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING created_at`
	return r.q.QueryRow(ctx, query,
		user.EmployeeNo,
		user.Email,
		user.PasswordHash,
		user.Name,
		user.EngName,
		user.Title,
		user.Department,
		user.Role,
		user.Verified,
	).Scan(&user.CreatedAt)
}

func (r *userRepository) GetByEmployeeNo(ctx context.Context, employeeNo string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE emp_no=$1`
	return r.fetchSingle(ctx, query, employeeNo)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1)`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE role=$1 ORDER BY name ASC, emp_no ASC`
	return r.list(ctx, query, role)
}

func (r *userRepository) ListByEmployeeNos(ctx context.Context, employeeNos []string) ([]domain.User, error) {
	if len(employeeNos) == 0 {
		return nil, nil
	}
	const query = `SELECT ` + userColumns + ` FROM users WHERE emp_no = ANY($1)`
	return r.list(ctx, query, employeeNos)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.q.QueryRow(ctx, query, arg).Scan(
		&user.EmployeeNo,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.EngName,
		&user.Title,
		&user.Department,
		&user.Role,
		&user.Verified,
		&user.CreatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *userRepository) list(ctx context.Context, query string, args ...any) ([]domain.User, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.EmployeeNo,
			&user.Email,
			&user.PasswordHash,
			&user.Name,
			&user.EngName,
			&user.Title,
			&user.Department,
			&user.Role,
			&user.Verified,
			&user.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

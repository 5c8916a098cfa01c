package dto

import (
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// LoginRequest payload for login.
type LoginRequest struct {
	EmployeeNo string `json:"emp_no" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// RegisterRequest payload for self-registration.
type RegisterRequest struct {
	EmployeeNo string  `json:"emp_no" validate:"required,max=32"`
	Email      string  `json:"email" validate:"required,email"`
	Password   string  `json:"password" validate:"required,min=8"`
	Name       string  `json:"name" validate:"required,max=100"`
	EngName    *string `json:"eng_name"`
	Title      *string `json:"title"`
	Department *string `json:"department"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      UserResponse `json:"user"`
}

// UserResponse is the caller's own account.
type UserResponse struct {
	EmployeeNo string    `json:"emp_no"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	EngName    *string   `json:"eng_name"`
	Title      *string   `json:"title"`
	Department *string   `json:"department"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserSummary identifies a person on tickets, comments and pickers.
type UserSummary struct {
	EmployeeNo string  `json:"emp_no"`
	Name       string  `json:"name"`
	Title      *string `json:"title"`
	Department *string `json:"department"`
}

// NewUserResponse maps a user row, never exposing the password hash.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		EmployeeNo: u.EmployeeNo,
		Email:      u.Email,
		Name:       u.Name,
		EngName:    u.EngName,
		Title:      u.Title,
		Department: u.Department,
		Role:       string(u.Role),
		CreatedAt:  u.CreatedAt,
	}
}

// NewUserSummary returns nil for a nil summary.
func NewUserSummary(s *domain.UserSummary) *UserSummary {
	if s == nil {
		return nil
	}
	return &UserSummary{EmployeeNo: s.EmployeeNo, Name: s.Name, Title: s.Title, Department: s.Department}
}

// NewUserSummaries maps a list of summaries.
func NewUserSummaries(in []domain.UserSummary) []UserSummary {
	out := make([]UserSummary, 0, len(in))
	for i := range in {
		out = append(out, *NewUserSummary(&in[i]))
	}
	return out
}

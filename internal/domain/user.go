package domain

import (
	"strings"
	"time"
)

// Role is the sole authorization axis.
type Role string

const (
	RoleRequester Role = "requester"
	RoleAdmin     Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleRequester || r == RoleAdmin
}

// User is an employee account keyed by employee number.
type User struct {
	EmployeeNo   string
	Email        string
	PasswordHash string
	Name         string
	EngName      *string
	Title        *string
	Department   *string
	Role         Role
	Verified     bool
	CreatedAt    time.Time
}

// Principal is the authenticated caller of an operation.
type Principal struct {
	EmployeeNo string
	Role       Role
	Name       string
	Title      *string
	Department *string
}

// PrincipalOf builds the request principal for a loaded user.
func PrincipalOf(u *User) Principal {
	return Principal{
		EmployeeNo: u.EmployeeNo,
		Role:       u.Role,
		Name:       u.Name,
		Title:      u.Title,
		Department: u.Department,
	}
}

// UserSummary is the denormalized user view embedded in responses.
type UserSummary struct {
	EmployeeNo string
	Name       string
	Title      *string
	Department *string
}

// Summary returns the display summary of u.
func (u *User) Summary() UserSummary {
	return UserSummary{EmployeeNo: u.EmployeeNo, Name: u.Name, Title: u.Title, Department: u.Department}
}

// Label formats "name / title / department", falling back to the employee number.
func (s UserSummary) Label() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Name, deref(s.Title), deref(s.Department)} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return s.EmployeeNo
	}
	return strings.Join(parts, " / ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

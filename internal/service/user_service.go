package service

import (
	"context"
	"sort"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// UserService serves the employee directory.
type UserService struct {
	users repository.UserRepository
}

// NewUserService creates the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// ListStaff returns every staff member ordered by name, for the assignee picker.
func (s *UserService) ListStaff(ctx context.Context, p domain.Principal) ([]domain.UserSummary, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	users, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	out := make([]domain.UserSummary, 0, len(users))
	for i := range users {
		if users[i].Verified {
			out = append(out, users[i].Summary())
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

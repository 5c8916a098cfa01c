package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// ProjectService manages projects and their members.
type ProjectService struct {
	store     repository.Store
	protected map[string]struct{}
	logger    *zap.Logger
}

// ProjectDependencies bundles collaborators.
type ProjectDependencies struct {
	Store  repository.Store
	Logger *zap.Logger
}

// ProjectListQuery narrows the project listing. Mine defaults to true.
type ProjectListQuery struct {
	Query string
	Mine  *bool
}

// ProjectCreateInput describes a new project.
type ProjectCreateInput struct {
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
}

// NewProjectService creates the service.
func NewProjectService(cfg config.ProjectConfig, deps ProjectDependencies) *ProjectService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	protected := make(map[string]struct{}, len(cfg.ProtectedNames))
	for _, name := range cfg.ProtectedNames {
		protected[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
	}
	return &ProjectService{store: deps.Store, protected: protected, logger: logger}
}

// List returns projects ordered by sort order then id.
func (s *ProjectService) List(ctx context.Context, p domain.Principal, q ProjectListQuery) ([]domain.Project, error) {
	filter := repository.ProjectFilter{Query: strings.TrimSpace(q.Query)}
	if q.Mine == nil || *q.Mine {
		filter.MemberID = strPtr(p.EmployeeNo)
	}
	projects, err := s.store.Projects().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return projects, nil
}

// Create adds a project. Staff only.
func (s *ProjectService) Create(ctx context.Context, p domain.Principal, input ProjectCreateInput) (*domain.Project, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	name, err := requireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	project := &domain.Project{
		Name:      name,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		SortOrder: domain.DefaultProjectSortOrder,
		CreatedBy: p.EmployeeNo,
	}
	if !project.ValidPeriod() {
		return nil, apperrors.NewValidationError("start date must not be after end date", map[string]any{"field": "start_date"})
	}
	if err := s.store.Projects().Create(ctx, project); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("project created", zap.Int64("project_id", project.ID), zap.String("name", project.Name))
	return project, nil
}

// Delete removes a project and its memberships. Tickets and drafts keep
// existing without a project. Protected projects cannot be deleted.
func (s *ProjectService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		project, err := tx.Projects().GetByID(ctx, id)
		if err != nil {
			return notFound(err, "project", id)
		}
		if s.isProtected(project.Name) {
			return apperrors.NewConflictProtected("project is protected", map[string]any{"name": project.Name})
		}
		if err := tx.Projects().RemoveAllMembers(ctx, id); err != nil {
			return err
		}
		return tx.Projects().Delete(ctx, id)
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("project deleted", zap.Int64("project_id", id))
	return nil
}

func (s *ProjectService) isProtected(name string) bool {
	_, ok := s.protected[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Reorder assigns sort orders 1..n following ids. Unknown ids are skipped.
func (s *ProjectService) Reorder(ctx context.Context, p domain.Principal, ids []int64) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		for i, id := range ids {
			err := tx.Projects().UpdateSortOrder(ctx, id, i+1)
			if err != nil && !isNotFound(err) {
				return err
			}
		}
		return nil
	})
	return apperrors.MapError(err)
}

// AddMember links an existing employee to a project. Staff only.
func (s *ProjectService) AddMember(ctx context.Context, p domain.Principal, projectID int64, employeeNo string) (*domain.ProjectMember, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	employeeNo, err := requireText("emp_no", employeeNo)
	if err != nil {
		return nil, err
	}
	member := &domain.ProjectMember{ProjectID: projectID, EmployeeNo: employeeNo}
	err = s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Projects().GetByID(ctx, projectID); err != nil {
			return notFound(err, "project", projectID)
		}
		if _, err := tx.Users().GetByEmployeeNo(ctx, employeeNo); err != nil {
			return notFound(err, "user", employeeNo)
		}
		return tx.Projects().AddMember(ctx, member)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return member, nil
}

// RemoveMember unlinks an employee from a project. Staff only.
func (s *ProjectService) RemoveMember(ctx context.Context, p domain.Principal, projectID int64, employeeNo string) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	if err := s.store.Projects().RemoveMember(ctx, projectID, employeeNo); err != nil {
		return notFound(err, "project member", employeeNo)
	}
	return nil
}

// ListMembers returns the members of a project with their summaries.
func (s *ProjectService) ListMembers(ctx context.Context, p domain.Principal, projectID int64) ([]domain.UserSummary, error) {
	if _, err := s.store.Projects().GetByID(ctx, projectID); err != nil {
		return nil, notFound(err, "project", projectID)
	}
	if !domain.IsStaff(p) {
		member, err := s.store.Projects().IsMember(ctx, projectID, p.EmployeeNo)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !member {
			return nil, apperrors.NewForbidden("not a member of the project")
		}
	}
	members, err := s.store.Projects().ListMembers(ctx, projectID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	empNos := make([]string, 0, len(members))
	for _, m := range members {
		empNos = append(empNos, m.EmployeeNo)
	}
	users, err := summariesByEmployeeNo(ctx, s.store, empNos)
	if err != nil {
		return nil, err
	}
	out := make([]domain.UserSummary, 0, len(members))
	for _, m := range members {
		if u, ok := users[m.EmployeeNo]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

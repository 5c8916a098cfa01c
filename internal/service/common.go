package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// Validation reasons carried in Details["reason"].
const (
	ReasonTicketNotEditable   = "TICKET_NOT_EDITABLE"
	ReasonTicketNotReopenable = "TICKET_NOT_REOPENABLE"
	ReasonDraftEmpty          = "DRAFT_EMPTY"
	ReasonDraftIncomplete     = "DRAFT_INCOMPLETE"
	ReasonInvalidReopen       = "INVALID_REOPEN_REFERENCE"
	ReasonInvalidComment      = "INVALID_COMMENT_REFERENCE"
	ReasonObjectRegistered    = "OBJECT_ALREADY_REGISTERED"
)

// notFound maps repository.ErrNotFound to a NotFound DomainError and leaves
// every other error to MapError.
func notFound(err error, resource string, id any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}

// resolveScope parses raw and rejects scope=all for non-staff callers.
func resolveScope(p domain.Principal, raw string) (domain.Scope, error) {
	scope, ok := domain.ParseScope(strings.TrimSpace(raw))
	if !ok {
		return "", apperrors.NewValidationError("invalid scope", map[string]any{"scope": raw})
	}
	if !domain.CanUseScope(p, scope) {
		return "", apperrors.NewForbidden("scope all requires staff")
	}
	return scope, nil
}

func requireStaff(p domain.Principal) error {
	if !domain.IsStaff(p) {
		return apperrors.NewForbidden("staff only")
	}
	return nil
}

// loadVisibleTicket fetches a ticket and applies the read gate.
func loadVisibleTicket(ctx context.Context, repos repository.Repositories, p domain.Principal, id int64) (*domain.Ticket, error) {
	ticket, err := repos.Tickets().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "ticket", id)
	}
	if !domain.CanViewTicket(p, ticket) {
		return nil, apperrors.NewForbidden("not allowed to view this ticket")
	}
	return ticket, nil
}

// checkProjectMembership verifies that the project exists and that
// employeeNo belongs to it.
func checkProjectMembership(ctx context.Context, repos repository.Repositories, projectID int64, employeeNo string) (*domain.Project, error) {
	project, err := repos.Projects().GetByID(ctx, projectID)
	if err != nil {
		return nil, notFound(err, "project", projectID)
	}
	member, err := repos.Projects().IsMember(ctx, projectID, employeeNo)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !member {
		return nil, apperrors.NewForbidden("not a member of the project")
	}
	return project, nil
}

// checkReopenReference requires reopenID to name a reopen round of ticketID.
func checkReopenReference(ctx context.Context, repos repository.Repositories, ticketID int64, reopenID *int64) error {
	if reopenID == nil {
		return nil
	}
	reopen, err := repos.Reopens().GetByID(ctx, *reopenID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationReason(ReasonInvalidReopen, "reopen does not exist")
		}
		return apperrors.MapError(err)
	}
	if reopen.TicketID != ticketID {
		return apperrors.NewValidationReason(ReasonInvalidReopen, "reopen belongs to another ticket")
	}
	return nil
}

// checkCommentReference requires commentID to name a comment on ticketID.
func checkCommentReference(ctx context.Context, repos repository.Repositories, ticketID int64, commentID *int64) error {
	if commentID == nil {
		return nil
	}
	comment, err := repos.Comments().GetByID(ctx, *commentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewValidationReason(ReasonInvalidComment, "comment does not exist")
		}
		return apperrors.MapError(err)
	}
	if comment.TicketID != ticketID {
		return apperrors.NewValidationReason(ReasonInvalidComment, "comment belongs to another ticket")
	}
	return nil
}

func requireText(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	return trimmed, nil
}

func requireDoc(field string, doc *richtext.Doc) error {
	if doc == nil || richtext.IsEmpty(doc) {
		return apperrors.NewValidationError(field+" is required", map[string]any{"field": field})
	}
	return nil
}

func parsePriority(raw string) (domain.TicketPriority, error) {
	priority := domain.TicketPriority(strings.TrimSpace(raw))
	if !priority.Valid() {
		return "", apperrors.NewValidationError("invalid priority", map[string]any{"priority": raw})
	}
	return priority, nil
}

func parseStatus(raw string) (domain.TicketStatus, error) {
	status := domain.TicketStatus(strings.TrimSpace(raw))
	if !status.Valid() {
		return "", apperrors.NewValidationError("invalid status", map[string]any{"status": raw})
	}
	return status, nil
}

// publisher stamps and publishes domain events after commit.
type publisher struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

func newPublisher(dispatcher events.Dispatcher, logger *zap.Logger) publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return publisher{dispatcher: dispatcher, logger: logger}
}

func (p publisher) publishEvent(ctx context.Context, event events.Event) {
	if p.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := p.dispatcher.Publish(ctx, event); err != nil {
		p.logger.Warn("publish event failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

// ticketAudience is the requester, the assignee and every staff member.
func ticketAudience(t *domain.Ticket) events.Audience {
	audience := events.Audience{EmployeeNos: []string{t.RequesterID}, AllStaff: true}
	if t.AssigneeID != nil {
		audience.EmployeeNos = append(audience.EmployeeNos, *t.AssigneeID)
	}
	return audience
}

func strPtr(s string) *string { return &s }

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

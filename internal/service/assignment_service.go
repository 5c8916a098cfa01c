package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// AssignmentService handles ticket assignment operations.
type AssignmentService struct {
	store  repository.Store
	logger *zap.Logger
	publisher
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		store:     deps.Store,
		logger:    logger,
		publisher: newPublisher(deps.Dispatcher, logger),
	}
}

const unassignedLabel = "unassigned"

// Assign sets or clears the assignee. Assigning the current assignee again
// is a successful no-op without an audit record.
func (s *AssignmentService) Assign(ctx context.Context, p domain.Principal, ticketID int64, assigneeID *string) (*TicketView, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	assigneeID = domain.NormalizeText(assigneeID)

	var (
		view    *TicketView
		changed bool
		oldID   *string
		updated domain.Ticket
	)
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if equalPtr(ticket.AssigneeID, assigneeID) {
			view, err = decorateTicket(ctx, tx, ticket)
			return err
		}

		newLabel := unassignedLabel
		if assigneeID != nil {
			target, err := tx.Users().GetByEmployeeNo(ctx, *assigneeID)
			if err != nil {
				return notFound(err, "assignee", *assigneeID)
			}
			if target.Role != domain.RoleAdmin {
				return apperrors.NewValidationError("assignee must be staff", map[string]any{"assignee_id": *assigneeID})
			}
			newLabel = target.Summary().Label()
		}
		oldLabel, err := assigneeLabel(ctx, tx, ticket.AssigneeID)
		if err != nil {
			return err
		}

		eventType := domain.EventAssigneeChanged
		if ticket.AssigneeID == nil {
			eventType = domain.EventAssigneeAssigned
		}
		oldID = ticket.AssigneeID
		updated = *ticket
		updated.AssigneeID = assigneeID
		if err := tx.Tickets().Update(ctx, &updated); err != nil {
			return err
		}
		note := oldLabel + " -> " + newLabel
		if err := tx.Events().Create(ctx, &domain.TicketEvent{
			TicketID: ticketID,
			ActorID:  p.EmployeeNo,
			Type:     eventType,
			From:     oldID,
			To:       assigneeID,
			Note:     &note,
		}); err != nil {
			return err
		}
		changed = true
		view, err = decorateTicket(ctx, tx, &updated)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !changed {
		return view, nil
	}

	s.logger.Info("ticket assigned", zap.Int64("ticket_id", ticketID), zap.Stringp("assignee", assigneeID))
	audience := ticketAudience(&updated)
	if oldID != nil {
		audience.EmployeeNos = append(audience.EmployeeNos, *oldID)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticketID,
		ActorID:  p.EmployeeNo,
		Audience: audience,
		Payload:  events.TicketAssignedPayload{OldAssigneeID: oldID, NewAssigneeID: assigneeID},
	})
	return view, nil
}

// assigneeLabel renders a stored assignee. A user that no longer exists is
// labelled by its employee number.
func assigneeLabel(ctx context.Context, repos repository.Repositories, empNo *string) (string, error) {
	if empNo == nil {
		return unassignedLabel, nil
	}
	user, err := repos.Users().GetByEmployeeNo(ctx, *empNo)
	if errors.Is(err, repository.ErrNotFound) {
		return *empNo, nil
	}
	if err != nil {
		return "", err
	}
	return user.Summary().Label(), nil
}

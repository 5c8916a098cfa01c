package service

import (
	"context"
	"strconv"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// ReopenService files reopen rounds against resolved or closed tickets.
type ReopenService struct {
	store  repository.Store
	logger *zap.Logger
	publisher
}

// ReopenDependencies bundles collaborators.
type ReopenDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ReopenInput describes a reopen request.
type ReopenInput struct {
	Description richtext.Doc
}

// NewReopenService creates the service.
func NewReopenService(deps ReopenDependencies) *ReopenService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReopenService{
		store:     deps.Store,
		logger:    logger,
		publisher: newPublisher(deps.Dispatcher, logger),
	}
}

// Create records a reopen round and bumps the ticket's reopen counter.
// The ticket status is left as is.
func (s *ReopenService) Create(ctx context.Context, p domain.Principal, ticketID int64, input ReopenInput) (*domain.TicketReopen, error) {
	if err := requireDoc("description", &input.Description); err != nil {
		return nil, err
	}

	var (
		reopen  *domain.TicketReopen
		updated domain.Ticket
	)
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if !domain.IsOwner(p, ticket.RequesterID) {
			return apperrors.NewForbidden("only the requester can reopen this ticket")
		}
		if !domain.CanReopen(ticket.Status) {
			return apperrors.NewValidationReason(ReasonTicketNotReopenable, "only resolved or closed tickets can be reopened")
		}

		reopen = &domain.TicketReopen{
			TicketID:    ticketID,
			Description: input.Description,
			RequesterID: p.EmployeeNo,
		}
		if err := tx.Reopens().Create(ctx, reopen); err != nil {
			return err
		}
		updated = *ticket
		updated.ReopenCount++
		if err := tx.Tickets().Update(ctx, &updated); err != nil {
			return err
		}
		return tx.Events().Create(ctx, &domain.TicketEvent{
			TicketID: ticketID,
			ActorID:  p.EmployeeNo,
			Type:     domain.EventReopened,
			To:       strPtr(strconv.FormatInt(reopen.ID, 10)),
		})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket reopened", zap.Int64("ticket_id", ticketID), zap.Int("reopen_count", updated.ReopenCount))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketReopened,
		TicketID: ticketID,
		ActorID:  p.EmployeeNo,
		Audience: ticketAudience(&updated),
		Payload:  events.TicketReopenedPayload{ReopenID: reopen.ID, ReopenCount: updated.ReopenCount},
	})
	return reopen, nil
}

// List returns the reopen rounds of a visible ticket.
func (s *ReopenService) List(ctx context.Context, p domain.Principal, ticketID int64) ([]domain.TicketReopen, error) {
	if _, err := loadVisibleTicket(ctx, s.store, p, ticketID); err != nil {
		return nil, err
	}
	reopens, err := s.store.Reopens().ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return reopens, nil
}

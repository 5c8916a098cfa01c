package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// DraftService manages unpublished tickets and their publication.
type DraftService struct {
	store  repository.Store
	logger *zap.Logger
	publisher
}

// DraftDependencies bundles collaborators.
type DraftDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// DraftInput carries draft fields. On create an absent field is empty; on
// update it is left untouched. Explicit nulls clear a field.
type DraftInput struct {
	Title       optional.Field[*string]
	Description optional.Field[*richtext.Doc]
	Priority    optional.Field[*string]
	Category    optional.Field[*string]
	WorkType    optional.Field[*string]
	ProjectID   optional.Field[*int64]
}

// NewDraftService creates the service.
func NewDraftService(deps DraftDependencies) *DraftService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		store:     deps.Store,
		logger:    logger,
		publisher: newPublisher(deps.Dispatcher, logger),
	}
}

// Create stores a new draft owned by the caller.
func (s *DraftService) Create(ctx context.Context, p domain.Principal, input DraftInput) (*domain.DraftTicket, error) {
	draft := &domain.DraftTicket{RequesterID: p.EmployeeNo}
	if err := s.applyDraftInput(ctx, s.store, draft, input); err != nil {
		return nil, err
	}
	if !draft.HasContent() {
		return nil, apperrors.NewValidationReason(ReasonDraftEmpty, "draft has no content")
	}
	if err := s.store.Drafts().Create(ctx, draft); err != nil {
		return nil, apperrors.MapError(err)
	}
	return draft, nil
}

// List returns the caller's drafts, most recently updated first.
func (s *DraftService) List(ctx context.Context, p domain.Principal) ([]domain.DraftTicket, error) {
	drafts, err := s.store.Drafts().ListByRequester(ctx, p.EmployeeNo)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return drafts, nil
}

// Get returns one of the caller's drafts.
func (s *DraftService) Get(ctx context.Context, p domain.Principal, id int64) (*domain.DraftTicket, error) {
	return ownedDraft(ctx, s.store, p, id)
}

// Update merges input into the draft. The merged draft must still have content.
func (s *DraftService) Update(ctx context.Context, p domain.Principal, id int64, input DraftInput) (*domain.DraftTicket, error) {
	var draft *domain.DraftTicket
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		var err error
		draft, err = ownedDraft(ctx, tx, p, id)
		if err != nil {
			return err
		}
		if err := s.applyDraftInput(ctx, tx, draft, input); err != nil {
			return err
		}
		if !draft.HasContent() {
			return apperrors.NewValidationReason(ReasonDraftEmpty, "draft has no content")
		}
		return tx.Drafts().Update(ctx, draft)
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return draft, nil
}

// Delete removes one of the caller's drafts.
func (s *DraftService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		if _, err := ownedDraft(ctx, tx, p, id); err != nil {
			return err
		}
		return tx.Drafts().Delete(ctx, id)
	})
	return apperrors.MapError(err)
}

// Publish turns a complete draft into an open ticket and deletes the draft
// in the same transaction.
func (s *DraftService) Publish(ctx context.Context, p domain.Principal, id int64) (*TicketView, error) {
	var (
		view   *TicketView
		ticket *domain.Ticket
	)
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		draft, err := ownedDraft(ctx, tx, p, id)
		if err != nil {
			return err
		}
		ticket, err = ticketFromDraft(draft)
		if err != nil {
			return err
		}
		if ticket.ProjectID != nil {
			if _, err := checkProjectMembership(ctx, tx, *ticket.ProjectID, draft.RequesterID); err != nil {
				return err
			}
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		if err := tx.Drafts().Delete(ctx, draft.ID); err != nil {
			return err
		}
		view, err = decorateTicket(ctx, tx, ticket)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("draft published", zap.Int64("draft_id", id), zap.Int64("ticket_id", ticket.ID))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		ActorID:  p.EmployeeNo,
		Audience: ticketAudience(ticket),
		Payload: events.TicketCreatedPayload{
			RequesterID: ticket.RequesterID,
			Priority:    ticket.Priority,
			Title:       ticket.Title,
			ProjectID:   ticket.ProjectID,
			DraftID:     &id,
		},
	})
	return view, nil
}

func ownedDraft(ctx context.Context, repos repository.Repositories, p domain.Principal, id int64) (*domain.DraftTicket, error) {
	draft, err := repos.Drafts().GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "draft", id)
	}
	if draft.RequesterID != p.EmployeeNo {
		return nil, apperrors.NewNotFound("draft", map[string]any{"id": id})
	}
	return draft, nil
}

func (s *DraftService) applyDraftInput(ctx context.Context, repos repository.Repositories, draft *domain.DraftTicket, input DraftInput) error {
	if input.Title.Set {
		draft.Title = domain.NormalizeText(input.Title.Value)
	}
	if input.Description.Set {
		draft.Description = input.Description.Value
		if draft.Description != nil && richtext.IsEmpty(draft.Description) {
			draft.Description = nil
		}
	}
	if input.Priority.Set {
		draft.Priority = nil
		if raw := domain.NormalizeText(input.Priority.Value); raw != nil {
			priority, err := parsePriority(*raw)
			if err != nil {
				return err
			}
			draft.Priority = &priority
		}
	}
	if input.Category.Set {
		draft.Category = domain.NormalizeText(input.Category.Value)
	}
	if input.WorkType.Set {
		draft.WorkType = domain.NormalizeText(input.WorkType.Value)
	}
	if input.ProjectID.Set {
		draft.ProjectID = input.ProjectID.Value
		if draft.ProjectID != nil {
			if _, err := repos.Projects().GetByID(ctx, *draft.ProjectID); err != nil {
				return notFound(err, "project", *draft.ProjectID)
			}
		}
	}
	return nil
}

// ticketFromDraft validates completeness and builds the ticket to insert.
func ticketFromDraft(d *domain.DraftTicket) (*domain.Ticket, error) {
	var missing []string
	if d.Title == nil || strings.TrimSpace(*d.Title) == "" {
		missing = append(missing, "title")
	}
	if d.Description == nil || richtext.IsEmpty(d.Description) {
		missing = append(missing, "description")
	}
	if d.Category == nil || strings.TrimSpace(*d.Category) == "" {
		missing = append(missing, "category")
	}
	if d.Priority == nil || !d.Priority.Valid() {
		missing = append(missing, "priority")
	}
	if len(missing) > 0 {
		return nil, apperrors.NewValidationError("draft is incomplete", map[string]any{
			"reason": ReasonDraftIncomplete,
			"fields": missing,
		})
	}
	return &domain.Ticket{
		Title:       strings.TrimSpace(*d.Title),
		Description: *d.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    *d.Priority,
		Category:    strings.TrimSpace(*d.Category),
		WorkType:    domain.NormalizeText(d.WorkType),
		ProjectID:   d.ProjectID,
		RequesterID: d.RequesterID,
	}, nil
}

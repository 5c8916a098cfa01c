package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/storage"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	store  repository.Store
	files  storage.FileStore
	policy domain.TransitionPolicy
	logger *zap.Logger
	publisher
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Files      storage.FileStore
	Dispatcher events.Dispatcher
	Policy     domain.TransitionPolicy
	Logger     *zap.Logger
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description richtext.Doc
	Priority    string
	Category    string
	WorkType    *string
	ProjectID   *int64
}

// TicketUpdateInput is a requester self-edit. Absent fields are untouched.
type TicketUpdateInput struct {
	Title       optional.Field[string]
	Description optional.Field[richtext.Doc]
	Priority    optional.Field[string]
	Category    optional.Field[string]
	WorkType    optional.Field[*string]
	ProjectID   optional.Field[*int64]
}

// TicketListQuery holds raw list parameters as received from a caller.
type TicketListQuery struct {
	Scope      string
	Status     string
	Priority   string
	Category   string
	AssigneeID string
	Limit      int
	Offset     int
}

// StatusChangeInput describes a staff status change.
type StatusChangeInput struct {
	Status string
	Note   *string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := deps.Policy
	if policy == nil {
		policy = domain.PermissiveTransitions
	}
	return &TicketService{
		store:     deps.Store,
		files:     deps.Files,
		policy:    policy,
		logger:    logger,
		publisher: newPublisher(deps.Dispatcher, logger),
	}
}

// ParseTicketFilter validates raw list parameters and resolves the scope.
func ParseTicketFilter(p domain.Principal, q TicketListQuery) (repository.TicketFilter, error) {
	scope, err := resolveScope(p, q.Scope)
	if err != nil {
		return repository.TicketFilter{}, err
	}
	filter := repository.TicketFilter{Limit: q.Limit, Offset: q.Offset}
	if scope == domain.ScopeMine {
		filter.RequesterID = strPtr(p.EmployeeNo)
	}
	if strings.TrimSpace(q.Status) != "" {
		status, err := parseStatus(q.Status)
		if err != nil {
			return repository.TicketFilter{}, err
		}
		filter.Status = &status
	}
	if strings.TrimSpace(q.Priority) != "" {
		priority, err := parsePriority(q.Priority)
		if err != nil {
			return repository.TicketFilter{}, err
		}
		filter.Priority = &priority
	}
	filter.Category = domain.NormalizeText(&q.Category)
	filter.AssigneeID = domain.NormalizeText(&q.AssigneeID)
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter, nil
}

// Create files a new open ticket for the caller.
func (s *TicketService) Create(ctx context.Context, p domain.Principal, input TicketCreateInput) (*TicketView, error) {
	title, err := requireText("title", input.Title)
	if err != nil {
		return nil, err
	}
	if err := requireDoc("description", &input.Description); err != nil {
		return nil, err
	}
	priority := domain.TicketPriorityMedium
	if strings.TrimSpace(input.Priority) != "" {
		if priority, err = parsePriority(input.Priority); err != nil {
			return nil, err
		}
	}
	category := domain.DefaultCategory
	if c := domain.NormalizeText(&input.Category); c != nil {
		category = *c
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: input.Description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		Category:    category,
		WorkType:    domain.NormalizeText(input.WorkType),
		ProjectID:   input.ProjectID,
		RequesterID: p.EmployeeNo,
	}

	var view *TicketView
	err = s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		if ticket.ProjectID != nil {
			if _, err := checkProjectMembership(ctx, tx, *ticket.ProjectID, p.EmployeeNo); err != nil {
				return err
			}
		}
		if err := tx.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		var err error
		view, err = decorateTicket(ctx, tx, ticket)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID), zap.String("requester", p.EmployeeNo))
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
		},
	})
	return view, nil
}

// List returns tickets newest first under the requested scope and filters.
func (s *TicketService) List(ctx context.Context, p domain.Principal, q TicketListQuery) ([]TicketView, error) {
	filter, err := ParseTicketFilter(p, q)
	if err != nil {
		return nil, err
	}
	tickets, err := s.store.Tickets().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return decorateTickets(ctx, s.store, tickets)
}

// Get returns a single visible ticket.
func (s *TicketService) Get(ctx context.Context, p domain.Principal, id int64) (*TicketView, error) {
	ticket, err := loadVisibleTicket(ctx, s.store, p, id)
	if err != nil {
		return nil, err
	}
	return decorateTicket(ctx, s.store, ticket)
}

// Detail bundles a ticket with its thread, audit log and attachments.
// Internal entries are only included for staff under scope all.
func (s *TicketService) Detail(ctx context.Context, p domain.Principal, id int64, rawScope string) (*TicketDetail, error) {
	scope, err := resolveScope(p, rawScope)
	if err != nil {
		return nil, err
	}
	ticket, err := loadVisibleTicket(ctx, s.store, p, id)
	if err != nil {
		return nil, err
	}
	internal := domain.CanSeeInternal(p, scope)

	view, err := decorateTicket(ctx, s.store, ticket)
	if err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByTicket(ctx, id, internal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	commentViews, err := decorateComments(ctx, s.store, comments)
	if err != nil {
		return nil, err
	}
	history, err := s.store.Events().ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	attachments, err := s.store.Attachments().ListByTicket(ctx, id, internal)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &TicketDetail{
		Ticket:      *view,
		Comments:    commentViews,
		Events:      redactEvents(p, history),
		Attachments: attachments,
	}, nil
}

// ListEvents returns the audit log of a visible ticket, newest first.
func (s *TicketService) ListEvents(ctx context.Context, p domain.Principal, id int64) ([]domain.TicketEvent, error) {
	if _, err := loadVisibleTicket(ctx, s.store, p, id); err != nil {
		return nil, err
	}
	history, err := s.store.Events().ListByTicket(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return redactEvents(p, history), nil
}

// redactEvents hides status change notes from non-staff; the same text is
// stored as an internal comment.
func redactEvents(p domain.Principal, history []domain.TicketEvent) []domain.TicketEvent {
	if domain.IsStaff(p) {
		return history
	}
	out := make([]domain.TicketEvent, len(history))
	for i, e := range history {
		if e.Type == domain.EventStatusChanged {
			e.Note = nil
		}
		out[i] = e
	}
	return out
}

// UpdateTicket applies a requester self-edit while the ticket is open and
// records one requester_updated event when anything changed.
func (s *TicketService) UpdateTicket(ctx context.Context, p domain.Principal, id int64, input TicketUpdateInput) (*TicketView, error) {
	var (
		view    *TicketView
		summary string
		updated domain.Ticket
	)
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "ticket", id)
		}
		if !domain.IsOwner(p, ticket.RequesterID) {
			return apperrors.NewForbidden("only the requester can edit this ticket")
		}
		if !ticket.EditableByRequester() {
			return apperrors.NewValidationReason(ReasonTicketNotEditable, "only open tickets can be edited")
		}

		updated = *ticket
		changed, err := applyTicketUpdate(ctx, tx, p, &updated, input)
		if err != nil {
			return err
		}
		if len(changed) == 0 {
			view, err = decorateTicket(ctx, tx, ticket)
			return err
		}

		beforeProject, err := projectName(ctx, tx, ticket.ProjectID)
		if err != nil {
			return err
		}
		summary = strings.Join(changed, ", ")
		note, err := domain.RequesterEditNote{Summary: summary, Before: domain.SnapshotOf(ticket, beforeProject)}.Encode()
		if err != nil {
			return err
		}
		if err := tx.Tickets().Update(ctx, &updated); err != nil {
			return err
		}
		if err := tx.Events().Create(ctx, &domain.TicketEvent{
			TicketID: id,
			ActorID:  p.EmployeeNo,
			Type:     domain.EventRequesterUpdated,
			Note:     &note,
		}); err != nil {
			return err
		}
		view, err = decorateTicket(ctx, tx, &updated)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if summary != "" {
		s.logger.Info("ticket updated by requester", zap.Int64("ticket_id", id), zap.String("changes", summary))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketUpdated,
			TicketID: id,
			ActorID:  p.EmployeeNo,
			Audience: ticketAudience(&updated),
			Payload:  events.TicketUpdatedPayload{Summary: summary},
		})
	}
	return view, nil
}

// applyTicketUpdate mutates t and returns the changed field labels in
// display order.
func applyTicketUpdate(ctx context.Context, tx repository.Repositories, p domain.Principal, t *domain.Ticket, input TicketUpdateInput) ([]string, error) {
	var changed []string
	if input.Title.Set {
		title, err := requireText("title", input.Title.Value)
		if err != nil {
			return nil, err
		}
		if title != t.Title {
			t.Title = title
			changed = append(changed, "title")
		}
	}
	if input.Description.Set {
		doc := input.Description.Value
		if err := requireDoc("description", &doc); err != nil {
			return nil, err
		}
		if !richtext.Equal(doc, t.Description) {
			t.Description = doc
			changed = append(changed, "description")
		}
	}
	if input.Priority.Set {
		priority, err := parsePriority(input.Priority.Value)
		if err != nil {
			return nil, err
		}
		if priority != t.Priority {
			t.Priority = priority
			changed = append(changed, "priority")
		}
	}
	if input.Category.Set {
		category, err := requireText("category", input.Category.Value)
		if err != nil {
			return nil, err
		}
		if category != t.Category {
			t.Category = category
			changed = append(changed, "category")
		}
	}
	if input.WorkType.Set {
		workType := domain.NormalizeText(input.WorkType.Value)
		if !equalPtr(workType, t.WorkType) {
			t.WorkType = workType
			changed = append(changed, "work type")
		}
	}
	if input.ProjectID.Set {
		projectID := input.ProjectID.Value
		if projectID != nil {
			if _, err := checkProjectMembership(ctx, tx, *projectID, p.EmployeeNo); err != nil {
				return nil, err
			}
		}
		if !equalPtr(projectID, t.ProjectID) {
			t.ProjectID = projectID
			changed = append(changed, "project")
		}
	}
	return changed, nil
}

func projectName(ctx context.Context, repos repository.Repositories, projectID *int64) (*string, error) {
	if projectID == nil {
		return nil, nil
	}
	project, err := repos.Projects().GetByID(ctx, *projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return strPtr(project.Name), nil
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete removes a ticket. The requester may delete while it is open; staff
// may delete any ticket. Stored attachment objects are removed before rows.
func (s *TicketService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	var ticket *domain.Ticket
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		locked, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "ticket", id)
		}
		if err := canDeleteTicket(p, locked); err != nil {
			return err
		}
		attachments, err := tx.Attachments().ListByTicket(ctx, id, true)
		if err != nil {
			return err
		}
		for _, a := range attachments {
			if err := s.files.Delete(ctx, a.Key); err != nil {
				return apperrors.NewInternalError(err)
			}
		}
		ticket = locked
		return tx.Tickets().Delete(ctx, id)
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.logger.Info("ticket deleted", zap.Int64("ticket_id", id), zap.String("actor", p.EmployeeNo))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: id,
		ActorID:  p.EmployeeNo,
		Audience: ticketAudience(ticket),
	})
	return nil
}

func canDeleteTicket(p domain.Principal, t *domain.Ticket) error {
	if domain.IsStaff(p) {
		return nil
	}
	if !domain.IsOwner(p, t.RequesterID) {
		return apperrors.NewForbidden("only the requester can delete this ticket")
	}
	if !t.EditableByRequester() {
		return apperrors.NewValidationReason(ReasonTicketNotEditable, "only open tickets can be deleted")
	}
	return nil
}

// UpdateStatus moves a ticket along the active transition policy. A
// non-blank note is also stored as an internal comment.
func (s *TicketService) UpdateStatus(ctx context.Context, p domain.Principal, id int64, input StatusChangeInput) (*TicketView, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	next, err := parseStatus(input.Status)
	if err != nil {
		return nil, err
	}
	note := domain.NormalizeText(input.Note)

	var (
		view    *TicketView
		from    domain.TicketStatus
		updated domain.Ticket
	)
	err = s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, id)
		if err != nil {
			return notFound(err, "ticket", id)
		}
		from = ticket.Status
		if !s.policy.CanTransition(from, next) {
			return apperrors.NewInvalidTransition(string(from), string(next))
		}

		updated = *ticket
		updated.Status = next
		if err := tx.Tickets().Update(ctx, &updated); err != nil {
			return err
		}
		if err := tx.Events().Create(ctx, &domain.TicketEvent{
			TicketID: id,
			ActorID:  p.EmployeeNo,
			Type:     domain.EventStatusChanged,
			From:     strPtr(string(from)),
			To:       strPtr(string(next)),
			Note:     note,
		}); err != nil {
			return err
		}
		if note != nil {
			if err := tx.Comments().Create(ctx, &domain.TicketComment{
				TicketID:   id,
				AuthorID:   p.EmployeeNo,
				Body:       richtext.Paragraph(*note),
				IsInternal: true,
			}); err != nil {
				return err
			}
		}
		view, err = decorateTicket(ctx, tx, &updated)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("ticket status changed",
		zap.Int64("ticket_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(next)))
	payload := events.TicketStatusChangedPayload{OldStatus: from, NewStatus: next}
	if note != nil {
		payload.Note = *note
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: id,
		ActorID:  p.EmployeeNo,
		Audience: ticketAudience(&updated),
		Payload:  payload,
	})
	return view, nil
}

// AllowedTransitions lists the statuses a visible ticket can move to.
func (s *TicketService) AllowedTransitions(ctx context.Context, p domain.Principal, id int64) ([]domain.TicketStatus, error) {
	ticket, err := loadVisibleTicket(ctx, s.store, p, id)
	if err != nil {
		return nil, err
	}
	return s.policy.Allowed(ticket.Status), nil
}

package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const commentPreviewRunes = 120

// CommentService manages ticket thread comments.
type CommentService struct {
	store  repository.Store
	logger *zap.Logger
	publisher
}

// CommentDependencies bundles collaborators.
type CommentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CommentInput describes a new comment.
type CommentInput struct {
	Title      *string
	Body       richtext.Doc
	IsInternal bool
	ReopenID   *int64
}

// NewCommentService creates the service.
func NewCommentService(deps CommentDependencies) *CommentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentService{
		store:     deps.Store,
		logger:    logger,
		publisher: newPublisher(deps.Dispatcher, logger),
	}
}

// Create appends a comment to a visible ticket and refreshes its updated_at.
// Only staff may write internal comments.
func (s *CommentService) Create(ctx context.Context, p domain.Principal, ticketID int64, input CommentInput) (*CommentView, error) {
	if err := requireDoc("body", &input.Body); err != nil {
		return nil, err
	}
	if input.IsInternal && !domain.IsStaff(p) {
		return nil, apperrors.NewForbidden("only staff can write internal comments")
	}

	var (
		view    *CommentView
		comment *domain.TicketComment
		ticket  *domain.Ticket
	)
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		var err error
		ticket, err = tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if !domain.CanViewTicket(p, ticket) {
			return apperrors.NewForbidden("not allowed to comment on this ticket")
		}
		if err := checkReopenReference(ctx, tx, ticketID, input.ReopenID); err != nil {
			return err
		}
		comment = &domain.TicketComment{
			TicketID:   ticketID,
			AuthorID:   p.EmployeeNo,
			Title:      domain.NormalizeText(input.Title),
			Body:       input.Body,
			IsInternal: input.IsInternal,
			ReopenID:   input.ReopenID,
		}
		if err := tx.Comments().Create(ctx, comment); err != nil {
			return err
		}
		if err := tx.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		views, err := decorateComments(ctx, tx, []domain.TicketComment{*comment})
		if err != nil {
			return err
		}
		view = &views[0]
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("comment added",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("comment_id", comment.ID),
		zap.Bool("internal", comment.IsInternal))
	audience := events.Audience{AllStaff: true}
	if !comment.IsInternal {
		audience = ticketAudience(ticket)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventCommentAdded,
		TicketID: ticketID,
		ActorID:  p.EmployeeNo,
		Audience: audience,
		Payload: events.CommentAddedPayload{
			CommentID:   comment.ID,
			IsInternal:  comment.IsInternal,
			BodyPreview: richtext.Snippet(comment.Body, commentPreviewRunes),
		},
	})
	return view, nil
}

// List returns the thread of a visible ticket oldest first. Internal
// comments are included only for staff under scope all.
func (s *CommentService) List(ctx context.Context, p domain.Principal, ticketID int64, rawScope string) ([]CommentView, error) {
	scope, err := resolveScope(p, rawScope)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleTicket(ctx, s.store, p, ticketID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments().ListByTicket(ctx, ticketID, domain.CanSeeInternal(p, scope))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return decorateComments(ctx, s.store, comments)
}

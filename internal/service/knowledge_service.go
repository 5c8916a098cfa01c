package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/storage"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// KnowledgeService manages notices and FAQ entries.
type KnowledgeService struct {
	store  repository.Store
	files  storage.FileStore
	logger *zap.Logger
}

// KnowledgeDependencies bundles collaborators.
type KnowledgeDependencies struct {
	Store  repository.Store
	Files  storage.FileStore
	Logger *zap.Logger
}

// KnowledgeView is an item with its rendered body.
type KnowledgeView struct {
	Item        domain.KnowledgeItem
	BodyHTML    string
	Author      *domain.UserSummary
	Attachments []domain.Attachment
}

// KnowledgeInput describes a new item.
type KnowledgeInput struct {
	Title    string
	Body     richtext.Doc
	Category *string
}

// KnowledgeUpdateInput is a partial update.
type KnowledgeUpdateInput struct {
	Title    optional.Field[string]
	Body     optional.Field[richtext.Doc]
	Category optional.Field[*string]
}

// KnowledgeQuery narrows listings.
type KnowledgeQuery struct {
	Category string
	Query    string
}

// NewKnowledgeService creates the service.
func NewKnowledgeService(deps KnowledgeDependencies) *KnowledgeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeService{store: deps.Store, files: deps.Files, logger: logger}
}

// List returns items of kind newest first.
func (s *KnowledgeService) List(ctx context.Context, kind domain.KnowledgeKind, q KnowledgeQuery) ([]KnowledgeView, error) {
	items, err := s.store.Knowledge().List(ctx, kind, repository.KnowledgeFilter{
		Category: domain.NormalizeText(&q.Category),
		Query:    strings.TrimSpace(q.Query),
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	authors := make([]string, 0, len(items))
	for _, item := range items {
		authors = append(authors, item.AuthorID)
	}
	users, err := summariesByEmployeeNo(ctx, s.store, authors)
	if err != nil {
		return nil, err
	}
	views := make([]KnowledgeView, 0, len(items))
	for _, item := range items {
		views = append(views, KnowledgeView{
			Item:     item,
			BodyHTML: richtext.RenderHTML(item.Body),
			Author:   users[item.AuthorID],
		})
	}
	return views, nil
}

// Get returns one item. Notices include their attachments.
func (s *KnowledgeService) Get(ctx context.Context, kind domain.KnowledgeKind, id int64) (*KnowledgeView, error) {
	item, err := s.store.Knowledge().GetByID(ctx, kind, id)
	if err != nil {
		return nil, notFound(err, string(kind), id)
	}
	return s.view(ctx, s.store, item)
}

// Create adds an item. Staff only.
func (s *KnowledgeService) Create(ctx context.Context, p domain.Principal, kind domain.KnowledgeKind, input KnowledgeInput) (*KnowledgeView, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	title, err := requireText("title", input.Title)
	if err != nil {
		return nil, err
	}
	if err := requireDoc("body", &input.Body); err != nil {
		return nil, err
	}
	item := &domain.KnowledgeItem{
		Kind:     kind,
		Title:    title,
		Body:     input.Body,
		AuthorID: p.EmployeeNo,
	}
	if kind == domain.KnowledgeFAQ {
		item.Category = domain.NormalizeText(input.Category)
	}
	if err := s.store.Knowledge().Create(ctx, item); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("knowledge item created", zap.String("kind", string(kind)), zap.Int64("id", item.ID))
	return s.view(ctx, s.store, item)
}

// Update applies a partial update. Staff only.
func (s *KnowledgeService) Update(ctx context.Context, p domain.Principal, kind domain.KnowledgeKind, id int64, input KnowledgeUpdateInput) (*KnowledgeView, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	var view *KnowledgeView
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		item, err := tx.Knowledge().GetByID(ctx, kind, id)
		if err != nil {
			return notFound(err, string(kind), id)
		}
		if input.Title.Set {
			if item.Title, err = requireText("title", input.Title.Value); err != nil {
				return err
			}
		}
		if input.Body.Set {
			body := input.Body.Value
			if err := requireDoc("body", &body); err != nil {
				return err
			}
			item.Body = body
		}
		if input.Category.Set && kind == domain.KnowledgeFAQ {
			item.Category = domain.NormalizeText(input.Category.Value)
		}
		if err := tx.Knowledge().Update(ctx, item); err != nil {
			return err
		}
		view, err = s.view(ctx, tx, item)
		return err
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return view, nil
}

// Delete removes an item. Stored notice attachments are removed first.
// Staff only.
func (s *KnowledgeService) Delete(ctx context.Context, p domain.Principal, kind domain.KnowledgeKind, id int64) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	if _, err := s.store.Knowledge().GetByID(ctx, kind, id); err != nil {
		return notFound(err, string(kind), id)
	}
	if kind == domain.KnowledgeNotice {
		attachments, err := s.store.Attachments().ListByNotice(ctx, id)
		if err != nil {
			return apperrors.MapError(err)
		}
		for _, a := range attachments {
			if err := s.files.Delete(ctx, a.Key); err != nil {
				return apperrors.NewInternalError(err)
			}
		}
	}
	if err := s.store.Knowledge().Delete(ctx, kind, id); err != nil {
		return notFound(err, string(kind), id)
	}
	s.logger.Info("knowledge item deleted", zap.String("kind", string(kind)), zap.Int64("id", id))
	return nil
}

func (s *KnowledgeService) view(ctx context.Context, repos repository.Repositories, item *domain.KnowledgeItem) (*KnowledgeView, error) {
	users, err := summariesByEmployeeNo(ctx, repos, []string{item.AuthorID})
	if err != nil {
		return nil, err
	}
	view := &KnowledgeView{
		Item:     *item,
		BodyHTML: richtext.RenderHTML(item.Body),
		Author:   users[item.AuthorID],
	}
	if item.Kind == domain.KnowledgeNotice {
		view.Attachments, err = repos.Attachments().ListByNotice(ctx, item.ID)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	return view, nil
}

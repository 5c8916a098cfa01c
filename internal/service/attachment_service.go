package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/storage"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const defaultContentType = "application/octet-stream"

// AttachmentService stores attachment bytes and their metadata.
type AttachmentService struct {
	store  repository.Store
	files  storage.FileStore
	policy storage.UploadPolicy
	logger *zap.Logger
	now    func() time.Time
}

// AttachmentDependencies bundles collaborators.
type AttachmentDependencies struct {
	Store  repository.Store
	Files  storage.FileStore
	Policy storage.UploadPolicy
	Logger *zap.Logger
}

// UploadInput is a file streamed by the caller.
type UploadInput struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
	IsInternal  bool
	CommentID   *int64
	ReopenID    *int64
}

// AttachmentRegisterInput binds an already uploaded object to a ticket.
type AttachmentRegisterInput struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
	IsInternal  bool
	CommentID   *int64
	ReopenID    *int64
}

// StoredObject describes bytes written by Store before they are bound.
type StoredObject struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
}

// NewAttachmentService creates the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{
		store:  deps.Store,
		files:  deps.Files,
		policy: deps.Policy,
		logger: logger,
		now:    time.Now,
	}
}

// Store writes a file under a fresh key owned by the caller without binding
// it to anything. Register binds it later.
func (s *AttachmentService) Store(ctx context.Context, p domain.Principal, filename, contentType string, size int64, body io.Reader) (*StoredObject, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return nil, apperrors.NewValidationError("filename is required", map[string]any{"field": "filename"})
	}
	ext, err := s.policy.CheckFilename(filename)
	if err != nil {
		return nil, uploadError(err)
	}
	if err := s.policy.CheckSize(size); err != nil {
		return nil, uploadError(err)
	}
	key := storage.NewKey(p.EmployeeNo, s.now(), ext)
	written, err := s.files.Put(ctx, key, body)
	if err != nil {
		return nil, uploadError(err)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	return &StoredObject{Key: key, Filename: filename, ContentType: contentType, Size: written}, nil
}

// Upload stores a file and attaches it to a visible ticket.
func (s *AttachmentService) Upload(ctx context.Context, p domain.Principal, ticketID int64, input UploadInput) (*domain.Attachment, error) {
	if err := s.checkTicketWrite(ctx, p, ticketID, input.IsInternal); err != nil {
		return nil, err
	}
	object, err := s.Store(ctx, p, input.Filename, input.ContentType, input.Size, input.Body)
	if err != nil {
		return nil, err
	}
	attachment := &domain.Attachment{
		Key:         object.Key,
		Filename:    object.Filename,
		ContentType: object.ContentType,
		Size:        object.Size,
		TicketID:    &ticketID,
		CommentID:   input.CommentID,
		ReopenID:    input.ReopenID,
		IsInternal:  input.IsInternal,
		UploadedBy:  p.EmployeeNo,
	}
	if err := s.bindToTicket(ctx, p, attachment); err != nil {
		if delErr := s.files.Delete(ctx, object.Key); delErr != nil {
			s.logger.Warn("remove orphaned upload failed", zap.String("key", object.Key), zap.Error(delErr))
		}
		return nil, err
	}
	return attachment, nil
}

// Register records metadata for an object the caller uploaded earlier.
func (s *AttachmentService) Register(ctx context.Context, p domain.Principal, ticketID int64, input AttachmentRegisterInput) (*domain.Attachment, error) {
	if err := s.checkTicketWrite(ctx, p, ticketID, input.IsInternal); err != nil {
		return nil, err
	}
	key := strings.TrimSpace(input.Key)
	if err := storage.ValidateKey(key); err != nil {
		return nil, uploadError(err)
	}
	if !strings.HasPrefix(key, storage.KeyPrefix(p.EmployeeNo)) {
		return nil, apperrors.NewForbidden("object was not uploaded by the caller")
	}
	filename, err := requireText("filename", input.Filename)
	if err != nil {
		return nil, err
	}
	if _, err := s.policy.CheckFilename(filename); err != nil {
		return nil, uploadError(err)
	}
	if err := s.policy.CheckSize(input.Size); err != nil {
		return nil, uploadError(err)
	}
	rc, err := s.files.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidObjectKey) {
			return nil, apperrors.NewNotFound("object", map[string]any{"key": key})
		}
		return nil, apperrors.NewInternalError(err)
	}
	_ = rc.Close()

	contentType := input.ContentType
	if strings.TrimSpace(contentType) == "" {
		contentType = defaultContentType
	}
	attachment := &domain.Attachment{
		Key:         key,
		Filename:    filename,
		ContentType: contentType,
		Size:        input.Size,
		TicketID:    &ticketID,
		CommentID:   input.CommentID,
		ReopenID:    input.ReopenID,
		IsInternal:  input.IsInternal,
		UploadedBy:  p.EmployeeNo,
	}
	if err := s.bindToTicket(ctx, p, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

// List returns the attachments of a visible ticket, newest first.
func (s *AttachmentService) List(ctx context.Context, p domain.Principal, ticketID int64, rawScope string) ([]domain.Attachment, error) {
	scope, err := resolveScope(p, rawScope)
	if err != nil {
		return nil, err
	}
	if _, err := loadVisibleTicket(ctx, s.store, p, ticketID); err != nil {
		return nil, err
	}
	attachments, err := s.store.Attachments().ListByTicket(ctx, ticketID, domain.CanSeeInternal(p, scope))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

// Download opens an attachment the caller may read. The caller closes the
// returned reader.
func (s *AttachmentService) Download(ctx context.Context, p domain.Principal, id int64) (*domain.Attachment, io.ReadCloser, error) {
	attachment, err := s.store.Attachments().GetByID(ctx, id)
	if err != nil {
		return nil, nil, notFound(err, "attachment", id)
	}
	if attachment.TicketID != nil && !domain.IsStaff(p) {
		ticket, err := s.store.Tickets().GetByID(ctx, *attachment.TicketID)
		if err != nil {
			return nil, nil, notFound(err, "ticket", *attachment.TicketID)
		}
		if !domain.IsOwner(p, ticket.RequesterID) || attachment.IsInternal {
			return nil, nil, apperrors.NewForbidden("not allowed to download this attachment")
		}
	}
	rc, err := s.files.Open(ctx, attachment.Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil, apperrors.NewNotFound("object", map[string]any{"id": id})
		}
		return nil, nil, apperrors.NewInternalError(err)
	}
	return attachment, rc, nil
}

// Delete removes the stored object and then the metadata row. Staff only.
func (s *AttachmentService) Delete(ctx context.Context, p domain.Principal, id int64) error {
	if err := requireStaff(p); err != nil {
		return err
	}
	attachment, err := s.store.Attachments().GetByID(ctx, id)
	if err != nil {
		return notFound(err, "attachment", id)
	}
	if err := s.files.Delete(ctx, attachment.Key); err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.store.Attachments().Delete(ctx, id); err != nil {
		return notFound(err, "attachment", id)
	}
	s.logger.Info("attachment deleted", zap.Int64("attachment_id", id), zap.String("key", attachment.Key))
	return nil
}

// UploadNoticeFile stores a file and attaches it to a notice. Staff only.
func (s *AttachmentService) UploadNoticeFile(ctx context.Context, p domain.Principal, noticeID int64, input UploadInput) (*domain.Attachment, error) {
	if err := requireStaff(p); err != nil {
		return nil, err
	}
	if _, err := s.store.Knowledge().GetByID(ctx, domain.KnowledgeNotice, noticeID); err != nil {
		return nil, notFound(err, "notice", noticeID)
	}
	object, err := s.Store(ctx, p, input.Filename, input.ContentType, input.Size, input.Body)
	if err != nil {
		return nil, err
	}
	attachment := &domain.Attachment{
		Key:         object.Key,
		Filename:    object.Filename,
		ContentType: object.ContentType,
		Size:        object.Size,
		NoticeID:    &noticeID,
		UploadedBy:  p.EmployeeNo,
	}
	if err := s.store.Attachments().Create(ctx, attachment); err != nil {
		if delErr := s.files.Delete(ctx, object.Key); delErr != nil {
			s.logger.Warn("remove orphaned upload failed", zap.String("key", object.Key), zap.Error(delErr))
		}
		return nil, apperrors.MapError(err)
	}
	return attachment, nil
}

// ListNoticeFiles returns the attachments of a notice.
func (s *AttachmentService) ListNoticeFiles(ctx context.Context, noticeID int64) ([]domain.Attachment, error) {
	attachments, err := s.store.Attachments().ListByNotice(ctx, noticeID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return attachments, nil
}

func (s *AttachmentService) checkTicketWrite(ctx context.Context, p domain.Principal, ticketID int64, internal bool) error {
	if internal && !domain.IsStaff(p) {
		return apperrors.NewForbidden("only staff can add internal attachments")
	}
	_, err := loadVisibleTicket(ctx, s.store, p, ticketID)
	return err
}

// bindToTicket inserts the metadata row and refreshes the ticket's updated_at.
func (s *AttachmentService) bindToTicket(ctx context.Context, p domain.Principal, attachment *domain.Attachment) error {
	ticketID := *attachment.TicketID
	err := s.store.RunInTx(ctx, func(tx repository.Repositories) error {
		ticket, err := tx.Tickets().GetForUpdate(ctx, ticketID)
		if err != nil {
			return notFound(err, "ticket", ticketID)
		}
		if !domain.CanViewTicket(p, ticket) {
			return apperrors.NewForbidden("not allowed to attach to this ticket")
		}
		if err := checkReopenReference(ctx, tx, ticketID, attachment.ReopenID); err != nil {
			return err
		}
		if err := checkCommentReference(ctx, tx, ticketID, attachment.CommentID); err != nil {
			return err
		}
		if err := tx.Attachments().Create(ctx, attachment); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewValidationReason(ReasonObjectRegistered, "object is already attached")
			}
			return err
		}
		return tx.Tickets().Update(ctx, ticket)
	})
	if err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Info("attachment added",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("attachment_id", attachment.ID),
		zap.Bool("internal", attachment.IsInternal))
	return nil
}

func uploadError(err error) error {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewValidationReason("FILE_TOO_LARGE", "file exceeds the upload limit")
	case errors.Is(err, storage.ErrDeniedExtension):
		return apperrors.NewValidationReason("FILE_TYPE_DENIED", "file type is not allowed")
	case errors.Is(err, storage.ErrInvalidObjectKey):
		return apperrors.NewValidationError("invalid object key", nil)
	}
	return apperrors.NewInternalError(err)
}

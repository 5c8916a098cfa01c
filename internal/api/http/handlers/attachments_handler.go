package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const uploadField = "file"

// AttachmentsHandler serves file uploads and downloads.
type AttachmentsHandler struct {
	attachments *service.AttachmentService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(attachments *service.AttachmentService) *AttachmentsHandler {
	return &AttachmentsHandler{attachments: attachments}
}

// Upload POST /api/tickets/:id/attachments/upload (multipart, field "file").
func (h *AttachmentsHandler) Upload(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	input, closeFile, err := uploadInput(c)
	if err != nil {
		return err
	}
	defer closeFile()
	if input.CommentID, err = formInt64(c, "comment_id"); err != nil {
		return err
	}
	if input.ReopenID, err = formInt64(c, "reopen_id"); err != nil {
		return err
	}
	input.IsInternal = formBool(c, "is_internal")

	attachment, err := h.attachments.Upload(c.UserContext(), principal, id, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewAttachmentResponse(attachment))
}

// StoreUpload POST /api/uploads stores bytes that are bound to a ticket later.
func (h *AttachmentsHandler) StoreUpload(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	input, closeFile, err := uploadInput(c)
	if err != nil {
		return err
	}
	defer closeFile()
	object, err := h.attachments.Store(c.UserContext(), principal, input.Filename, input.ContentType, input.Size, input.Body)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewStoredObjectResponse(object))
}

// Register POST /api/tickets/:id/attachments.
func (h *AttachmentsHandler) Register(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.RegisterAttachmentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	attachment, err := h.attachments.Register(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewAttachmentResponse(attachment))
}

// List GET /api/tickets/:id/attachments.
func (h *AttachmentsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	attachments, err := h.attachments.List(c.UserContext(), principal, id, c.Query("scope"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewAttachmentResponses(attachments))
}

// Download GET /api/attachments/:id/download.
func (h *AttachmentsHandler) Download(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	attachment, body, err := h.attachments.Download(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, attachment.ContentType)
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+strings.ReplaceAll(attachment.Filename, `"`, "")+`"`)
	// fasthttp closes the stream once the response is written.
	return c.SendStream(body, int(attachment.Size))
}

// Delete DELETE /api/attachments/:id.
func (h *AttachmentsHandler) Delete(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.attachments.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// UploadNoticeFile POST /api/notices/:id/attachments/upload.
func (h *AttachmentsHandler) UploadNoticeFile(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	input, closeFile, err := uploadInput(c)
	if err != nil {
		return err
	}
	defer closeFile()
	attachment, err := h.attachments.UploadNoticeFile(c.UserContext(), principal, id, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewAttachmentResponse(attachment))
}

func uploadInput(c *fiber.Ctx) (service.UploadInput, func(), error) {
	header, err := c.FormFile(uploadField)
	if err != nil {
		return service.UploadInput{}, nil, apperrors.NewValidationError("file is required", map[string]any{"field": uploadField})
	}
	file, err := header.Open()
	if err != nil {
		return service.UploadInput{}, nil, apperrors.NewInternalError(err)
	}
	return service.UploadInput{
		Filename:    header.Filename,
		ContentType: contentType(header),
		Size:        header.Size,
		Body:        file,
	}, func() { _ = file.Close() }, nil
}

func contentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get(fiber.HeaderContentType); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func formBool(c *fiber.Ctx, key string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(c.FormValue(key)))
	return err == nil && b
}

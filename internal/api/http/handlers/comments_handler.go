package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// CommentsHandler serves the ticket thread: comments and reopen rounds.
type CommentsHandler struct {
	comments *service.CommentService
	reopens  *service.ReopenService
}

// NewCommentsHandler constructs handler.
func NewCommentsHandler(comments *service.CommentService, reopens *service.ReopenService) *CommentsHandler {
	return &CommentsHandler{comments: comments, reopens: reopens}
}

// CreateComment POST /api/tickets/:id/comments.
func (h *CommentsHandler) CreateComment(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateCommentRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.comments.Create(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewCommentResponse(view))
}

// ListComments GET /api/tickets/:id/comments.
func (h *CommentsHandler) ListComments(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	views, err := h.comments.List(c.UserContext(), principal, id, c.Query("scope"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewCommentResponses(views))
}

// CreateReopen POST /api/tickets/:id/reopens.
func (h *CommentsHandler) CreateReopen(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.CreateReopenRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	reopen, err := h.reopens.Create(c.UserContext(), principal, id, service.ReopenInput{Description: req.Description})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewReopenResponse(reopen))
}

// ListReopens GET /api/tickets/:id/reopens.
func (h *CommentsHandler) ListReopens(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	reopens, err := h.reopens.List(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewReopenResponses(reopens))
}

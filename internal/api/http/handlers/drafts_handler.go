package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// DraftsHandler serves the caller's draft tickets.
type DraftsHandler struct {
	drafts *service.DraftService
}

// NewDraftsHandler constructs handler.
func NewDraftsHandler(drafts *service.DraftService) *DraftsHandler {
	return &DraftsHandler{drafts: drafts}
}

// Create POST /api/draft-tickets.
func (h *DraftsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.DraftRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	draft, err := h.drafts.Create(c.UserContext(), principal, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewDraftResponse(draft))
}

// List GET /api/draft-tickets.
func (h *DraftsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	drafts, err := h.drafts.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDraftResponses(drafts))
}

// Get GET /api/draft-tickets/:id.
func (h *DraftsHandler) Get(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	draft, err := h.drafts.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDraftResponse(draft))
}

// Update PATCH /api/draft-tickets/:id.
func (h *DraftsHandler) Update(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.DraftRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	draft, err := h.drafts.Update(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewDraftResponse(draft))
}

// Delete DELETE /api/draft-tickets/:id.
func (h *DraftsHandler) Delete(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.drafts.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Publish POST /api/draft-tickets/:id/publish turns a complete draft into a ticket.
func (h *DraftsHandler) Publish(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.drafts.Publish(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewTicketResponse(view))
}

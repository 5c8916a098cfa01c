package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/service"
)

// KnowledgeHandler serves either notices or FAQs; kind picks which.
type KnowledgeHandler struct {
	knowledge *service.KnowledgeService
	kind      domain.KnowledgeKind
}

// NewKnowledgeHandler constructs a handler bound to one kind.
func NewKnowledgeHandler(knowledge *service.KnowledgeService, kind domain.KnowledgeKind) *KnowledgeHandler {
	return &KnowledgeHandler{knowledge: knowledge, kind: kind}
}

// List GET /api/{notices,faqs}?category=&query=.
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	items, err := h.knowledge.List(c.UserContext(), h.kind, service.KnowledgeQuery{
		Category: c.Query("category"),
		Query:    c.Query("query"),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewKnowledgeResponses(items))
}

// Get GET /api/{notices,faqs}/:id.
func (h *KnowledgeHandler) Get(c *fiber.Ctx) error {
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	item, err := h.knowledge.Get(c.UserContext(), h.kind, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewKnowledgeResponse(item))
}

// Create POST /api/{notices,faqs}.
func (h *KnowledgeHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.KnowledgeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.knowledge.Create(c.UserContext(), principal, h.kind, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewKnowledgeResponse(item))
}

// Update PATCH /api/{notices,faqs}/:id.
func (h *KnowledgeHandler) Update(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateKnowledgeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	item, err := h.knowledge.Update(c.UserContext(), principal, h.kind, id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewKnowledgeResponse(item))
}

// Delete DELETE /api/{notices,faqs}/:id.
func (h *KnowledgeHandler) Delete(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.knowledge.Delete(c.UserContext(), principal, h.kind, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// TicketsHandler manages ticket endpoints shared by requesters and staff.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.Create(c.UserContext(), principal, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewTicketResponse(view))
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	views, err := h.service.List(c.UserContext(), principal, parseTicketQuery(c))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponses(views))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.service.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(view))
}

// GetTicketDetail GET /api/tickets/:id/detail.
func (h *TicketsHandler) GetTicketDetail(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	detail, err := h.service.Detail(c.UserContext(), principal, id, c.Query("scope"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketDetailResponse(detail))
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.UpdateTicket(c.UserContext(), principal, id, req.ToInput())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(view))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListEvents GET /api/tickets/:id/events.
func (h *TicketsHandler) ListEvents(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	events, err := h.service.ListEvents(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewEventResponses(events))
}

func parseTicketQuery(c *fiber.Ctx) service.TicketListQuery {
	return service.TicketListQuery{
		Scope:      c.Query("scope"),
		Status:     c.Query("status"),
		Priority:   c.Query("priority"),
		Category:   c.Query("category"),
		AssigneeID: c.Query("assignee"),
		Limit:      queryInt(c, "limit", 50),
		Offset:     queryInt(c, "offset", 0),
	}
}

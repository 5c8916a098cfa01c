package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// StaffTicketsHandler handles the staff-only ticket operations.
type StaffTicketsHandler struct {
	tickets     *service.TicketService
	assignments *service.AssignmentService
}

// NewStaffTicketsHandler constructs handler.
func NewStaffTicketsHandler(ticketService *service.TicketService, assignmentService *service.AssignmentService) *StaffTicketsHandler {
	return &StaffTicketsHandler{tickets: ticketService, assignments: assignmentService}
}

// UpdateStatus PATCH /api/tickets/:id/status.
func (h *StaffTicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.StatusChangeRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.tickets.UpdateStatus(c.UserContext(), principal, id, service.StatusChangeInput{
		Status: req.Status,
		Note:   req.Note,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(view))
}

// AllowedTransitions GET /api/tickets/:id/transitions.
func (h *StaffTicketsHandler) AllowedTransitions(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	view, err := h.tickets.Get(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	allowed, err := h.tickets.AllowedTransitions(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	resp := dto.AllowedTransitionsResponse{Current: string(view.Ticket.Status), Allowed: make([]string, 0, len(allowed))}
	for _, s := range allowed {
		resp.Allowed = append(resp.Allowed, string(s))
	}
	return respond(c, http.StatusOK, resp)
}

// Assign PATCH /api/tickets/:id/assign.
func (h *StaffTicketsHandler) Assign(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.assignments.Assign(c.UserContext(), principal, id, req.AssigneeEmpNo)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewTicketResponse(view))
}

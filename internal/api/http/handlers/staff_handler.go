package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// StaffHandler serves the staff directory and the per-user notification feed.
type StaffHandler struct {
	users         *service.UserService
	notifications *service.NotificationService
}

// NewStaffHandler constructs handler.
func NewStaffHandler(users *service.UserService, notifications *service.NotificationService) *StaffHandler {
	return &StaffHandler{users: users, notifications: notifications}
}

// ListStaff GET /api/users/staff feeds the assignee picker.
func (h *StaffHandler) ListStaff(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	staff, err := h.users.ListStaff(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserSummaries(staff))
}

// Notifications GET /api/notifications.
func (h *StaffHandler) Notifications(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	feed, err := h.notifications.List(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, feed)
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// UsersHandler exposes login, registration and the caller's profile.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// Register handles POST /api/auth/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		EmployeeNo: req.EmployeeNo,
		Email:      req.Email,
		Password:   req.Password,
		Name:       req.Name,
		EngName:    req.EngName,
		Title:      req.Title,
		Department: req.Department,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, authResponse(session))
}

// Login handles POST /api/auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	session, err := h.auth.Login(c.UserContext(), req.EmployeeNo, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, authResponse(session))
}

// Me handles GET /api/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), principal)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserResponse(user))
}

func authResponse(s *service.Session) dto.AuthResponse {
	return dto.AuthResponse{Token: s.Token, ExpiresAt: s.ExpiresAt, User: dto.NewUserResponse(s.User)}
}

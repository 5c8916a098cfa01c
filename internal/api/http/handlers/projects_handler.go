package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/servicedesk/internal/api/dto"
	"github.com/spec-kit/servicedesk/internal/service"
)

// ProjectsHandler serves projects and their membership.
type ProjectsHandler struct {
	projects *service.ProjectService
}

// NewProjectsHandler constructs handler.
func NewProjectsHandler(projects *service.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{projects: projects}
}

// List GET /api/projects?query=&mine=.
func (h *ProjectsHandler) List(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	projects, err := h.projects.List(c.UserContext(), principal, service.ProjectListQuery{
		Query: c.Query("query"),
		Mine:  queryBool(c, "mine"),
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewProjectResponses(projects))
}

// Create POST /api/projects.
func (h *ProjectsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateProjectRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	project, err := h.projects.Create(c.UserContext(), principal, service.ProjectCreateInput{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.NewProjectResponse(project))
}

// Delete DELETE /api/projects/:id.
func (h *ProjectsHandler) Delete(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.projects.Delete(c.UserContext(), principal, id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Reorder POST /api/projects/reorder.
func (h *ProjectsHandler) Reorder(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.ReorderProjectsRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.projects.Reorder(c.UserContext(), principal, req.IDs); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListMembers GET /api/projects/:id/members.
func (h *ProjectsHandler) ListMembers(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	members, err := h.projects.ListMembers(c.UserContext(), principal, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.NewUserSummaries(members))
}

// AddMember POST /api/projects/:id/members.
func (h *ProjectsHandler) AddMember(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	var req dto.AddMemberRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	member, err := h.projects.AddMember(c.UserContext(), principal, id, req.EmployeeNo)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, dto.MemberResponse{
		ProjectID:  member.ProjectID,
		EmployeeNo: member.EmployeeNo,
		CreatedAt:  member.CreatedAt,
	})
}

// RemoveMember DELETE /api/projects/:id/members/:empNo.
func (h *ProjectsHandler) RemoveMember(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := idParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.projects.RemoveMember(c.UserContext(), principal, id, c.Params("empNo")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	StaffTickets   *handlers.StaffTicketsHandler
	Comments       *handlers.CommentsHandler
	Attachments    *handlers.AttachmentsHandler
	Drafts         *handlers.DraftsHandler
	Projects       *handlers.ProjectsHandler
	Notices        *handlers.KnowledgeHandler
	FAQs           *handlers.KnowledgeHandler
	Staff          *handlers.StaffHandler
	Metrics        *observability.Metrics
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Post("/auth/login", cfg.Users.Login)
	api.Post("/auth/register", cfg.Users.Register)

	protected := api.Group("", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())
	staffOnly := auth.RequireStaff()
	protected.Get("/me", cfg.Users.Me)
	protected.Get("/users/staff", staffOnly, cfg.Staff.ListStaff)
	protected.Get("/notifications", cfg.Staff.Notifications)

	tickets := protected.Group("/tickets")
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", cfg.Tickets.DeleteTicket)
	tickets.Get("/:id/detail", cfg.Tickets.GetTicketDetail)
	tickets.Get("/:id/events", cfg.Tickets.ListEvents)
	tickets.Patch("/:id/status", staffOnly, cfg.StaffTickets.UpdateStatus)
	tickets.Get("/:id/transitions", cfg.StaffTickets.AllowedTransitions)
	tickets.Patch("/:id/assign", staffOnly, cfg.StaffTickets.Assign)
	tickets.Post("/:id/reopens", cfg.Comments.CreateReopen)
	tickets.Get("/:id/reopens", cfg.Comments.ListReopens)
	tickets.Post("/:id/comments", cfg.Comments.CreateComment)
	tickets.Get("/:id/comments", cfg.Comments.ListComments)
	tickets.Post("/:id/attachments/upload", cfg.Attachments.Upload)
	tickets.Post("/:id/attachments", cfg.Attachments.Register)
	tickets.Get("/:id/attachments", cfg.Attachments.List)

	protected.Post("/uploads", cfg.Attachments.StoreUpload)
	protected.Get("/attachments/:id/download", cfg.Attachments.Download)
	protected.Delete("/attachments/:id", cfg.Attachments.Delete)

	drafts := protected.Group("/draft-tickets")
	drafts.Post("/", cfg.Drafts.Create)
	drafts.Get("/", cfg.Drafts.List)
	drafts.Get("/:id", cfg.Drafts.Get)
	drafts.Patch("/:id", cfg.Drafts.Update)
	drafts.Delete("/:id", cfg.Drafts.Delete)
	drafts.Post("/:id/publish", cfg.Drafts.Publish)

	projects := protected.Group("/projects")
	projects.Get("/", cfg.Projects.List)
	projects.Post("/", cfg.Projects.Create)
	projects.Post("/reorder", cfg.Projects.Reorder)
	projects.Delete("/:id", cfg.Projects.Delete)
	projects.Get("/:id/members", cfg.Projects.ListMembers)
	projects.Post("/:id/members", cfg.Projects.AddMember)
	projects.Delete("/:id/members/:empNo", cfg.Projects.RemoveMember)

	registerKnowledge(protected.Group("/notices"), cfg.Notices)
	protected.Post("/notices/:id/attachments/upload", cfg.Attachments.UploadNoticeFile)
	registerKnowledge(protected.Group("/faqs"), cfg.FAQs)
}

func registerKnowledge(group fiber.Router, h *handlers.KnowledgeHandler) {
	group.Get("/", h.List)
	group.Post("/", h.Create)
	group.Get("/:id", h.Get)
	group.Patch("/:id", h.Update)
	group.Delete("/:id", h.Delete)
}

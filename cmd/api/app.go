package main

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/storage"
	"github.com/spec-kit/servicedesk/internal/worker"
)

type application struct {
	server *fiber.App
	auth   *service.AuthService
	pg     *persistence.Postgres
	redis  *persistence.Redis
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	app := &application{}

	var store repository.Store
	if cfg.Postgres.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; using in-memory store")
		store = repository.NewMemoryStore()
	} else {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		app.pg = pg
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		store = repository.NewPostgresStore(pg.PoolHandle())
	}
	app.redis = persistence.NewRedis(cfg.Redis, logger)

	policy, err := domain.TransitionPolicyByName(cfg.Ticket.TransitionPolicy)
	if err != nil {
		app.Close()
		return nil, err
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)
	files := storage.NewLocalStore(cfg.Storage)
	uploadPolicy := storage.NewUploadPolicy(cfg.Storage)

	app.auth = service.NewAuthService(*cfg, service.AuthDependencies{UserRepo: store.Users(), Logger: logger})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Files:      files,
		Dispatcher: dispatcher,
		Policy:     policy,
		Logger:     logger,
	})
	assignments := service.NewAssignmentService(service.AssignmentDependencies{Store: store, Dispatcher: dispatcher, Logger: logger})
	comments := service.NewCommentService(service.CommentDependencies{Store: store, Dispatcher: dispatcher, Logger: logger})
	reopens := service.NewReopenService(service.ReopenDependencies{Store: store, Dispatcher: dispatcher, Logger: logger})
	drafts := service.NewDraftService(service.DraftDependencies{Store: store, Dispatcher: dispatcher, Logger: logger})
	attachments := service.NewAttachmentService(service.AttachmentDependencies{Store: store, Files: files, Policy: uploadPolicy, Logger: logger})
	projects := service.NewProjectService(cfg.Project, service.ProjectDependencies{Store: store, Logger: logger})
	knowledge := service.NewKnowledgeService(service.KnowledgeDependencies{Store: store, Files: files, Logger: logger})
	notifications := service.NewNotificationService(cfg.Notification, service.NotificationDependencies{
		Store:      store,
		Redis:      app.redis.Handle(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})
	users := service.NewUserService(store.Users())

	worker.StartNotificationWorker(dispatcher, notifications, metrics, logger)

	app.server = httptransport.NewServer(cfg.App, logger, metrics)
	httptransport.RegisterRoutes(app.server, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": app.pg,
			"redis":    app.redis,
		}),
		Users:          handlers.NewUsersHandler(app.auth),
		Tickets:        handlers.NewTicketsHandler(tickets),
		StaffTickets:   handlers.NewStaffTicketsHandler(tickets, assignments),
		Comments:       handlers.NewCommentsHandler(comments, reopens),
		Attachments:    handlers.NewAttachmentsHandler(attachments),
		Drafts:         handlers.NewDraftsHandler(drafts),
		Projects:       handlers.NewProjectsHandler(projects),
		Notices:        handlers.NewKnowledgeHandler(knowledge, domain.KnowledgeNotice),
		FAQs:           handlers.NewKnowledgeHandler(knowledge, domain.KnowledgeFAQ),
		Staff:          handlers.NewStaffHandler(users, notifications),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(app.auth.TokenManager(), store.Users()),
	})
	return app, nil
}

// Close releases database and cache connections.
func (a *application) Close() {
	a.redis.Close()
	a.pg.Close()
}

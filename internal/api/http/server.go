package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/observability"
)

// NewServer builds the Fiber app with the global middleware chain installed.
// Routes are added separately with RegisterRoutes.
func NewServer(cfg config.AppConfig, logger *zap.Logger, metrics *observability.Metrics) *fiber.App {
	fiberCfg := fiber.Config{
		AppName:      cfg.Name,
		ErrorHandler: ErrorHandler(logger),
	}
	if cfg.BodyLimitBytes > 0 {
		fiberCfg.BodyLimit = cfg.BodyLimitBytes
	}
	app := fiber.New(fiberCfg)
	RegisterMiddlewares(app, logger, metrics, cfg.RequestTimeout())
	return app
}

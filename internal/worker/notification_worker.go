package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/service"
)

// StartNotificationWorker registers the event subscribers: feed cache
// invalidation and ticket lifecycle metrics.
func StartNotificationWorker(dispatcher events.Dispatcher, notificationService *service.NotificationService, metrics *observability.Metrics, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if notificationService != nil {
		notificationService.RegisterHandlers()
	}
	events.SubscribeAll(dispatcher, lifecycleRecorder(metrics, logger))
}

func lifecycleRecorder(metrics *observability.Metrics, logger *zap.Logger) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		metrics.RecordTicketEvent(string(event.Type))
		if event.Type == events.EventTicketCreated {
			metrics.RecordTicketCreated()
		}
		logger.Debug("ticket event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Int64("ticket_id", event.TicketID),
			zap.String("actor", event.ActorID))
		return nil
	}
}

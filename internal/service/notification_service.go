package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

const (
	newTicketMessage       = "New request submitted."
	notificationGenKey     = "notifications:gen"
	defaultNotificationCap = 50
)

// NotificationService derives the per-principal notification feed and keeps
// its cache in step with domain events.
type NotificationService struct {
	store      repository.Store
	cache      *redis.Client
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
	now        func() time.Time
}

// NotificationDependencies bundles collaborators. Redis is optional.
type NotificationDependencies struct {
	Store      repository.Store
	Redis      *redis.Client
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(cfg config.NotificationConfig, deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Limit <= 0 {
		cfg.Limit = defaultNotificationCap
	}
	return &NotificationService{
		store:      deps.Store,
		cache:      deps.Redis,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterHandlers subscribes cache invalidation to every domain event.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	events.SubscribeAll(n.dispatcher, n.handleEvent)
}

func (n *NotificationService) handleEvent(ctx context.Context, event events.Event) error {
	if n.cache == nil || n.cfg.CacheTTL() == 0 {
		return nil
	}
	if event.Audience.AllStaff {
		return n.cache.Incr(ctx, notificationGenKey).Err()
	}
	targets := dedupe(event.Audience.EmployeeNos)
	if len(targets) == 0 {
		return nil
	}
	pipe := n.cache.Pipeline()
	for _, empNo := range targets {
		pipe.Incr(ctx, employeeGenKey(empNo))
	}
	_, err := pipe.Exec(ctx)
	return err
}

// List returns the caller's feed newest first.
func (n *NotificationService) List(ctx context.Context, p domain.Principal) ([]domain.Notification, error) {
	key, cached, ok := n.readCache(ctx, p)
	if ok {
		return cached, nil
	}
	feed, err := n.compute(ctx, p)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if key != "" {
		n.writeCache(ctx, key, feed)
	}
	return feed, nil
}

func (n *NotificationService) compute(ctx context.Context, p domain.Principal) ([]domain.Notification, error) {
	limit := n.cfg.Limit
	since := n.now().Add(-n.cfg.NewTicketWindow())
	var eventItems, ticketItems, commentItems []domain.Notification

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := n.store.Events().ListForRequester(gctx, p.EmployeeNo, limit)
		if err != nil {
			return fmt.Errorf("list requester events: %w", err)
		}
		for _, row := range rows {
			eventItems = append(eventItems, domain.Notification{
				ID:          "event:" + strconv.FormatInt(row.Event.ID, 10),
				TicketID:    row.Event.TicketID,
				TicketTitle: row.TicketTitle,
				Type:        string(row.Event.Type),
				Message:     row.Event.Message(),
				CreatedAt:   row.Event.CreatedAt,
			})
		}
		return nil
	})
	if domain.IsStaff(p) {
		g.Go(func() error {
			tickets, err := n.store.Tickets().ListCreatedSince(gctx, since, limit)
			if err != nil {
				return fmt.Errorf("list new tickets: %w", err)
			}
			for _, t := range tickets {
				ticketItems = append(ticketItems, domain.Notification{
					ID:          "ticket:" + strconv.FormatInt(t.ID, 10),
					TicketID:    t.ID,
					TicketTitle: t.Title,
					Type:        domain.NotificationNewTicket,
					Message:     newTicketMessage,
					CreatedAt:   t.CreatedAt,
				})
			}
			return nil
		})
		g.Go(func() error {
			rows, err := n.store.Comments().ListRequesterCommentsOnAssigned(gctx, p.EmployeeNo, limit)
			if err != nil {
				return fmt.Errorf("list requester comments: %w", err)
			}
			for _, row := range rows {
				commentItems = append(commentItems, domain.Notification{
					ID:          "comment:" + strconv.FormatInt(row.Comment.ID, 10),
					TicketID:    row.Comment.TicketID,
					TicketTitle: row.TicketTitle,
					Type:        domain.NotificationRequesterCommented,
					Message:     richtext.Snippet(row.Comment.Body, commentPreviewRunes),
					CreatedAt:   row.Comment.CreatedAt,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	feed := make([]domain.Notification, 0, len(eventItems)+len(ticketItems)+len(commentItems))
	feed = append(feed, eventItems...)
	feed = append(feed, ticketItems...)
	feed = append(feed, commentItems...)
	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CreatedAt.After(feed[j].CreatedAt)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return feed, nil
}

// feedKey embeds the global and the per-employee generation read before the
// feed is computed. Any invalidation in between bumps one of them, so a feed
// computed from older rows lands under a key no reader asks for.
func (n *NotificationService) feedKey(ctx context.Context, employeeNo string) (string, error) {
	gens, err := n.cache.MGet(ctx, notificationGenKey, employeeGenKey(employeeNo)).Result()
	if err != nil {
		return "", err
	}
	parts := make([]string, len(gens))
	for i, g := range gens {
		parts[i] = "0"
		if v, ok := g.(string); ok {
			parts[i] = v
		}
	}
	return "notifications:" + strings.Join(parts, ":") + ":" + employeeNo, nil
}

func employeeGenKey(employeeNo string) string {
	return notificationGenKey + ":" + employeeNo
}

// readCache returns the key the computed feed should be stored under, or ""
// when caching is off or unavailable.
func (n *NotificationService) readCache(ctx context.Context, p domain.Principal) (string, []domain.Notification, bool) {
	if n.cache == nil || n.cfg.CacheTTL() == 0 {
		return "", nil, false
	}
	key, err := n.feedKey(ctx, p.EmployeeNo)
	if err != nil {
		n.logger.Warn("notification cache unavailable", zap.Error(err))
		return "", nil, false
	}
	raw, err := n.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			n.logger.Warn("notification cache read failed", zap.Error(err))
		}
		return key, nil, false
	}
	var feed []domain.Notification
	if err := json.Unmarshal(raw, &feed); err != nil {
		return key, nil, false
	}
	return key, feed, true
}

func (n *NotificationService) writeCache(ctx context.Context, key string, feed []domain.Notification) {
	raw, err := json.Marshal(feed)
	if err != nil {
		return
	}
	if err := n.cache.Set(ctx, key, raw, n.cfg.CacheTTL()).Err(); err != nil {
		n.logger.Warn("notification cache write failed", zap.Error(err))
	}
}

package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/servicedesk/internal/api/http"
	"github.com/spec-kit/servicedesk/internal/api/http/handlers"
	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/observability"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/service"
	"github.com/spec-kit/servicedesk/internal/storage"
	"github.com/spec-kit/servicedesk/internal/worker"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type RouterSuite struct {
	suite.Suite
	app            *fiber.App
	store          *repository.MemoryStore
	requesterToken string
	staffToken     string
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	logger := zap.NewNop()
	cfg := config.Config{
		App: config.AppConfig{Name: "servicedesk-test", BodyLimitBytes: 1 << 20},
		Auth: config.AuthConfig{
			JWTSecret:             "test-secret",
			AccessTokenTTLMinutes: 10,
			BcryptCost:            4,
			AllowedEmailDomains:   []string{"corp.test"},
		},
		Storage: config.StorageConfig{
			Root:             s.T().TempDir(),
			MaxUploadBytes:   1024,
			DeniedExtensions: []string{".exe"},
		},
		Notification: config.NotificationConfig{NewTicketWindowDays: 30, Limit: 50},
		Project:      config.ProjectConfig{ProtectedNames: []string{"None"}},
	}

	s.store = repository.NewMemoryStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	metrics := observability.NewMetrics()
	files := storage.NewLocalStore(cfg.Storage)

	authService := service.NewAuthService(cfg, service.AuthDependencies{UserRepo: s.store.Users()})
	tickets := service.NewTicketService(service.TicketDependencies{Store: s.store, Files: files, Dispatcher: dispatcher, Policy: domain.StrictTransitions})
	notifications := service.NewNotificationService(cfg.Notification, service.NotificationDependencies{Store: s.store, Dispatcher: dispatcher})
	knowledge := service.NewKnowledgeService(service.KnowledgeDependencies{Store: s.store, Files: files})
	worker.StartNotificationWorker(dispatcher, notifications, metrics, logger)

	s.app = httptransport.NewServer(cfg.App, logger, metrics)
	httptransport.RegisterRoutes(s.app, httptransport.RouteConfig{
		Health:       handlers.NewHealthHandler("servicedesk-test", "test", nil),
		Users:        handlers.NewUsersHandler(authService),
		Tickets:      handlers.NewTicketsHandler(tickets),
		StaffTickets: handlers.NewStaffTicketsHandler(tickets, service.NewAssignmentService(service.AssignmentDependencies{Store: s.store, Dispatcher: dispatcher})),
		Comments: handlers.NewCommentsHandler(
			service.NewCommentService(service.CommentDependencies{Store: s.store, Dispatcher: dispatcher}),
			service.NewReopenService(service.ReopenDependencies{Store: s.store, Dispatcher: dispatcher}),
		),
		Attachments: handlers.NewAttachmentsHandler(service.NewAttachmentService(service.AttachmentDependencies{
			Store:  s.store,
			Files:  files,
			Policy: storage.NewUploadPolicy(cfg.Storage),
		})),
		Drafts:         handlers.NewDraftsHandler(service.NewDraftService(service.DraftDependencies{Store: s.store, Dispatcher: dispatcher})),
		Projects:       handlers.NewProjectsHandler(service.NewProjectService(cfg.Project, service.ProjectDependencies{Store: s.store})),
		Notices:        handlers.NewKnowledgeHandler(knowledge, domain.KnowledgeNotice),
		FAQs:           handlers.NewKnowledgeHandler(knowledge, domain.KnowledgeFAQ),
		Staff:          handlers.NewStaffHandler(service.NewUserService(s.store.Users()), notifications),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), s.store.Users()),
	})

	s.addUser("R001", "Kim", domain.RoleRequester)
	s.addUser("A001", "Lee", domain.RoleAdmin)
	s.requesterToken = s.login("R001")
	s.staffToken = s.login("A001")
}

func (s *RouterSuite) addUser(empNo, name string, role domain.Role) {
	hash, err := auth.HashPassword("password123", 4)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Users().Create(context.Background(), &domain.User{
		EmployeeNo:   empNo,
		Email:        strings.ToLower(empNo) + "@corp.test",
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Verified:     true,
	}))
}

func (s *RouterSuite) login(empNo string) string {
	resp, env := s.do(nethttp.MethodPost, "/api/auth/login", "", map[string]string{"emp_no": empNo, "password": "password123"})
	s.Require().Equal(nethttp.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Require().NotEmpty(out.Token)
	return out.Token
}

func (s *RouterSuite) do(method, path, token string, body any) (*nethttp.Response, envelope) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(req, token)
}

func (s *RouterSuite) send(req *nethttp.Request, token string) (*nethttp.Response, envelope) {
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	var env envelope
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		s.Require().NoError(json.Unmarshal(raw, &env))
	}
	return resp, env
}

func (s *RouterSuite) createTicket(title string) int64 {
	resp, env := s.do(nethttp.MethodPost, "/api/tickets", s.requesterToken, map[string]any{
		"title":       title,
		"description": map[string]any{"type": "doc", "content": []any{map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "details"}}}}},
		"priority":    "high",
	})
	s.Require().Equal(nethttp.StatusCreated, resp.StatusCode)
	var out struct {
		ID        int64 `json:"id"`
		Requester struct {
			EmployeeNo string `json:"emp_no"`
		} `json:"requester"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Equal("R001", out.Requester.EmployeeNo)
	return out.ID
}

func ticketPath(id int64, suffix string) string {
	return "/api/tickets/" + strconv.FormatInt(id, 10) + suffix
}

func (s *RouterSuite) TestAuthRequired() {
	resp, env := s.do(nethttp.MethodGet, "/api/tickets", "", nil)
	s.Equal(nethttp.StatusUnauthorized, resp.StatusCode)
	s.Require().NotNil(env.Error)
	s.Equal("UNAUTHORIZED", env.Error.Code)

	resp, _ = s.do(nethttp.MethodGet, "/api/me", "not-a-token", nil)
	s.Equal(nethttp.StatusUnauthorized, resp.StatusCode)

	resp, env = s.do(nethttp.MethodGet, "/api/me", s.requesterToken, nil)
	s.Equal(nethttp.StatusOK, resp.StatusCode)
	s.Contains(string(env.Data), `"emp_no":"R001"`)
	s.NotContains(string(env.Data), "password")
}

func (s *RouterSuite) TestRegisterValidation() {
	resp, env := s.do(nethttp.MethodPost, "/api/auth/register", "", map[string]string{"emp_no": "N1", "email": "bad", "password": "x"})
	s.Equal(nethttp.StatusUnprocessableEntity, resp.StatusCode)
	s.Require().NotNil(env.Error)
	fields, ok := env.Error.Details["fields"].(map[string]any)
	s.Require().True(ok)
	s.Contains(fields, "email")
	s.Contains(fields, "password")
	s.Contains(fields, "name")

	resp, _ = s.do(nethttp.MethodPost, "/api/auth/register", "", map[string]string{
		"emp_no": "N1", "email": "n1@corp.test", "password": "longenough", "name": "New",
	})
	s.Equal(nethttp.StatusCreated, resp.StatusCode)
}

func (s *RouterSuite) TestStatusLifecycle() {
	id := s.createTicket("printer jam")

	resp, env := s.do(nethttp.MethodPatch, ticketPath(id, "/status"), s.requesterToken, map[string]string{"status": "closed"})
	s.Equal(nethttp.StatusForbidden, resp.StatusCode)
	s.Equal("FORBIDDEN", env.Error.Code)

	resp, _ = s.do(nethttp.MethodPatch, ticketPath(id, "/status"), s.staffToken, map[string]string{"status": "in_progress"})
	s.Equal(nethttp.StatusOK, resp.StatusCode)

	resp, env = s.do(nethttp.MethodPatch, ticketPath(id, "/status"), s.staffToken, map[string]string{"status": "open"})
	s.Equal(nethttp.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal("INVALID_TRANSITION", env.Error.Code)
	s.Equal("in_progress", env.Error.Details["from"])
	s.Equal("open", env.Error.Details["to"])

	resp, env = s.do(nethttp.MethodGet, ticketPath(id, "/events"), s.requesterToken, nil)
	s.Equal(nethttp.StatusOK, resp.StatusCode)
	var evs []struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &evs))
	s.Require().Len(evs, 1)
	s.Equal("status_changed", evs[0].Type)
	s.Equal("open -> in_progress", evs[0].Message)

	resp, env = s.do(nethttp.MethodPatch, ticketPath(id, ""), s.requesterToken, map[string]string{"title": "late edit"})
	s.Equal(nethttp.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal("TICKET_NOT_EDITABLE", env.Error.Details["reason"])
}

func (s *RouterSuite) TestAssignAndStaffDirectory() {
	id := s.createTicket("vpn")

	resp, _ := s.do(nethttp.MethodGet, "/api/users/staff", s.requesterToken, nil)
	s.Equal(nethttp.StatusForbidden, resp.StatusCode)
	resp, env := s.do(nethttp.MethodGet, "/api/users/staff", s.staffToken, nil)
	s.Equal(nethttp.StatusOK, resp.StatusCode)
	s.Contains(string(env.Data), `"emp_no":"A001"`)

	resp, env = s.do(nethttp.MethodPatch, ticketPath(id, "/assign"), s.staffToken, map[string]string{"assignee_emp_no": "A001"})
	s.Equal(nethttp.StatusOK, resp.StatusCode)
	var out struct {
		Assignee struct {
			Name string `json:"name"`
		} `json:"assignee"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &out))
	s.Equal("Lee", out.Assignee.Name)
}

func (s *RouterSuite) TestDraftPublish() {
	resp, env := s.do(nethttp.MethodPost, "/api/draft-tickets", s.requesterToken, map[string]any{"title": "monitor"})
	s.Require().Equal(nethttp.StatusCreated, resp.StatusCode)
	var draft struct {
		ID int64 `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &draft))
	path := "/api/draft-tickets/" + strconv.FormatInt(draft.ID, 10)

	resp, env = s.do(nethttp.MethodPost, path+"/publish", s.requesterToken, nil)
	s.Equal(nethttp.StatusUnprocessableEntity, resp.StatusCode)
	s.Equal("DRAFT_INCOMPLETE", env.Error.Details["reason"])

	resp, _ = s.do(nethttp.MethodPatch, path, s.requesterToken, map[string]any{
		"description": map[string]any{"type": "doc", "content": []any{map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "flicker"}}}}},
		"priority":    "low",
		"category":    "hardware",
	})
	s.Equal(nethttp.StatusOK, resp.StatusCode)

	resp, env = s.do(nethttp.MethodPost, path+"/publish", s.requesterToken, nil)
	s.Require().Equal(nethttp.StatusCreated, resp.StatusCode)
	s.Contains(string(env.Data), `"status":"open"`)

	resp, _ = s.do(nethttp.MethodGet, path, s.requesterToken, nil)
	s.Equal(nethttp.StatusNotFound, resp.StatusCode)
}

func (s *RouterSuite) TestUploadAndDownload() {
	id := s.createTicket("logs")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "trace.log")
	s.Require().NoError(err)
	_, err = part.Write([]byte("trace body"))
	s.Require().NoError(err)
	s.Require().NoError(mw.Close())

	req := httptest.NewRequest(nethttp.MethodPost, ticketPath(id, "/attachments/upload"), &buf)
	req.Header.Set(fiber.HeaderContentType, mw.FormDataContentType())
	resp, env := s.send(req, s.requesterToken)
	s.Require().Equal(nethttp.StatusCreated, resp.StatusCode)
	var att struct {
		ID  int64  `json:"id"`
		URL string `json:"url"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &att))
	s.NotContains(string(env.Data), "uploads/")

	req = httptest.NewRequest(nethttp.MethodGet, att.URL, nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+s.requesterToken)
	raw, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	s.Equal(nethttp.StatusOK, raw.StatusCode)
	body, err := io.ReadAll(raw.Body)
	s.Require().NoError(err)
	s.Equal("trace body", string(body))
	s.Contains(raw.Header.Get(fiber.HeaderContentDisposition), "trace.log")

	resp, _ = s.do(nethttp.MethodDelete, "/api/attachments/"+strconv.FormatInt(att.ID, 10), s.requesterToken, nil)
	s.Equal(nethttp.StatusForbidden, resp.StatusCode)
	resp, _ = s.do(nethttp.MethodDelete, "/api/attachments/"+strconv.FormatInt(att.ID, 10), s.staffToken, nil)
	s.Equal(nethttp.StatusNoContent, resp.StatusCode)
}

func (s *RouterSuite) TestNotificationsFeed() {
	id := s.createTicket("disk full")
	resp, env := s.do(nethttp.MethodGet, "/api/notifications", s.staffToken, nil)
	s.Require().Equal(nethttp.StatusOK, resp.StatusCode)
	var feed []domain.Notification
	s.Require().NoError(json.Unmarshal(env.Data, &feed))
	s.Require().Len(feed, 1)
	s.Equal(domain.NotificationNewTicket, feed[0].Type)
	s.Equal(id, feed[0].TicketID)
}

func (s *RouterSuite) TestProtectedProjectAndKnowledge() {
	resp, env := s.do(nethttp.MethodPost, "/api/projects", s.staffToken, map[string]string{"name": "None"})
	s.Require().Equal(nethttp.StatusCreated, resp.StatusCode)
	var project struct {
		ID int64 `json:"id"`
	}
	s.Require().NoError(json.Unmarshal(env.Data, &project))

	resp, env = s.do(nethttp.MethodDelete, "/api/projects/"+strconv.FormatInt(project.ID, 10), s.staffToken, nil)
	s.Equal(nethttp.StatusConflict, resp.StatusCode)
	s.Equal("CONFLICT_PROTECTED", env.Error.Code)

	resp, env = s.do(nethttp.MethodPost, "/api/faqs", s.staffToken, map[string]any{
		"title": "Reset password",
		"body":  map[string]any{"type": "doc", "content": []any{map[string]any{"type": "paragraph", "content": []any{map[string]any{"type": "text", "text": "Use the portal"}}}}},
	})
	s.Require().Equal(nethttp.StatusCreated, resp.StatusCode)
	s.Contains(string(env.Data), `"body_html"`)

	resp, env = s.do(nethttp.MethodGet, "/api/faqs", s.requesterToken, nil)
	s.Equal(nethttp.StatusOK, resp.StatusCode)
	s.Contains(string(env.Data), "Reset password")
}

func (s *RouterSuite) TestUnknownRouteAndHealthChecks() {
	resp, env := s.do(nethttp.MethodGet, "/nope", "", nil)
	s.Equal(nethttp.StatusNotFound, resp.StatusCode)
	s.Require().NotNil(env.Error)
	s.Equal("NOT_FOUND", env.Error.Code)

	resp, _ = s.do(nethttp.MethodGet, "/health/ready", "", nil)
	s.Equal(nethttp.StatusOK, resp.StatusCode)

	s.createTicket("metrics")
	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	raw, err := s.app.Test(req, -1)
	s.Require().NoError(err)
	body, err := io.ReadAll(raw.Body)
	s.Require().NoError(err)
	s.Contains(string(body), "servicedesk_tickets_created_total 1")
}

func TestPanicRendersInternalError(t *testing.T) {
	app := httptransport.NewServer(config.AppConfig{}, zap.NewNop(), nil)
	app.Get("/boom", func(*fiber.Ctx) error { panic("boom") })
	resp, err := app.Test(httptest.NewRequest(nethttp.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, nethttp.StatusInternalServerError, resp.StatusCode)
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/auth"
	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/internal/storage"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

type recordingDispatcher struct {
	mu        sync.Mutex
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	t          *testing.T
	ctx        context.Context
	store      *repository.MemoryStore
	files      *storage.LocalStore
	dispatcher *recordingDispatcher
	clock      time.Time

	tickets       *TicketService
	assignments   *AssignmentService
	drafts        *DraftService
	reopens       *ReopenService
	comments      *CommentService
	attachments   *AttachmentService
	projects      *ProjectService
	knowledge     *KnowledgeService
	notifications *NotificationService

	requester domain.Principal
	other     domain.Principal
	staff     domain.Principal
	staff2    domain.Principal
	project   *domain.Project
}

func strp(s string) *string { return &s }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		t:          t,
		ctx:        context.Background(),
		store:      repository.NewMemoryStore(),
		dispatcher: &recordingDispatcher{},
		clock:      time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
	var clockMu sync.Mutex
	f.store.SetClock(func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		f.clock = f.clock.Add(time.Second)
		return f.clock
	})

	storageCfg := config.StorageConfig{
		Root:             t.TempDir(),
		MaxUploadBytes:   1024,
		DeniedExtensions: []string{".exe", ".sh"},
	}
	f.files = storage.NewLocalStore(storageCfg)

	f.requester = f.addUser("R001", "Kim", domain.RoleRequester, nil, nil)
	f.other = f.addUser("R002", "Choi", domain.RoleRequester, nil, nil)
	f.staff = f.addUser("A001", "Lee", domain.RoleAdmin, strp("Engineer"), strp("IT"))
	f.staff2 = f.addUser("A002", "Park", domain.RoleAdmin, nil, nil)

	f.tickets = NewTicketService(TicketDependencies{Store: f.store, Files: f.files, Dispatcher: f.dispatcher})
	f.assignments = NewAssignmentService(AssignmentDependencies{Store: f.store, Dispatcher: f.dispatcher})
	f.drafts = NewDraftService(DraftDependencies{Store: f.store, Dispatcher: f.dispatcher})
	f.reopens = NewReopenService(ReopenDependencies{Store: f.store, Dispatcher: f.dispatcher})
	f.comments = NewCommentService(CommentDependencies{Store: f.store, Dispatcher: f.dispatcher})
	f.attachments = NewAttachmentService(AttachmentDependencies{Store: f.store, Files: f.files, Policy: storage.NewUploadPolicy(storageCfg)})
	f.projects = NewProjectService(config.ProjectConfig{ProtectedNames: []string{"None"}}, ProjectDependencies{Store: f.store})
	f.knowledge = NewKnowledgeService(KnowledgeDependencies{Store: f.store, Files: f.files})
	f.notifications = NewNotificationService(config.NotificationConfig{NewTicketWindowDays: 30, Limit: 50}, NotificationDependencies{Store: f.store})
	f.notifications.now = func() time.Time { return f.clock }

	f.project = &domain.Project{Name: "Infra", SortOrder: domain.DefaultProjectSortOrder, CreatedBy: f.staff.EmployeeNo}
	require.NoError(t, f.store.Projects().Create(f.ctx, f.project))
	require.NoError(t, f.store.Projects().AddMember(f.ctx, &domain.ProjectMember{ProjectID: f.project.ID, EmployeeNo: f.requester.EmployeeNo}))
	return f
}

func (f *fixture) addUser(empNo, name string, role domain.Role, title, dept *string) domain.Principal {
	f.t.Helper()
	hash, err := auth.HashPassword("password123", 4)
	require.NoError(f.t, err)
	user := &domain.User{
		EmployeeNo:   empNo,
		Email:        empNo + "@corp.test",
		PasswordHash: hash,
		Name:         name,
		Title:        title,
		Department:   dept,
		Role:         role,
		Verified:     true,
	}
	require.NoError(f.t, f.store.Users().Create(f.ctx, user))
	return domain.PrincipalOf(user)
}

func (f *fixture) createTicket(p domain.Principal, title string) *TicketView {
	f.t.Helper()
	view, err := f.tickets.Create(f.ctx, p, TicketCreateInput{
		Title:       title,
		Description: richtext.Paragraph(title + " details"),
		Priority:    "high",
		Category:    "network",
	})
	require.NoError(f.t, err)
	return view
}

func (f *fixture) setStatus(id int64, status domain.TicketStatus) {
	f.t.Helper()
	_, err := f.tickets.UpdateStatus(f.ctx, f.staff, id, StatusChangeInput{Status: string(status)})
	require.NoError(f.t, err)
}

func (f *fixture) ticketEvents(id int64) []domain.TicketEvent {
	f.t.Helper()
	history, err := f.store.Events().ListByTicket(f.ctx, id)
	require.NoError(f.t, err)
	return history
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, code, apperrors.ToDomainError(err).Code, "error: %v", err)
}

func requireReason(t *testing.T, err error, reason string) {
	t.Helper()
	requireCode(t, err, apperrors.CodeValidationFailed)
	require.Equal(t, reason, apperrors.ToDomainError(err).Details["reason"])
}

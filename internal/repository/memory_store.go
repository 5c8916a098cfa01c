package repository

import (
	"context"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spec-kit/servicedesk/internal/domain"
)

type memberKey struct {
	projectID  int64
	employeeNo string
}

type memState struct {
	users       map[string]domain.User
	projects    map[int64]domain.Project
	members     map[memberKey]domain.ProjectMember
	drafts      map[int64]domain.DraftTicket
	tickets     map[int64]domain.Ticket
	events      map[int64]domain.TicketEvent
	reopens     map[int64]domain.TicketReopen
	comments    map[int64]domain.TicketComment
	attachments map[int64]domain.Attachment
	knowledge   map[int64]domain.KnowledgeItem
	seq         map[string]int64
}

func newMemState() *memState {
	return &memState{
		users:       map[string]domain.User{},
		projects:    map[int64]domain.Project{},
		members:     map[memberKey]domain.ProjectMember{},
		drafts:      map[int64]domain.DraftTicket{},
		tickets:     map[int64]domain.Ticket{},
		events:      map[int64]domain.TicketEvent{},
		reopens:     map[int64]domain.TicketReopen{},
		comments:    map[int64]domain.TicketComment{},
		attachments: map[int64]domain.Attachment{},
		knowledge:   map[int64]domain.KnowledgeItem{},
		seq:         map[string]int64{},
	}
}

// clone copies every table. Stored values are never mutated in place, so a
// shallow copy of each map is enough.
func (s *memState) clone() *memState {
	return &memState{
		users:       maps.Clone(s.users),
		projects:    maps.Clone(s.projects),
		members:     maps.Clone(s.members),
		drafts:      maps.Clone(s.drafts),
		tickets:     maps.Clone(s.tickets),
		events:      maps.Clone(s.events),
		reopens:     maps.Clone(s.reopens),
		comments:    maps.Clone(s.comments),
		attachments: maps.Clone(s.attachments),
		knowledge:   maps.Clone(s.knowledge),
		seq:         maps.Clone(s.seq),
	}
}

func (s *memState) next(table string) int64 {
	s.seq[table]++
	return s.seq[table]
}

// memAccess routes repository calls either to the shared state under locks or
// to a transaction's private copy.
type memAccess struct {
	read  func(fn func(*memState))
	write func(fn func(*memState) error) error
	now   func() time.Time
}

// MemoryStore is an in-process Store. Transactions work on a copy of the
// state that replaces the shared state on commit; transactions and
// non-transactional writes are serialized.
type MemoryStore struct {
	txMu    sync.Mutex
	mu      sync.RWMutex
	state   *memState
	clockMu sync.RWMutex
	clock   func() time.Time
	base    *memRepositories
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		state: newMemState(),
		clock: func() time.Time { return time.Now().UTC() },
	}
	s.base = newMemRepositories(&memAccess{
		read: func(fn func(*memState)) {
			s.mu.RLock()
			defer s.mu.RUnlock()
			fn(s.state)
		},
		write: func(fn func(*memState) error) error {
			s.txMu.Lock()
			defer s.txMu.Unlock()
			s.mu.Lock()
			defer s.mu.Unlock()
			return fn(s.state)
		},
		now: s.now,
	})
	return s
}

// SetClock overrides the timestamp source.
func (s *MemoryStore) SetClock(clock func() time.Time) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.clock = clock
}

func (s *MemoryStore) now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return s.clock()
}

// RunInTx runs fn against a private copy of the state and publishes it only
// when fn succeeds and ctx is still live.
func (s *MemoryStore) RunInTx(ctx context.Context, fn func(tx Repositories) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	working := s.state.clone()
	s.mu.RUnlock()

	tx := newMemRepositories(&memAccess{
		read: func(fn func(*memState)) { fn(working) },
		write: func(fn func(*memState) error) error {
			return fn(working)
		},
		now: s.now,
	})
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.state = working
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Users() UserRepository             { return s.base.users }
func (s *MemoryStore) Projects() ProjectRepository       { return s.base.projects }
func (s *MemoryStore) Drafts() DraftRepository           { return s.base.drafts }
func (s *MemoryStore) Tickets() TicketRepository         { return s.base.tickets }
func (s *MemoryStore) Events() TicketEventRepository     { return s.base.events }
func (s *MemoryStore) Reopens() ReopenRepository         { return s.base.reopens }
func (s *MemoryStore) Comments() CommentRepository       { return s.base.comments }
func (s *MemoryStore) Attachments() AttachmentRepository { return s.base.attachments }
func (s *MemoryStore) Knowledge() KnowledgeRepository    { return s.base.knowledge }

type memRepositories struct {
	users       *memUserRepository
	projects    *memProjectRepository
	drafts      *memDraftRepository
	tickets     *memTicketRepository
	events      *memEventRepository
	reopens     *memReopenRepository
	comments    *memCommentRepository
	attachments *memAttachmentRepository
	knowledge   *memKnowledgeRepository
}

func newMemRepositories(a *memAccess) *memRepositories {
	return &memRepositories{
		users:       &memUserRepository{a},
		projects:    &memProjectRepository{a},
		drafts:      &memDraftRepository{a},
		tickets:     &memTicketRepository{a},
		events:      &memEventRepository{a},
		reopens:     &memReopenRepository{a},
		comments:    &memCommentRepository{a},
		attachments: &memAttachmentRepository{a},
		knowledge:   &memKnowledgeRepository{a},
	}
}

func (r *memRepositories) Users() UserRepository             { return r.users }
func (r *memRepositories) Projects() ProjectRepository       { return r.projects }
func (r *memRepositories) Drafts() DraftRepository           { return r.drafts }
func (r *memRepositories) Tickets() TicketRepository         { return r.tickets }
func (r *memRepositories) Events() TicketEventRepository     { return r.events }
func (r *memRepositories) Reopens() ReopenRepository         { return r.reopens }
func (r *memRepositories) Comments() CommentRepository       { return r.comments }
func (r *memRepositories) Attachments() AttachmentRepository { return r.attachments }
func (r *memRepositories) Knowledge() KnowledgeRepository    { return r.knowledge }

// users

type memUserRepository struct{ a *memAccess }

func (r *memUserRepository) Create(_ context.Context, user *domain.User) error {
	return r.a.write(func(s *memState) error {
		user.CreatedAt = r.a.now()
		s.users[user.EmployeeNo] = *user
		return nil
	})
}

func (r *memUserRepository) GetByEmployeeNo(_ context.Context, employeeNo string) (*domain.User, error) {
	var out *domain.User
	r.a.read(func(s *memState) {
		if u, ok := s.users[employeeNo]; ok {
			out = &u
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	var out *domain.User
	r.a.read(func(s *memState) {
		for _, u := range s.users {
			if strings.EqualFold(u.Email, email) {
				u := u
				out = &u
				return
			}
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memUserRepository) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	var out []domain.User
	r.a.read(func(s *memState) {
		for _, u := range s.users {
			if u.Role == role {
				out = append(out, u)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].EmployeeNo < out[j].EmployeeNo
	})
	return out, nil
}

func (r *memUserRepository) ListByEmployeeNos(_ context.Context, employeeNos []string) ([]domain.User, error) {
	var out []domain.User
	r.a.read(func(s *memState) {
		for _, no := range employeeNos {
			if u, ok := s.users[no]; ok {
				out = append(out, u)
			}
		}
	})
	return out, nil
}

// projects

type memProjectRepository struct{ a *memAccess }

func (r *memProjectRepository) Create(_ context.Context, project *domain.Project) error {
	return r.a.write(func(s *memState) error {
		project.ID = s.next("projects")
		project.CreatedAt = r.a.now()
		s.projects[project.ID] = *project
		return nil
	})
}

func (r *memProjectRepository) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	var out *domain.Project
	r.a.read(func(s *memState) {
		if p, ok := s.projects[id]; ok {
			out = &p
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memProjectRepository) List(_ context.Context, filter ProjectFilter) ([]domain.Project, error) {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []domain.Project
	r.a.read(func(s *memState) {
		for _, p := range s.projects {
			if filter.MemberID != nil {
				if _, ok := s.members[memberKey{p.ID, *filter.MemberID}]; !ok {
					continue
				}
			}
			if query != "" && !strings.Contains(strings.ToLower(p.Name), query) {
				continue
			}
			out = append(out, p)
		}
	})
	sortProjects(out)
	return out, nil
}

func (r *memProjectRepository) ListByIDs(_ context.Context, ids []int64) ([]domain.Project, error) {
	var out []domain.Project
	r.a.read(func(s *memState) {
		for _, id := range ids {
			if p, ok := s.projects[id]; ok {
				out = append(out, p)
			}
		}
	})
	return out, nil
}

func (r *memProjectRepository) UpdateSortOrder(_ context.Context, id int64, sortOrder int) error {
	return r.a.write(func(s *memState) error {
		p, ok := s.projects[id]
		if !ok {
			return ErrNotFound
		}
		p.SortOrder = sortOrder
		s.projects[id] = p
		return nil
	})
}

func (r *memProjectRepository) Delete(_ context.Context, id int64) error {
	return r.a.write(func(s *memState) error {
		if _, ok := s.projects[id]; !ok {
			return ErrNotFound
		}
		delete(s.projects, id)
		for key := range s.members {
			if key.projectID == id {
				delete(s.members, key)
			}
		}
		for tid, t := range s.tickets {
			if t.ProjectID != nil && *t.ProjectID == id {
				t.ProjectID = nil
				s.tickets[tid] = t
			}
		}
		for did, d := range s.drafts {
			if d.ProjectID != nil && *d.ProjectID == id {
				d.ProjectID = nil
				s.drafts[did] = d
			}
		}
		return nil
	})
}

func (r *memProjectRepository) AddMember(_ context.Context, member *domain.ProjectMember) error {
	return r.a.write(func(s *memState) error {
		key := memberKey{member.ProjectID, member.EmployeeNo}
		if existing, ok := s.members[key]; ok {
			member.CreatedAt = existing.CreatedAt
			return nil
		}
		member.CreatedAt = r.a.now()
		s.members[key] = *member
		return nil
	})
}

func (r *memProjectRepository) RemoveMember(_ context.Context, projectID int64, employeeNo string) error {
	return r.a.write(func(s *memState) error {
		key := memberKey{projectID, employeeNo}
		if _, ok := s.members[key]; !ok {
			return ErrNotFound
		}
		delete(s.members, key)
		return nil
	})
}

func (r *memProjectRepository) RemoveAllMembers(_ context.Context, projectID int64) error {
	return r.a.write(func(s *memState) error {
		for key := range s.members {
			if key.projectID == projectID {
				delete(s.members, key)
			}
		}
		return nil
	})
}

func (r *memProjectRepository) IsMember(_ context.Context, projectID int64, employeeNo string) (bool, error) {
	var ok bool
	r.a.read(func(s *memState) {
		_, ok = s.members[memberKey{projectID, employeeNo}]
	})
	return ok, nil
}

func (r *memProjectRepository) ListMembers(_ context.Context, projectID int64) ([]domain.ProjectMember, error) {
	var out []domain.ProjectMember
	r.a.read(func(s *memState) {
		for key, m := range s.members {
			if key.projectID == projectID {
				out = append(out, m)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].EmployeeNo < out[j].EmployeeNo
	})
	return out, nil
}

func sortProjects(projects []domain.Project) {
	sort.Slice(projects, func(i, j int) bool {
		if projects[i].SortOrder != projects[j].SortOrder {
			return projects[i].SortOrder < projects[j].SortOrder
		}
		return projects[i].ID < projects[j].ID
	})
}

// drafts

type memDraftRepository struct{ a *memAccess }

func (r *memDraftRepository) Create(_ context.Context, draft *domain.DraftTicket) error {
	return r.a.write(func(s *memState) error {
		draft.ID = s.next("drafts")
		draft.CreatedAt = r.a.now()
		draft.UpdatedAt = draft.CreatedAt
		s.drafts[draft.ID] = *draft
		return nil
	})
}

func (r *memDraftRepository) Update(_ context.Context, draft *domain.DraftTicket) error {
	return r.a.write(func(s *memState) error {
		if _, ok := s.drafts[draft.ID]; !ok {
			return ErrNotFound
		}
		draft.UpdatedAt = r.a.now()
		s.drafts[draft.ID] = *draft
		return nil
	})
}

func (r *memDraftRepository) GetByID(_ context.Context, id int64) (*domain.DraftTicket, error) {
	var out *domain.DraftTicket
	r.a.read(func(s *memState) {
		if d, ok := s.drafts[id]; ok {
			out = &d
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memDraftRepository) ListByRequester(_ context.Context, requesterID string) ([]domain.DraftTicket, error) {
	var out []domain.DraftTicket
	r.a.read(func(s *memState) {
		for _, d := range s.drafts {
			if d.RequesterID == requesterID {
				out = append(out, d)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].UpdatedAt, out[j].UpdatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memDraftRepository) Delete(_ context.Context, id int64) error {
	return r.a.write(func(s *memState) error {
		if _, ok := s.drafts[id]; !ok {
			return ErrNotFound
		}
		delete(s.drafts, id)
		return nil
	})
}

// tickets

type memTicketRepository struct{ a *memAccess }

func (r *memTicketRepository) Create(_ context.Context, ticket *domain.Ticket) error {
	return r.a.write(func(s *memState) error {
		ticket.ID = s.next("tickets")
		ticket.ReopenCount = 0
		ticket.CreatedAt = r.a.now()
		ticket.UpdatedAt = ticket.CreatedAt
		s.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r *memTicketRepository) Update(_ context.Context, ticket *domain.Ticket) error {
	return r.a.write(func(s *memState) error {
		existing, ok := s.tickets[ticket.ID]
		if !ok {
			return ErrNotFound
		}
		ticket.RequesterID = existing.RequesterID
		ticket.CreatedAt = existing.CreatedAt
		ticket.UpdatedAt = r.a.now()
		s.tickets[ticket.ID] = *ticket
		return nil
	})
}

func (r *memTicketRepository) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	var out *domain.Ticket
	r.a.read(func(s *memState) {
		if t, ok := s.tickets[id]; ok {
			out = &t
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

// GetForUpdate needs no extra locking: transactions are already serialized.
func (r *memTicketRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	var out []domain.Ticket
	r.a.read(func(s *memState) {
		for _, t := range s.tickets {
			if matchesTicketFilter(t, filter) {
				out = append(out, t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	limit, offset := normalizePage(filter.Limit, filter.Offset)
	return page(out, limit, offset), nil
}

func (r *memTicketRepository) ListCreatedSince(_ context.Context, since time.Time, limit int) ([]domain.Ticket, error) {
	var out []domain.Ticket
	r.a.read(func(s *memState) {
		for _, t := range s.tickets {
			if !t.CreatedAt.Before(since) {
				out = append(out, t)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return page(out, limit, 0), nil
}

func (r *memTicketRepository) Delete(_ context.Context, id int64) error {
	return r.a.write(func(s *memState) error {
		if _, ok := s.tickets[id]; !ok {
			return ErrNotFound
		}
		delete(s.tickets, id)
		for eid, e := range s.events {
			if e.TicketID == id {
				delete(s.events, eid)
			}
		}
		for rid, rp := range s.reopens {
			if rp.TicketID == id {
				delete(s.reopens, rid)
			}
		}
		for cid, c := range s.comments {
			if c.TicketID == id {
				delete(s.comments, cid)
			}
		}
		for aid, att := range s.attachments {
			if att.TicketID != nil && *att.TicketID == id {
				delete(s.attachments, aid)
			}
		}
		return nil
	})
}

func matchesTicketFilter(t domain.Ticket, f TicketFilter) bool {
	if f.RequesterID != nil && t.RequesterID != *f.RequesterID {
		return false
	}
	if f.AssigneeID != nil && (t.AssigneeID == nil || *t.AssigneeID != *f.AssigneeID) {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if f.Category != nil && t.Category != *f.Category {
		return false
	}
	return true
}

// events

type memEventRepository struct{ a *memAccess }

func (r *memEventRepository) Create(_ context.Context, event *domain.TicketEvent) error {
	return r.a.write(func(s *memState) error {
		event.ID = s.next("events")
		event.CreatedAt = r.a.now()
		s.events[event.ID] = *event
		return nil
	})
}

func (r *memEventRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketEvent, error) {
	var out []domain.TicketEvent
	r.a.read(func(s *memState) {
		for _, e := range s.events {
			if e.TicketID == ticketID {
				out = append(out, e)
			}
		}
	})
	sortEvents(out)
	return out, nil
}

func (r *memEventRepository) ListForRequester(_ context.Context, requesterID string, limit int) ([]EventFeedRow, error) {
	var out []EventFeedRow
	r.a.read(func(s *memState) {
		for _, e := range s.events {
			t, ok := s.tickets[e.TicketID]
			if !ok || t.RequesterID != requesterID {
				continue
			}
			out = append(out, EventFeedRow{Event: e, TicketTitle: t.Title})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].Event.CreatedAt, out[j].Event.CreatedAt, out[i].Event.ID, out[j].Event.ID)
	})
	return page(out, limit, 0), nil
}

func sortEvents(events []domain.TicketEvent) {
	sort.Slice(events, func(i, j int) bool {
		return newerFirst(events[i].CreatedAt, events[j].CreatedAt, events[i].ID, events[j].ID)
	})
}

// reopens

type memReopenRepository struct{ a *memAccess }

func (r *memReopenRepository) Create(_ context.Context, reopen *domain.TicketReopen) error {
	return r.a.write(func(s *memState) error {
		reopen.ID = s.next("reopens")
		reopen.CreatedAt = r.a.now()
		s.reopens[reopen.ID] = *reopen
		return nil
	})
}

func (r *memReopenRepository) GetByID(_ context.Context, id int64) (*domain.TicketReopen, error) {
	var out *domain.TicketReopen
	r.a.read(func(s *memState) {
		if rp, ok := s.reopens[id]; ok {
			out = &rp
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memReopenRepository) ListByTicket(_ context.Context, ticketID int64) ([]domain.TicketReopen, error) {
	var out []domain.TicketReopen
	r.a.read(func(s *memState) {
		for _, rp := range s.reopens {
			if rp.TicketID == ticketID {
				out = append(out, rp)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// comments

type memCommentRepository struct{ a *memAccess }

func (r *memCommentRepository) Create(_ context.Context, comment *domain.TicketComment) error {
	return r.a.write(func(s *memState) error {
		comment.ID = s.next("comments")
		comment.CreatedAt = r.a.now()
		s.comments[comment.ID] = *comment
		return nil
	})
}

func (r *memCommentRepository) GetByID(_ context.Context, id int64) (*domain.TicketComment, error) {
	var out *domain.TicketComment
	r.a.read(func(s *memState) {
		if c, ok := s.comments[id]; ok {
			out = &c
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memCommentRepository) ListByTicket(_ context.Context, ticketID int64, includeInternal bool) ([]domain.TicketComment, error) {
	var out []domain.TicketComment
	r.a.read(func(s *memState) {
		for _, c := range s.comments {
			if c.TicketID != ticketID || (c.IsInternal && !includeInternal) {
				continue
			}
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memCommentRepository) ListRequesterCommentsOnAssigned(_ context.Context, assigneeID string, limit int) ([]CommentFeedRow, error) {
	var out []CommentFeedRow
	r.a.read(func(s *memState) {
		for _, c := range s.comments {
			if c.IsInternal {
				continue
			}
			t, ok := s.tickets[c.TicketID]
			if !ok || t.AssigneeID == nil || *t.AssigneeID != assigneeID {
				continue
			}
			author, ok := s.users[c.AuthorID]
			if !ok || author.Role != domain.RoleRequester {
				continue
			}
			out = append(out, CommentFeedRow{Comment: c, TicketTitle: t.Title})
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].Comment.CreatedAt, out[j].Comment.CreatedAt, out[i].Comment.ID, out[j].Comment.ID)
	})
	return page(out, limit, 0), nil
}

// attachments

type memAttachmentRepository struct{ a *memAccess }

func (r *memAttachmentRepository) Create(_ context.Context, attachment *domain.Attachment) error {
	return r.a.write(func(s *memState) error {
		for _, existing := range s.attachments {
			if existing.Key == attachment.Key {
				return ErrDuplicate
			}
		}
		attachment.ID = s.next("attachments")
		attachment.CreatedAt = r.a.now()
		s.attachments[attachment.ID] = *attachment
		return nil
	})
}

func (r *memAttachmentRepository) GetByID(_ context.Context, id int64) (*domain.Attachment, error) {
	var out *domain.Attachment
	r.a.read(func(s *memState) {
		if att, ok := s.attachments[id]; ok {
			out = &att
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memAttachmentRepository) ListByTicket(_ context.Context, ticketID int64, includeInternal bool) ([]domain.Attachment, error) {
	var out []domain.Attachment
	r.a.read(func(s *memState) {
		for _, att := range s.attachments {
			if att.TicketID == nil || *att.TicketID != ticketID || (att.IsInternal && !includeInternal) {
				continue
			}
			out = append(out, att)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *memAttachmentRepository) ListByNotice(_ context.Context, noticeID int64) ([]domain.Attachment, error) {
	var out []domain.Attachment
	r.a.read(func(s *memState) {
		for _, att := range s.attachments {
			if att.NoticeID != nil && *att.NoticeID == noticeID {
				out = append(out, att)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memAttachmentRepository) Delete(_ context.Context, id int64) error {
	return r.a.write(func(s *memState) error {
		if _, ok := s.attachments[id]; !ok {
			return ErrNotFound
		}
		delete(s.attachments, id)
		return nil
	})
}

// knowledge

type memKnowledgeRepository struct{ a *memAccess }

func (r *memKnowledgeRepository) Create(_ context.Context, item *domain.KnowledgeItem) error {
	return r.a.write(func(s *memState) error {
		item.ID = s.next("knowledge")
		item.CreatedAt = r.a.now()
		item.UpdatedAt = item.CreatedAt
		s.knowledge[item.ID] = *item
		return nil
	})
}

func (r *memKnowledgeRepository) Update(_ context.Context, item *domain.KnowledgeItem) error {
	return r.a.write(func(s *memState) error {
		existing, ok := s.knowledge[item.ID]
		if !ok || existing.Kind != item.Kind {
			return ErrNotFound
		}
		item.AuthorID = existing.AuthorID
		item.CreatedAt = existing.CreatedAt
		item.UpdatedAt = r.a.now()
		s.knowledge[item.ID] = *item
		return nil
	})
}

func (r *memKnowledgeRepository) GetByID(_ context.Context, kind domain.KnowledgeKind, id int64) (*domain.KnowledgeItem, error) {
	var out *domain.KnowledgeItem
	r.a.read(func(s *memState) {
		if item, ok := s.knowledge[id]; ok && item.Kind == kind {
			out = &item
		}
	})
	if out == nil {
		return nil, ErrNotFound
	}
	return out, nil
}

func (r *memKnowledgeRepository) List(_ context.Context, kind domain.KnowledgeKind, filter KnowledgeFilter) ([]domain.KnowledgeItem, error) {
	query := strings.ToLower(strings.TrimSpace(filter.Query))
	var out []domain.KnowledgeItem
	r.a.read(func(s *memState) {
		for _, item := range s.knowledge {
			if item.Kind != kind {
				continue
			}
			if filter.Category != nil && (item.Category == nil || *item.Category != *filter.Category) {
				continue
			}
			if query != "" && !strings.Contains(strings.ToLower(item.Title), query) {
				continue
			}
			out = append(out, item)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (r *memKnowledgeRepository) Delete(_ context.Context, kind domain.KnowledgeKind, id int64) error {
	return r.a.write(func(s *memState) error {
		item, ok := s.knowledge[id]
		if !ok || item.Kind != kind {
			return ErrNotFound
		}
		delete(s.knowledge, id)
		for aid, att := range s.attachments {
			if att.NoticeID != nil && *att.NoticeID == id {
				delete(s.attachments, aid)
			}
		}
		return nil
	})
}

func newerFirst(a, b time.Time, aID, bID int64) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

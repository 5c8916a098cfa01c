package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)

	view, err := f.tickets.Create(f.ctx, f.requester, TicketCreateInput{
		Title:       "  VPN down ",
		Description: richtext.Paragraph("cannot connect"),
		ProjectID:   &f.project.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "VPN down", view.Ticket.Title)
	assert.Equal(t, domain.TicketStatusOpen, view.Ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, view.Ticket.Priority)
	assert.Equal(t, domain.DefaultCategory, view.Ticket.Category)
	require.NotNil(t, view.Requester)
	assert.Equal(t, "Kim", view.Requester.Name)
	require.NotNil(t, view.ProjectName)
	assert.Equal(t, "Infra", *view.ProjectName)
	assert.Equal(t, []events.EventType{events.EventTicketCreated}, f.dispatcher.types())
	assert.Empty(t, f.ticketEvents(view.Ticket.ID), "creation is not an audit event")

	_, err = f.tickets.Create(f.ctx, f.requester, TicketCreateInput{Title: "x", Description: richtext.Empty()})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.tickets.Create(f.ctx, f.requester, TicketCreateInput{Title: "x", Description: richtext.Paragraph("y"), Priority: "critical"})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.tickets.Create(f.ctx, f.other, TicketCreateInput{Title: "x", Description: richtext.Paragraph("y"), ProjectID: &f.project.ID})
	requireCode(t, err, apperrors.CodeForbidden)

	missing := int64(999)
	_, err = f.tickets.Create(f.ctx, f.requester, TicketCreateInput{Title: "x", Description: richtext.Paragraph("y"), ProjectID: &missing})
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestListTicketsScopes(t *testing.T) {
	f := newFixture(t)
	mine := f.createTicket(f.requester, "mine")
	f.createTicket(f.other, "theirs")

	own, err := f.tickets.List(f.ctx, f.requester, TicketListQuery{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.Ticket.ID, own[0].Ticket.ID)

	_, err = f.tickets.List(f.ctx, f.requester, TicketListQuery{Scope: "all"})
	requireCode(t, err, apperrors.CodeForbidden)

	all, err := f.tickets.List(f.ctx, f.staff, TicketListQuery{Scope: "all"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Greater(t, all[0].Ticket.ID, all[1].Ticket.ID)

	_, err = f.tickets.List(f.ctx, f.staff, TicketListQuery{Scope: "all", Status: "pending"})
	requireCode(t, err, apperrors.CodeValidationFailed)
	_, err = f.tickets.List(f.ctx, f.staff, TicketListQuery{Scope: "everything"})
	requireCode(t, err, apperrors.CodeValidationFailed)

	f.setStatus(mine.Ticket.ID, domain.TicketStatusInProgress)
	filtered, err := f.tickets.List(f.ctx, f.staff, TicketListQuery{Scope: "all", Status: "in_progress"})
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, mine.Ticket.ID, filtered[0].Ticket.ID)
}

func TestParseTicketFilter(t *testing.T) {
	staff := domain.Principal{EmployeeNo: "A1", Role: domain.RoleAdmin}
	filter, err := ParseTicketFilter(staff, TicketListQuery{Scope: "all", Priority: "urgent", Category: " hw ", AssigneeID: "A2"})
	require.NoError(t, err)
	assert.Nil(t, filter.RequesterID)
	assert.Equal(t, domain.TicketPriorityUrgent, *filter.Priority)
	assert.Equal(t, "hw", *filter.Category)
	assert.Equal(t, "A2", *filter.AssigneeID)

	filter, err = ParseTicketFilter(staff, TicketListQuery{})
	require.NoError(t, err)
	assert.Equal(t, "A1", *filter.RequesterID)
	assert.Nil(t, filter.Category)
}

func TestTicketVisibility(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "mine")

	_, err := f.tickets.Get(f.ctx, f.other, ticket.Ticket.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	got, err := f.tickets.Get(f.ctx, f.requester, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Ticket.ID, got.Ticket.ID)

	_, err = f.tickets.Get(f.ctx, f.staff, ticket.Ticket.ID)
	require.NoError(t, err)

	_, err = f.tickets.Get(f.ctx, f.requester, 404)
	requireCode(t, err, apperrors.CodeNotFound)
}

func TestRequesterSelfEdit(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "printer")

	view, err := f.tickets.UpdateTicket(f.ctx, f.requester, ticket.Ticket.ID, TicketUpdateInput{
		Priority:  optional.Of("low"),
		Title:     optional.Of("printer jam"),
		ProjectID: optional.Of(&f.project.ID),
		Category:  optional.Of("network"),
	})
	require.NoError(t, err)
	assert.Equal(t, "printer jam", view.Ticket.Title)
	assert.Equal(t, domain.TicketPriorityLow, view.Ticket.Priority)

	history := f.ticketEvents(ticket.Ticket.ID)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EventRequesterUpdated, history[0].Type)
	note, err := domain.ParseRequesterEditNote(*history[0].Note)
	require.NoError(t, err)
	assert.Equal(t, "title, priority, project", note.Summary)
	assert.Equal(t, "printer", note.Before.Title)
	assert.Equal(t, domain.TicketPriorityHigh, note.Before.Priority)
	assert.Nil(t, note.Before.ProjectID)

	// nothing changed
	_, err = f.tickets.UpdateTicket(f.ctx, f.requester, ticket.Ticket.ID, TicketUpdateInput{Title: optional.Of("printer jam")})
	require.NoError(t, err)
	assert.Len(t, f.ticketEvents(ticket.Ticket.ID), 1)

	_, err = f.tickets.UpdateTicket(f.ctx, f.other, ticket.Ticket.ID, TicketUpdateInput{Title: optional.Of("hijack")})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.UpdateTicket(f.ctx, f.requester, ticket.Ticket.ID, TicketUpdateInput{Title: optional.Of("  ")})
	requireCode(t, err, apperrors.CodeValidationFailed)

	f.setStatus(ticket.Ticket.ID, domain.TicketStatusInProgress)
	_, err = f.tickets.UpdateTicket(f.ctx, f.requester, ticket.Ticket.ID, TicketUpdateInput{Title: optional.Of("late edit")})
	requireReason(t, err, ReasonTicketNotEditable)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "printer jam", stored.Title)
}

func TestStatusChangeWithNote(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "laptop")

	view, err := f.tickets.UpdateStatus(f.ctx, f.staff, ticket.Ticket.ID, StatusChangeInput{Status: "in_progress", Note: strp("reviewing")})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, view.Ticket.Status)

	history := f.ticketEvents(ticket.Ticket.ID)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EventStatusChanged, history[0].Type)
	assert.Equal(t, "open", *history[0].From)
	assert.Equal(t, "in_progress", *history[0].To)

	comments, err := f.store.Comments().ListByTicket(f.ctx, ticket.Ticket.ID, true)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.True(t, comments[0].IsInternal)
	assert.Equal(t, "reviewing", richtext.ExtractText(comments[0].Body))
	assert.Equal(t, f.staff.EmployeeNo, comments[0].AuthorID)

	requesterView, err := f.tickets.ListEvents(f.ctx, f.requester, ticket.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, requesterView, 1)
	assert.Nil(t, requesterView[0].Note)
	staffView, err := f.tickets.ListEvents(f.ctx, f.staff, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviewing", *staffView[0].Note)
}

func TestStatusChangeRejections(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "laptop")

	_, err := f.tickets.UpdateStatus(f.ctx, f.requester, ticket.Ticket.ID, StatusChangeInput{Status: "closed"})
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.tickets.UpdateStatus(f.ctx, f.staff, ticket.Ticket.ID, StatusChangeInput{Status: "archived"})
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.tickets.UpdateStatus(f.ctx, f.staff, ticket.Ticket.ID, StatusChangeInput{Status: "open"})
	requireCode(t, err, apperrors.CodeInvalidTransition)

	strict := NewTicketService(TicketDependencies{Store: f.store, Files: f.files, Policy: domain.StrictTransitions})
	_, err = strict.UpdateStatus(f.ctx, f.staff, ticket.Ticket.ID, StatusChangeInput{Status: "closed"})
	require.NoError(t, err)
	_, err = strict.UpdateStatus(f.ctx, f.staff, ticket.Ticket.ID, StatusChangeInput{Status: "open"})
	requireCode(t, err, apperrors.CodeInvalidTransition)
	assert.Equal(t, map[string]any{"from": "closed", "to": "open"}, apperrors.ToDomainError(err).Details)

	allowed, err := strict.AllowedTransitions(f.ctx, f.staff, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.Empty(t, allowed)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.True(t, stored.Status.Valid())
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)
}

func TestTicketDetailHidesInternalEntries(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "vpn")
	_, err := f.tickets.UpdateStatus(f.ctx, f.staff, ticket.Ticket.ID, StatusChangeInput{Status: "in_progress", Note: strp("checking logs")})
	require.NoError(t, err)
	_, err = f.comments.Create(f.ctx, f.requester, ticket.Ticket.ID, CommentInput{Body: richtext.Paragraph("any news?")})
	require.NoError(t, err)

	detail, err := f.tickets.Detail(f.ctx, f.requester, ticket.Ticket.ID, "")
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 1)
	require.Len(t, detail.Events, 1)
	assert.Nil(t, detail.Events[0].Note)

	detail, err = f.tickets.Detail(f.ctx, f.staff, ticket.Ticket.ID, "all")
	require.NoError(t, err)
	assert.Len(t, detail.Comments, 2)
	assert.True(t, detail.Comments[0].Comment.IsInternal)
	assert.Equal(t, "Lee", detail.Comments[0].Author.Name)

	_, err = f.tickets.Detail(f.ctx, f.requester, ticket.Ticket.ID, "all")
	requireCode(t, err, apperrors.CodeForbidden)
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "old")
	attachment, err := f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, UploadInput{
		Filename: "log.txt",
		Size:     5,
		Body:     bytes.NewBufferString("hello"),
	})
	require.NoError(t, err)

	err = f.tickets.Delete(f.ctx, f.other, ticket.Ticket.ID)
	requireCode(t, err, apperrors.CodeForbidden)

	require.NoError(t, f.tickets.Delete(f.ctx, f.requester, ticket.Ticket.ID))
	_, err = f.store.Tickets().GetByID(f.ctx, ticket.Ticket.ID)
	assert.Error(t, err)
	_, err = f.files.Open(f.ctx, attachment.Key)
	assert.Error(t, err)

	closed := f.createTicket(f.requester, "closed one")
	f.setStatus(closed.Ticket.ID, domain.TicketStatusClosed)
	err = f.tickets.Delete(f.ctx, f.requester, closed.Ticket.ID)
	requireReason(t, err, ReasonTicketNotEditable)
	require.NoError(t, f.tickets.Delete(f.ctx, f.staff, closed.Ticket.ID))
}

// triagedBeforeTxStore moves a ticket to in_progress just before each
// transaction starts, as a concurrent staff update would.
type triagedBeforeTxStore struct {
	repository.Store
	ticketID int64
}

func (s triagedBeforeTxStore) RunInTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	ticket, err := s.Store.Tickets().GetByID(ctx, s.ticketID)
	if err != nil {
		return err
	}
	ticket.Status = domain.TicketStatusInProgress
	if err := s.Store.Tickets().Update(ctx, ticket); err != nil {
		return err
	}
	return s.Store.RunInTx(ctx, fn)
}

func TestDeleteRefusedAfterTriageKeepsObjects(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "racing")
	attachment, err := f.attachments.Upload(f.ctx, f.requester, ticket.Ticket.ID, upload("log.txt", "hello"))
	require.NoError(t, err)

	racing := NewTicketService(TicketDependencies{
		Store: triagedBeforeTxStore{Store: f.store, ticketID: ticket.Ticket.ID},
		Files: f.files,
	})
	err = racing.Delete(f.ctx, f.requester, ticket.Ticket.ID)
	requireReason(t, err, ReasonTicketNotEditable)

	rc, err := f.files.Open(f.ctx, attachment.Key)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	_, err = f.store.Tickets().GetByID(f.ctx, ticket.Ticket.ID)
	require.NoError(t, err)
}

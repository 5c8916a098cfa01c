package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/richtext"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func TestReopenClosedTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "mail")
	f.setStatus(ticket.Ticket.ID, domain.TicketStatusClosed)

	reopen, err := f.reopens.Create(f.ctx, f.requester, ticket.Ticket.ID, ReopenInput{Description: richtext.Paragraph("still broken")})
	require.NoError(t, err)
	assert.Equal(t, f.requester.EmployeeNo, reopen.RequesterID)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.ReopenCount)
	assert.Equal(t, domain.TicketStatusClosed, stored.Status)

	rounds, err := f.reopens.List(f.ctx, f.requester, ticket.Ticket.ID)
	require.NoError(t, err)
	require.Len(t, rounds, 1)
	assert.Equal(t, "still broken", richtext.ExtractText(rounds[0].Description))
	assert.Equal(t, f.requester.EmployeeNo, rounds[0].RequesterID)

	history := f.ticketEvents(ticket.Ticket.ID)
	assert.Equal(t, domain.EventReopened, history[0].Type)
	assert.Contains(t, f.dispatcher.types(), events.EventTicketReopened)
}

func TestReopenRejections(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "mail")
	desc := ReopenInput{Description: richtext.Paragraph("again")}

	_, err := f.reopens.Create(f.ctx, f.requester, ticket.Ticket.ID, desc)
	requireReason(t, err, ReasonTicketNotReopenable)

	f.setStatus(ticket.Ticket.ID, domain.TicketStatusResolved)
	_, err = f.reopens.Create(f.ctx, f.other, ticket.Ticket.ID, desc)
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = f.reopens.Create(f.ctx, f.staff, ticket.Ticket.ID, desc)
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = f.reopens.Create(f.ctx, f.requester, ticket.Ticket.ID, ReopenInput{Description: richtext.Empty()})
	requireCode(t, err, apperrors.CodeValidationFailed)

	stored, err := f.store.Tickets().GetByID(f.ctx, ticket.Ticket.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.ReopenCount)
}

func TestCommentVisibility(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "wifi")
	id := ticket.Ticket.ID

	_, err := f.comments.Create(f.ctx, f.requester, id, CommentInput{Body: richtext.Paragraph("secret"), IsInternal: true})
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = f.comments.Create(f.ctx, f.other, id, CommentInput{Body: richtext.Paragraph("hi")})
	requireCode(t, err, apperrors.CodeForbidden)

	before, err := f.store.Tickets().GetByID(f.ctx, id)
	require.NoError(t, err)
	public, err := f.comments.Create(f.ctx, f.requester, id, CommentInput{Body: richtext.Paragraph("any update?")})
	require.NoError(t, err)
	assert.Equal(t, "Kim", public.Author.Name)
	after, err := f.store.Tickets().GetByID(f.ctx, id)
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	_, err = f.comments.Create(f.ctx, f.staff, id, CommentInput{Body: richtext.Paragraph("check AP 3"), IsInternal: true})
	require.NoError(t, err)

	requesterList, err := f.comments.List(f.ctx, f.requester, id, "")
	require.NoError(t, err)
	require.Len(t, requesterList, 1)
	assert.False(t, requesterList[0].Comment.IsInternal)

	staffMine, err := f.comments.List(f.ctx, f.staff, id, "mine")
	require.NoError(t, err)
	assert.Len(t, staffMine, 1)

	staffAll, err := f.comments.List(f.ctx, f.staff, id, "all")
	require.NoError(t, err)
	require.Len(t, staffAll, 2)
	assert.True(t, staffAll[1].Comment.IsInternal)
}

func TestCommentReopenReference(t *testing.T) {
	f := newFixture(t)
	first := f.createTicket(f.requester, "first")
	second := f.createTicket(f.requester, "second")
	f.setStatus(first.Ticket.ID, domain.TicketStatusClosed)
	reopen, err := f.reopens.Create(f.ctx, f.requester, first.Ticket.ID, ReopenInput{Description: richtext.Paragraph("again")})
	require.NoError(t, err)

	_, err = f.comments.Create(f.ctx, f.requester, second.Ticket.ID, CommentInput{Body: richtext.Paragraph("x"), ReopenID: &reopen.ID})
	requireReason(t, err, ReasonInvalidReopen)

	comment, err := f.comments.Create(f.ctx, f.requester, first.Ticket.ID, CommentInput{Body: richtext.Paragraph("x"), ReopenID: &reopen.ID})
	require.NoError(t, err)
	assert.Equal(t, reopen.ID, *comment.Comment.ReopenID)
}

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/richtext"
	"github.com/spec-kit/servicedesk/pkg/util/optional"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

var errInjected = errors.New("injected failure")

// failingDeleteStore fails draft deletion inside transactions.
type failingDeleteStore struct {
	repository.Store
}

func (s failingDeleteStore) RunInTx(ctx context.Context, fn func(tx repository.Repositories) error) error {
	return s.Store.RunInTx(ctx, func(tx repository.Repositories) error {
		return fn(failingDeleteTx{tx})
	})
}

type failingDeleteTx struct {
	repository.Repositories
}

func (t failingDeleteTx) Drafts() repository.DraftRepository {
	return failingDrafts{t.Repositories.Drafts()}
}

type failingDrafts struct {
	repository.DraftRepository
}

func (failingDrafts) Delete(context.Context, int64) error { return errInjected }

func completeDraft() DraftInput {
	desc := richtext.Paragraph("screen flickers")
	return DraftInput{
		Title:       optional.Of(strp("Monitor")),
		Description: optional.Of(&desc),
		Priority:    optional.Of(strp("high")),
		Category:    optional.Of(strp("hardware")),
		WorkType:    optional.Of(strp(" repair ")),
	}
}

func TestDraftCreateAndUpdate(t *testing.T) {
	f := newFixture(t)

	_, err := f.drafts.Create(f.ctx, f.requester, DraftInput{Title: optional.Of(strp("   "))})
	requireReason(t, err, ReasonDraftEmpty)

	draft, err := f.drafts.Create(f.ctx, f.requester, DraftInput{Title: optional.Of(strp(" Monitor "))})
	require.NoError(t, err)
	assert.Equal(t, "Monitor", *draft.Title)

	_, err = f.drafts.Create(f.ctx, f.requester, DraftInput{Priority: optional.Of(strp("critical"))})
	requireCode(t, err, apperrors.CodeValidationFailed)

	updated, err := f.drafts.Update(f.ctx, f.requester, draft.ID, DraftInput{Category: optional.Of(strp("hardware"))})
	require.NoError(t, err)
	assert.Equal(t, "Monitor", *updated.Title)
	assert.Equal(t, "hardware", *updated.Category)

	_, err = f.drafts.Update(f.ctx, f.requester, draft.ID, DraftInput{
		Title:    optional.Field[*string]{Set: true},
		Category: optional.Of(strp("")),
	})
	requireReason(t, err, ReasonDraftEmpty)

	_, err = f.drafts.Get(f.ctx, f.other, draft.ID)
	requireCode(t, err, apperrors.CodeNotFound)

	missing := int64(77)
	_, err = f.drafts.Update(f.ctx, f.requester, draft.ID, DraftInput{ProjectID: optional.Of(&missing)})
	requireCode(t, err, apperrors.CodeNotFound)

	list, err := f.drafts.List(f.ctx, f.requester)
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.drafts.Delete(f.ctx, f.requester, draft.ID))
	list, err = f.drafts.List(f.ctx, f.requester)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPublishDraft(t *testing.T) {
	f := newFixture(t)
	input := completeDraft()
	input.ProjectID = optional.Of(&f.project.ID)
	draft, err := f.drafts.Create(f.ctx, f.requester, input)
	require.NoError(t, err)

	view, err := f.drafts.Publish(f.ctx, f.requester, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, "Monitor", view.Ticket.Title)
	assert.Equal(t, domain.TicketPriorityHigh, view.Ticket.Priority)
	assert.Equal(t, "hardware", view.Ticket.Category)
	assert.Equal(t, "repair", *view.Ticket.WorkType)
	assert.Equal(t, f.project.ID, *view.Ticket.ProjectID)
	assert.Equal(t, domain.TicketStatusOpen, view.Ticket.Status)
	assert.Equal(t, f.requester.EmployeeNo, view.Ticket.RequesterID)
	assert.Equal(t, "screen flickers", richtext.ExtractText(view.Ticket.Description))

	_, err = f.store.Drafts().GetByID(f.ctx, draft.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	tickets, err := f.store.Tickets().List(f.ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
	assert.Empty(t, f.ticketEvents(view.Ticket.ID))
}

func TestPublishIncompleteDraftChangesNothing(t *testing.T) {
	f := newFixture(t)
	input := completeDraft()
	input.Title = optional.Field[*string]{}
	draft, err := f.drafts.Create(f.ctx, f.requester, input)
	require.NoError(t, err)

	_, err = f.drafts.Publish(f.ctx, f.requester, draft.ID)
	requireReason(t, err, ReasonDraftIncomplete)

	stored, err := f.store.Drafts().GetByID(f.ctx, draft.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Title)
	tickets, err := f.store.Tickets().List(f.ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestPublishRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	draft, err := f.drafts.Create(f.ctx, f.requester, completeDraft())
	require.NoError(t, err)

	failing := NewDraftService(DraftDependencies{Store: failingDeleteStore{f.store}})
	_, err = failing.Publish(f.ctx, f.requester, draft.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, errInjected)

	_, err = f.store.Drafts().GetByID(f.ctx, draft.ID)
	require.NoError(t, err)
	tickets, err := f.store.Tickets().List(f.ctx, repository.TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
}

func TestPublishRequiresMembership(t *testing.T) {
	f := newFixture(t)
	input := completeDraft()
	input.ProjectID = optional.Of(&f.project.ID)
	draft, err := f.drafts.Create(f.ctx, f.other, input)
	require.NoError(t, err)

	_, err = f.drafts.Publish(f.ctx, f.other, draft.ID)
	requireCode(t, err, apperrors.CodeForbidden)
	_, err = f.store.Drafts().GetByID(f.ctx, draft.ID)
	require.NoError(t, err)
}

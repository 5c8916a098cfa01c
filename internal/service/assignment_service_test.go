package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/servicedesk/internal/domain"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

func TestAssignEventTypes(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "monitor")
	id := ticket.Ticket.ID

	view, err := f.assignments.Assign(f.ctx, f.staff, id, &f.staff.EmployeeNo)
	require.NoError(t, err)
	require.NotNil(t, view.Assignee)
	assert.Equal(t, "Lee", view.Assignee.Name)

	history := f.ticketEvents(id)
	require.Len(t, history, 1)
	assert.Equal(t, domain.EventAssigneeAssigned, history[0].Type)
	assert.Nil(t, history[0].From)
	assert.Equal(t, "A001", *history[0].To)
	assert.Equal(t, "unassigned -> Lee / Engineer / IT", *history[0].Note)

	// same assignee again is a no-op
	_, err = f.assignments.Assign(f.ctx, f.staff, id, &f.staff.EmployeeNo)
	require.NoError(t, err)
	assert.Len(t, f.ticketEvents(id), 1)

	_, err = f.assignments.Assign(f.ctx, f.staff, id, &f.staff2.EmployeeNo)
	require.NoError(t, err)
	history = f.ticketEvents(id)
	require.Len(t, history, 2)
	assert.Equal(t, domain.EventAssigneeChanged, history[0].Type)
	assert.Equal(t, "Lee / Engineer / IT -> Park", *history[0].Note)

	_, err = f.assignments.Assign(f.ctx, f.staff, id, nil)
	require.NoError(t, err)
	history = f.ticketEvents(id)
	require.Len(t, history, 3)
	assert.Equal(t, domain.EventAssigneeChanged, history[0].Type)
	assert.Equal(t, "Park -> unassigned", *history[0].Note)
	assert.Nil(t, history[0].To)
}

func TestAssignRejections(t *testing.T) {
	f := newFixture(t)
	ticket := f.createTicket(f.requester, "monitor")
	id := ticket.Ticket.ID

	_, err := f.assignments.Assign(f.ctx, f.requester, id, &f.staff.EmployeeNo)
	requireCode(t, err, apperrors.CodeForbidden)

	_, err = f.assignments.Assign(f.ctx, f.staff, id, &f.other.EmployeeNo)
	requireCode(t, err, apperrors.CodeValidationFailed)

	_, err = f.assignments.Assign(f.ctx, f.staff, id, strp("ghost"))
	requireCode(t, err, apperrors.CodeNotFound)

	_, err = f.assignments.Assign(f.ctx, f.staff, 999, &f.staff.EmployeeNo)
	requireCode(t, err, apperrors.CodeNotFound)

	assert.Empty(t, f.ticketEvents(id))
}

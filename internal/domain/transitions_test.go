package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissiveTransitions(t *testing.T) {
	for _, from := range TicketStatuses {
		for _, to := range TicketStatuses {
			if from == to {
				assert.False(t, PermissiveTransitions.CanTransition(from, to), "%s -> %s", from, to)
				continue
			}
			assert.True(t, PermissiveTransitions.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStrictTransitions(t *testing.T) {
	tests := []struct {
		from, to TicketStatus
		want     bool
	}{
		{TicketStatusOpen, TicketStatusInProgress, true},
		{TicketStatusOpen, TicketStatusClosed, true},
		{TicketStatusInProgress, TicketStatusOpen, false},
		{TicketStatusResolved, TicketStatusInProgress, true},
		{TicketStatusClosed, TicketStatusOpen, false},
		{TicketStatusClosed, TicketStatusClosed, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StrictTransitions.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
	assert.Empty(t, StrictTransitions.Allowed(TicketStatusClosed))
	assert.Equal(t, []TicketStatus{TicketStatusInProgress, TicketStatusClosed}, StrictTransitions.Allowed(TicketStatusResolved))
}

func TestTransitionPolicyByName(t *testing.T) {
	p, err := TransitionPolicyByName("strict")
	require.NoError(t, err)
	assert.False(t, p.CanTransition(TicketStatusClosed, TicketStatusOpen))

	p, err = TransitionPolicyByName("")
	require.NoError(t, err)
	assert.True(t, p.CanTransition(TicketStatusClosed, TicketStatusOpen))

	_, err = TransitionPolicyByName("workflow")
	assert.Error(t, err)
}

func TestStatusAndPriorityValidity(t *testing.T) {
	assert.True(t, TicketStatus("resolved").Valid())
	assert.False(t, TicketStatus("pending").Valid())
	assert.True(t, TicketPriority("urgent").Valid())
	assert.False(t, TicketPriority("critical").Valid())
}

func TestAccessPredicates(t *testing.T) {
	staff := Principal{EmployeeNo: "A001", Role: RoleAdmin}
	owner := Principal{EmployeeNo: "R001", Role: RoleRequester}
	other := Principal{EmployeeNo: "R002", Role: RoleRequester}
	ticket := &Ticket{RequesterID: "R001"}

	assert.True(t, CanViewTicket(staff, ticket))
	assert.True(t, CanViewTicket(owner, ticket))
	assert.False(t, CanViewTicket(other, ticket))

	assert.True(t, CanSeeInternal(staff, ScopeAll))
	assert.False(t, CanSeeInternal(staff, ScopeMine))
	assert.False(t, CanSeeInternal(owner, ScopeAll))

	assert.False(t, CanUseScope(owner, ScopeAll))
	assert.True(t, CanUseScope(owner, ScopeMine))
}

func TestUserSummaryLabel(t *testing.T) {
	title := "Engineer"
	dept := ""
	assert.Equal(t, "Kim / Engineer", UserSummary{EmployeeNo: "E1", Name: "Kim", Title: &title, Department: &dept}.Label())
	assert.Equal(t, "E2", UserSummary{EmployeeNo: "E2"}.Label())
}

package domain

import "fmt"

// TransitionPolicy maps a status to the set of statuses reachable from it.
type TransitionPolicy map[TicketStatus]map[TicketStatus]struct{}

// CanTransition reports whether from -> to is allowed. Self transitions are
// never allowed.
func (p TransitionPolicy) CanTransition(from, to TicketStatus) bool {
	if from == to {
		return false
	}
	_, ok := p[from][to]
	return ok
}

// Allowed returns the statuses reachable from s in display order.
func (p TransitionPolicy) Allowed(s TicketStatus) []TicketStatus {
	out := make([]TicketStatus, 0, len(p[s]))
	for _, candidate := range TicketStatuses {
		if _, ok := p[s][candidate]; ok {
			out = append(out, candidate)
		}
	}
	return out
}

func newPolicy(edges map[TicketStatus][]TicketStatus) TransitionPolicy {
	p := make(TransitionPolicy, len(edges))
	for from, targets := range edges {
		set := make(map[TicketStatus]struct{}, len(targets))
		for _, to := range targets {
			if to != from {
				set[to] = struct{}{}
			}
		}
		p[from] = set
	}
	return p
}

// PermissiveTransitions allows any status to move to any other status.
var PermissiveTransitions = func() TransitionPolicy {
	edges := make(map[TicketStatus][]TicketStatus, len(TicketStatuses))
	for _, s := range TicketStatuses {
		edges[s] = TicketStatuses
	}
	return newPolicy(edges)
}()

// StrictTransitions is the directed lifecycle graph; closed is terminal.
var StrictTransitions = newPolicy(map[TicketStatus][]TicketStatus{
	TicketStatusOpen:       {TicketStatusInProgress, TicketStatusResolved, TicketStatusClosed},
	TicketStatusInProgress: {TicketStatusResolved, TicketStatusClosed},
	TicketStatusResolved:   {TicketStatusClosed, TicketStatusInProgress},
	TicketStatusClosed:     {},
})

// TransitionPolicyByName resolves a configured policy name.
func TransitionPolicyByName(name string) (TransitionPolicy, error) {
	switch name {
	case "", "permissive":
		return PermissiveTransitions, nil
	case "strict":
		return StrictTransitions, nil
	}
	return nil, fmt.Errorf("unknown transition policy %q", name)
}

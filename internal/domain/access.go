package domain

// Scope selects between the caller's own resources and the staff-wide view.
type Scope string

const (
	ScopeMine Scope = "mine"
	ScopeAll  Scope = "all"
)

// ParseScope maps an empty value to ScopeMine. ok is false for unknown values.
func ParseScope(v string) (Scope, bool) {
	switch Scope(v) {
	case "", ScopeMine:
		return ScopeMine, true
	case ScopeAll:
		return ScopeAll, true
	}
	return "", false
}

// IsStaff reports whether p may triage any ticket.
func IsStaff(p Principal) bool {
	return p.Role == RoleAdmin
}

// IsOwner reports whether p is the requester identified by requesterID.
func IsOwner(p Principal, requesterID string) bool {
	return p.EmployeeNo != "" && p.EmployeeNo == requesterID
}

// CanViewTicket gates every ticket read.
func CanViewTicket(p Principal, t *Ticket) bool {
	return IsStaff(p) || IsOwner(p, t.RequesterID)
}

// CanSeeInternal reports whether internal comments and attachments are
// included for p under scope.
func CanSeeInternal(p Principal, scope Scope) bool {
	return IsStaff(p) && scope == ScopeAll
}

// CanUseScope rejects the staff-wide scope for non-staff callers.
func CanUseScope(p Principal, scope Scope) bool {
	return scope != ScopeAll || IsStaff(p)
}

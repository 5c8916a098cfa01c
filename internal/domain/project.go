package domain

import "time"

// DefaultProjectSortOrder places new projects after explicitly ordered ones.
const DefaultProjectSortOrder = 999

// Project groups tickets and gates ticket creation through membership.
type Project struct {
	ID        int64
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	SortOrder int
	CreatedBy string
	CreatedAt time.Time
}

// ValidPeriod reports whether the optional start date does not follow the end date.
func (p *Project) ValidPeriod() bool {
	if p.StartDate == nil || p.EndDate == nil {
		return true
	}
	return !p.StartDate.After(*p.EndDate)
}

// ProjectMember links an employee to a project.
type ProjectMember struct {
	ProjectID  int64
	EmployeeNo string
	CreatedAt  time.Time
}

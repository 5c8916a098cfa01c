package service

import (
	"context"

	"github.com/spec-kit/servicedesk/internal/domain"
	"github.com/spec-kit/servicedesk/internal/repository"
	apperrors "github.com/spec-kit/servicedesk/pkg/util/errorutil"
)

// TicketView is a ticket decorated with its people and project.
type TicketView struct {
	Ticket      domain.Ticket
	Requester   *domain.UserSummary
	Assignee    *domain.UserSummary
	ProjectName *string
}

// CommentView is a comment decorated with its author.
type CommentView struct {
	Comment domain.TicketComment
	Author  *domain.UserSummary
}

// TicketDetail bundles everything the ticket page renders.
type TicketDetail struct {
	Ticket      TicketView
	Comments    []CommentView
	Events      []domain.TicketEvent
	Attachments []domain.Attachment
}

// decorateTickets batch-loads users and projects referenced by tickets.
func decorateTickets(ctx context.Context, repos repository.Repositories, tickets []domain.Ticket) ([]TicketView, error) {
	empNos := make([]string, 0, len(tickets)*2)
	projectIDs := make([]int64, 0, len(tickets))
	for _, t := range tickets {
		empNos = append(empNos, t.RequesterID)
		if t.AssigneeID != nil {
			empNos = append(empNos, *t.AssigneeID)
		}
		if t.ProjectID != nil {
			projectIDs = append(projectIDs, *t.ProjectID)
		}
	}

	users, err := summariesByEmployeeNo(ctx, repos, empNos)
	if err != nil {
		return nil, err
	}
	names := make(map[int64]string, len(projectIDs))
	if len(projectIDs) > 0 {
		projects, err := repos.Projects().ListByIDs(ctx, projectIDs)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		for _, p := range projects {
			names[p.ID] = p.Name
		}
	}

	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		view := TicketView{Ticket: t, Requester: users[t.RequesterID]}
		if t.AssigneeID != nil {
			view.Assignee = users[*t.AssigneeID]
		}
		if t.ProjectID != nil {
			if name, ok := names[*t.ProjectID]; ok {
				view.ProjectName = strPtr(name)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func decorateTicket(ctx context.Context, repos repository.Repositories, ticket *domain.Ticket) (*TicketView, error) {
	views, err := decorateTickets(ctx, repos, []domain.Ticket{*ticket})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func decorateComments(ctx context.Context, repos repository.Repositories, comments []domain.TicketComment) ([]CommentView, error) {
	empNos := make([]string, 0, len(comments))
	for _, c := range comments {
		empNos = append(empNos, c.AuthorID)
	}
	users, err := summariesByEmployeeNo(ctx, repos, empNos)
	if err != nil {
		return nil, err
	}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, CommentView{Comment: c, Author: users[c.AuthorID]})
	}
	return views, nil
}

func summariesByEmployeeNo(ctx context.Context, repos repository.Repositories, empNos []string) (map[string]*domain.UserSummary, error) {
	out := make(map[string]*domain.UserSummary, len(empNos))
	if len(empNos) == 0 {
		return out, nil
	}
	users, err := repos.Users().ListByEmployeeNos(ctx, dedupe(empNos))
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	for i := range users {
		summary := users[i].Summary()
		out[users[i].EmployeeNo] = &summary
	}
	return out, nil
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

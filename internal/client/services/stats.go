package services

import (
	"context"

	"github.com/dmitrijs2005/taskdesk/internal/client/policy"
)

// Summary is the dashboard summary.
type Summary struct {
	Tasks int
	// Users is nil when the role may not list users.
	Users *int
}

// Stats counts tasks and, for roles that may list users, users.
func Stats(ctx context.Context, tasks *TaskService, users *UserService) (Summary, error) {
	var out Summary

	n, err := tasks.Count(ctx)
	if err != nil {
		return out, err
	}
	out.Tasks = n

	if !policy.Allows(tasks.session.Current().Role(), policy.ListUsers) {
		return out, nil
	}
	u, err := users.Count(ctx)
	if err != nil {
		return out, err
	}
	out.Users = &u
	return out, nil
}

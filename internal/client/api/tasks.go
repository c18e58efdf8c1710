package api

import (
	"context"
	"net/http"
	"strconv"
)

func (c *Client) ListTasks(ctx context.Context) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/api/Tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) CountTasks(ctx context.Context) (int, error) {
	var n int
	if err := c.do(ctx, http.MethodGet, "/api/Tasks/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) CreateTask(ctx context.Context, in TaskInput) error {
	return c.do(ctx, http.MethodPost, "/api/Tasks", in, nil)
}

func (c *Client) UpdateTask(ctx context.Context, id int, in TaskInput) error {
	return c.do(ctx, http.MethodPut, "/api/Tasks/"+strconv.Itoa(id), in, nil)
}

func (c *Client) DeleteTask(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/Tasks/"+strconv.Itoa(id), nil, nil)
}

// AssignTask hands task id over to userID.
func (c *Client) AssignTask(ctx context.Context, id, userID int) error {
	return c.do(ctx, http.MethodPatch, "/api/Tasks/"+strconv.Itoa(id)+"/"+strconv.Itoa(userID), nil, nil)
}

func (c *Client) ChangeTaskStatus(ctx context.Context, id int, status TaskStatus) error {
	return c.do(ctx, http.MethodPatch, "/api/Tasks/"+strconv.Itoa(id)+"/status", statusRequest{Status: status}, nil)
}

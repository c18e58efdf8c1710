package api

import (
	"context"
	"net/http"
	"strconv"
)

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var users []User
	if err := c.do(ctx, http.MethodGet, "/api/Users", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := c.do(ctx, http.MethodGet, "/api/Users/count", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func (c *Client) CreateUser(ctx context.Context, in UserInput) error {
	return c.do(ctx, http.MethodPost, "/api/Users", in, nil)
}

func (c *Client) UpdateUser(ctx context.Context, id int, in UserInput) error {
	return c.do(ctx, http.MethodPut, "/api/Users/"+strconv.Itoa(id), in, nil)
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "/api/Users/"+strconv.Itoa(id), nil, nil)
}

package backend

import (
	"context"
	"net/http"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/ports"
)

func (c *Client) ListUsers(ctx context.Context) ([]domain.Account, error) {
	var out []domain.Account
	if err := c.do(ctx, request{method: http.MethodGet, path: "users"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateUser(ctx context.Context, in ports.AccountInput) (*domain.Account, error) {
	return c.writeUser(ctx, http.MethodPost, "users", in)
}

// UpdateUser also carries status toggles and role changes.
func (c *Client) UpdateUser(ctx context.Context, id int, in ports.AccountInput) (*domain.Account, error) {
	acc, err := c.writeUser(ctx, http.MethodPut, pathf("users/%d", id), in)
	if err != nil {
		return nil, notFound(err)
	}
	return acc, nil
}

func (c *Client) writeUser(ctx context.Context, method, path string, in ports.AccountInput) (*domain.Account, error) {
	r, err := jsonRequest(method, path, in)
	if err != nil {
		return nil, err
	}
	var out domain.Account
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("users/%d", id)}, nil)
}

package backend

import (
	"context"
	"net/http"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/ports"
)

func (c *Client) Login(ctx context.Context, in ports.LoginInput) (*domain.AuthResult, error) {
	return c.authenticate(ctx, "login", in)
}

func (c *Client) Register(ctx context.Context, in ports.RegisterInput) (*domain.AuthResult, error) {
	return c.authenticate(ctx, "register", in)
}

func (c *Client) authenticate(ctx context.Context, path string, payload any) (*domain.AuthResult, error) {
	r, err := jsonRequest(http.MethodPost, path, payload)
	if err != nil {
		return nil, err
	}
	var out domain.AuthResult
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, &domain.BackendError{StatusCode: http.StatusBadGateway, Message: "backend returned no access token"}
	}
	return &out, nil
}

package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marketplace/storefront/internal/core/domain"
)

type cartLine struct {
	ProductTypeID int `json:"productTypeId"`
	Quantity      int `json:"quantity"`
}

func (c *Client) GetCart(ctx context.Context) (*domain.Cart, error) {
	var out domain.Cart
	if err := c.do(ctx, request{method: http.MethodGet, path: "cart/me"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AddToCart(ctx context.Context, productTypeID, quantity int) error {
	r, err := jsonRequest(http.MethodPost, "cart", cartLine{ProductTypeID: productTypeID, Quantity: quantity})
	if err != nil {
		return err
	}
	return c.do(ctx, r, nil)
}

func (c *Client) UpdateCartItem(ctx context.Context, productTypeID, quantity int) error {
	return c.do(ctx, request{
		method: http.MethodPut,
		path:   pathf("cart/items/%d", productTypeID),
		query:  url.Values{"quantity": []string{strconv.Itoa(quantity)}},
	}, nil)
}

func (c *Client) RemoveCartItem(ctx context.Context, productTypeID int) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("cart/items/%d", productTypeID)}, nil)
}

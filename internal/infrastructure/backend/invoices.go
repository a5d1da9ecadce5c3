package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marketplace/storefront/internal/core/domain"
)

// ListMyInvoices asks for the caller's own invoices. The backend scopes an
// unfiltered GET /invoices to the bearer's account.
func (c *Client) ListMyInvoices(ctx context.Context) ([]domain.Invoice, error) {
	return c.listInvoices(ctx, nil)
}

// ListInvoices is the admin listing. The status parameter is always sent so
// the backend answers with every account's invoices; zero means no filter.
func (c *Client) ListInvoices(ctx context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error) {
	q := url.Values{"status": []string{""}}
	if status != 0 {
		q.Set("status", strconv.Itoa(int(status)))
	}
	return c.listInvoices(ctx, q)
}

func (c *Client) listInvoices(ctx context.Context, q url.Values) ([]domain.Invoice, error) {
	var out []domain.Invoice
	if err := c.do(ctx, request{method: http.MethodGet, path: "invoices", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetInvoice(ctx context.Context, id int) (*domain.Invoice, error) {
	var out domain.Invoice
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("invoices/%d", id)}, &out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, in domain.NewInvoice) (*domain.PaymentIntent, error) {
	r, err := jsonRequest(http.MethodPost, "invoices", in)
	if err != nil {
		return nil, err
	}
	var out domain.PaymentIntent
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateInvoice(ctx context.Context, id int, in domain.InvoiceUpdate) (*domain.Invoice, error) {
	r, err := jsonRequest(http.MethodPut, pathf("invoices/%d", id), in)
	if err != nil {
		return nil, err
	}
	var out domain.Invoice
	if err := c.do(ctx, r, &out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/ports"
)

func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.do(ctx, request{method: http.MethodGet, path: "categories"}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id int) (*domain.Category, error) {
	var out domain.Category
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("categories/%d", id)}, &out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

func (c *Client) CreateCategory(ctx context.Context, in ports.CategoryInput) (*domain.Category, error) {
	return c.writeCategory(ctx, http.MethodPost, "categories", in)
}

func (c *Client) UpdateCategory(ctx context.Context, id int, in ports.CategoryInput) (*domain.Category, error) {
	return c.writeCategory(ctx, http.MethodPut, pathf("categories/%d", id), in)
}

func (c *Client) writeCategory(ctx context.Context, method, path string, in ports.CategoryInput) (*domain.Category, error) {
	form := newMultipart()
	form.field("Name", in.Name)
	form.field("Description", in.Description)
	form.field("Status", strconv.Itoa(int(in.Status)))
	if in.Image != nil {
		form.file("Image", *in.Image)
	}
	r, err := form.request(method, path)
	if err != nil {
		return nil, err
	}
	var out domain.Category
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id int) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("categories/%d", id)}, nil)
}

func (c *Client) ListProducts(ctx context.Context, f ports.ProductFilter) ([]domain.Product, error) {
	q := url.Values{}
	if f.CategoryID > 0 {
		q.Set("categoryId", strconv.Itoa(f.CategoryID))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	var out []domain.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: "products", query: q}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, request{method: http.MethodGet, path: pathf("products/%d", id)}, &out); err != nil {
		return nil, notFound(err)
	}
	return &out, nil
}

// CreateProduct sends the product and its variants in one multipart body;
// variant fields travel as parallel arrays.
func (c *Client) CreateProduct(ctx context.Context, in ports.ProductInput) (*domain.Product, error) {
	form := productForm(in)
	for _, v := range in.Variants {
		form.field("ProductTypeNames", v.Name)
		form.field("ProductTypeQuantities", strconv.Itoa(v.Quantity))
		form.field("ProductTypePrices", strconv.FormatInt(v.Price, 10))
		if v.Image != nil {
			form.file("ProductTypeImages", *v.Image)
		} else {
			form.emptyFile("ProductTypeImages")
		}
	}
	return c.writeProduct(ctx, http.MethodPost, "products", form)
}

// UpdateProduct never sends variant fields.
func (c *Client) UpdateProduct(ctx context.Context, id int, in ports.ProductInput) (*domain.Product, error) {
	if len(in.Variants) > 0 {
		return nil, domain.ErrVariantEditUnsupported
	}
	return c.writeProduct(ctx, http.MethodPut, pathf("products/%d", id), productForm(in))
}

func productForm(in ports.ProductInput) *multipartForm {
	form := newMultipart()
	form.field("Name", in.Name)
	form.field("Description", in.Description)
	form.field("CategoryId", strconv.Itoa(in.CategoryID))
	form.field("Status", strconv.Itoa(int(in.Status)))
	for _, img := range in.Images {
		form.file("Images", img)
	}
	return form
}

func (c *Client) writeProduct(ctx context.Context, method, path string, form *multipartForm) (*domain.Product, error) {
	r, err := form.request(method, path)
	if err != nil {
		return nil, err
	}
	var out domain.Product
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.do(ctx, request{method: http.MethodDelete, path: pathf("products/%d", id)}, nil)
}

// notFound tags a backend 404 with domain.ErrNotFound.
func notFound(err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	}
	return err
}

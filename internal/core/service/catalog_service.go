package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/pkg/media"
)

// CatalogService serves categories and products to the shop and the admin
// console.
type CatalogService struct {
	cache  *querycache.Cache
	images media.Resolver
	logger zerolog.Logger
}

func NewCatalogService(cache *querycache.Cache, images media.Resolver, logger zerolog.Logger) *CatalogService {
	return &CatalogService{cache: cache, images: images, logger: logger}
}

// ProductQuery filters the product list. The shop passes ActiveOnly.
type ProductQuery struct {
	CategoryID int
	Search     string
	ActiveOnly bool
}

func (s *CatalogService) ListCategories(ctx context.Context, sess *session.Session, activeOnly bool) ([]domain.Category, error) {
	key := querycache.NewKey(querycache.ResCategories)
	cats, err := querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), sess.Gateway().ListCategories)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(cats))
	for _, c := range cats {
		if activeOnly && c.Status != domain.StatusActive {
			continue
		}
		out = append(out, s.category(c))
	}
	return out, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, sess *session.Session, id int) (*domain.Category, error) {
	key := querycache.NewKey(querycache.ResCategory, id)
	c, err := querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), func(ctx context.Context) (*domain.Category, error) {
		return sess.Gateway().GetCategory(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	out := s.category(*c)
	return &out, nil
}

func (s *CatalogService) ListProducts(ctx context.Context, sess *session.Session, q ProductQuery) ([]domain.Product, error) {
	key := querycache.NewKey(querycache.ResProducts, q.CategoryID, q.Search)
	products, err := querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), func(ctx context.Context) ([]domain.Product, error) {
		return sess.Gateway().ListProducts(ctx, ports.ProductFilter{CategoryID: q.CategoryID, Search: q.Search})
	})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if q.ActiveOnly && p.Status != domain.StatusActive {
			continue
		}
		out = append(out, s.product(p, media.Thumbnail))
	}
	return out, nil
}

// GetProduct returns one product. The shop hides inactive products.
func (s *CatalogService) GetProduct(ctx context.Context, sess *session.Session, id int, activeOnly bool) (*domain.Product, error) {
	key := querycache.NewKey(querycache.ResProduct, id)
	p, err := querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), func(ctx context.Context) (*domain.Product, error) {
		return sess.Gateway().GetProduct(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if activeOnly && p.Status != domain.StatusActive {
		return nil, domain.ErrNotFound
	}
	out := s.product(*p, media.Detail)
	return &out, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, sess *session.Session, form forms.CategoryCreate) (*domain.Category, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	var created *domain.Category
	err := s.cache.Mutate(ctx, querycache.Mutation{Kind: querycache.CategoryCreate}, func(ctx context.Context) error {
		var err error
		created, err = sess.Gateway().CreateCategory(ctx, ports.CategoryInput{
			Name:        form.Name,
			Description: form.Description,
			Status:      domain.ActiveStatus(form.Status),
			Image:       form.Image,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := s.category(*created)
	return &out, nil
}

// UpdateCategory leaves the stored image untouched when form.Image is nil.
func (s *CatalogService) UpdateCategory(ctx context.Context, sess *session.Session, id int, form forms.CategoryUpdate) (*domain.Category, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	var updated *domain.Category
	m := querycache.Mutation{Kind: querycache.CategoryUpdate, Args: querycache.Args{ID: strconv.Itoa(id)}}
	err := s.cache.Mutate(ctx, m, func(ctx context.Context) error {
		var err error
		updated, err = sess.Gateway().UpdateCategory(ctx, id, ports.CategoryInput{
			Name:        form.Name,
			Description: form.Description,
			Status:      domain.ActiveStatus(form.Status),
			Image:       form.Image,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := s.category(*updated)
	return &out, nil
}

func (s *CatalogService) DeleteCategory(ctx context.Context, sess *session.Session, id int) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	m := querycache.Mutation{Kind: querycache.CategoryDelete, Args: querycache.Args{ID: strconv.Itoa(id)}}
	return s.cache.Mutate(ctx, m, func(ctx context.Context) error {
		return sess.Gateway().DeleteCategory(ctx, id)
	})
}

// CreateProduct creates a product together with all of its variants.
func (s *CatalogService) CreateProduct(ctx context.Context, sess *session.Session, form forms.ProductCreate) (*domain.Product, error) {
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	in := ports.ProductInput{
		Name:        form.Name,
		Description: form.Description,
		CategoryID:  form.CategoryID,
		Status:      domain.ActiveStatus(form.Status),
		Images:      form.Images,
	}
	for _, v := range form.Variants {
		in.Variants = append(in.Variants, ports.VariantInput{
			Name:     v.Name,
			Price:    v.Price,
			Quantity: v.Quantity,
			Image:    v.Image,
		})
	}

	var created *domain.Product
	err := s.cache.Mutate(ctx, querycache.Mutation{Kind: querycache.ProductCreate}, func(ctx context.Context) error {
		var err error
		created, err = sess.Gateway().CreateProduct(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := s.product(*created, media.Detail)
	return &out, nil
}

// UpdateProduct edits product fields only; variants are fixed at creation.
func (s *CatalogService) UpdateProduct(ctx context.Context, sess *session.Session, id int, form forms.ProductUpdate) (*domain.Product, error) {
	if len(form.Variants) > 0 {
		return nil, domain.ErrVariantEditUnsupported
	}
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	var updated *domain.Product
	m := querycache.Mutation{Kind: querycache.ProductUpdate, Args: querycache.Args{ID: strconv.Itoa(id)}}
	err := s.cache.Mutate(ctx, m, func(ctx context.Context) error {
		var err error
		updated, err = sess.Gateway().UpdateProduct(ctx, id, ports.ProductInput{
			Name:        form.Name,
			Description: form.Description,
			CategoryID:  form.CategoryID,
			Status:      domain.ActiveStatus(form.Status),
			Images:      form.Images,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	out := s.product(*updated, media.Detail)
	return &out, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, sess *session.Session, id int) error {
	if err := requireAdmin(sess); err != nil {
		return err
	}
	m := querycache.Mutation{Kind: querycache.ProductDelete, Args: querycache.Args{ID: strconv.Itoa(id)}}
	return s.cache.Mutate(ctx, m, func(ctx context.Context) error {
		return sess.Gateway().DeleteProduct(ctx, id)
	})
}

// category and product return copies with CDN URLs; cached values are
// shared and never modified.
func (s *CatalogService) category(c domain.Category) domain.Category {
	c.Image = s.images.URL(c.Image, media.Banner)
	return c
}

func (s *CatalogService) product(p domain.Product, transform string) domain.Product {
	p.Images = s.images.URLs(p.Images, transform)
	if p.ProductTypes != nil {
		types := make([]domain.ProductType, len(p.ProductTypes))
		for i, t := range p.ProductTypes {
			t.Image = s.images.URL(t.Image, media.Thumbnail)
			types[i] = t
		}
		p.ProductTypes = types
	}
	return p
}

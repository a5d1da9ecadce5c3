package service

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/pkg/media"
)

type CartService struct {
	cache    *querycache.Cache
	notifier notify.Notifier
	images   media.Resolver
	logger   zerolog.Logger
}

func NewCartService(cache *querycache.Cache, notifier notify.Notifier, images media.Resolver, logger zerolog.Logger) *CartService {
	return &CartService{cache: cache, notifier: notifier, images: images, logger: logger}
}

// CartView is the cart with its computed total.
type CartView struct {
	domain.Cart
	Total int64 `json:"total"`
}

func cartKey(sess *session.Session) querycache.Key {
	return querycache.NewKey(querycache.ResCart, sess.Scope())
}

// Get reads the cart. The cart policy never serves a stale entry.
func (s *CartService) Get(ctx context.Context, sess *session.Session) (*CartView, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	key := cartKey(sess)
	cart, err := querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), sess.Gateway().GetCart)
	if err != nil {
		return nil, err
	}
	view := &CartView{Cart: *cart, Total: cart.Total()}
	view.Items = make([]domain.CartItem, len(cart.Items))
	for i, it := range cart.Items {
		it.Image = s.images.URL(it.Image, media.Thumbnail)
		view.Items[i] = it
	}
	return view, nil
}

// QuickAdd adds one unit from the shop grid. Guests get a notification
// pointing at the login view and nothing is sent to the backend.
func (s *CartService) QuickAdd(ctx context.Context, sess *session.Session, productTypeID int) error {
	if !sess.IsAuthenticated() {
		notify.Error(ctx, s.notifier, "Vui lòng đăng nhập để thêm sản phẩm vào giỏ hàng", loginAction)
		return domain.ErrUnauthenticated
	}
	return s.Add(ctx, sess, forms.CartLine{ProductTypeID: productTypeID, Quantity: 1})
}

func (s *CartService) Add(ctx context.Context, sess *session.Session, form forms.CartLine) error {
	if err := forms.Validate(form); err != nil {
		return err
	}
	if err := requireAuth(sess); err != nil {
		return err
	}
	return s.cache.Mutate(ctx, s.mutation(sess, querycache.CartAdd, form.ProductTypeID), func(ctx context.Context) error {
		return sess.Gateway().AddToCart(ctx, form.ProductTypeID, form.Quantity)
	})
}

// UpdateQuantity sets a line's quantity. A quantity of zero removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, sess *session.Session, productTypeID, quantity int) error {
	if quantity <= 0 {
		return s.Remove(ctx, sess, productTypeID)
	}
	if err := requireAuth(sess); err != nil {
		return err
	}
	return s.cache.Mutate(ctx, s.mutation(sess, querycache.CartUpdate, productTypeID), func(ctx context.Context) error {
		return sess.Gateway().UpdateCartItem(ctx, productTypeID, quantity)
	})
}

func (s *CartService) Remove(ctx context.Context, sess *session.Session, productTypeID int) error {
	if err := requireAuth(sess); err != nil {
		return err
	}
	return s.cache.Mutate(ctx, s.mutation(sess, querycache.CartRemove, productTypeID), func(ctx context.Context) error {
		return sess.Gateway().RemoveCartItem(ctx, productTypeID)
	})
}

func (s *CartService) mutation(sess *session.Session, kind querycache.MutationKind, productTypeID int) querycache.Mutation {
	return querycache.Mutation{
		Kind: kind,
		Args: querycache.Args{ID: strconv.Itoa(productTypeID), Scope: sess.Scope()},
	}
}

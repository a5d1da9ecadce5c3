package service

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
)

// PlaceholderAddress is sent when the invoice is created, before the
// customer has entered a delivery address.
const PlaceholderAddress = "Đang cập nhật"

const (
	cleanupTimeout     = 10 * time.Second
	cleanupConcurrency = 4
)

type CheckoutService struct {
	cache          *querycache.Cache
	publishableKey string
	logger         zerolog.Logger
}

func NewCheckoutService(cache *querycache.Cache, publishableKey string, logger zerolog.Logger) *CheckoutService {
	return &CheckoutService{cache: cache, publishableKey: publishableKey, logger: logger}
}

// PaymentSession is what the browser needs to mount the hosted payment
// element for phase two.
type PaymentSession struct {
	InvoiceID      int    `json:"invoiceId"`
	ClientSecret   string `json:"clientSecret"`
	PublishableKey string `json:"publishableKey"`
	ReturnURL      string `json:"returnUrl"`
}

// Begin is phase one: the invoice is created with a placeholder address to
// obtain the payment client secret.
func (s *CheckoutService) Begin(ctx context.Context, sess *session.Session, form forms.Checkout) (*PaymentSession, error) {
	if len(form.Items) == 0 {
		return nil, domain.ErrEmptyCheckout
	}
	if err := forms.Validate(form); err != nil {
		return nil, err
	}
	if err := requireAuth(sess); err != nil {
		return nil, err
	}

	in := domain.NewInvoice{
		Address:   PlaceholderAddress,
		VoucherID: form.VoucherID,
		Notes:     form.Notes,
	}
	for _, it := range form.Items {
		in.Items = append(in.Items, domain.CheckoutLine{ProductTypeID: it.ProductTypeID, Quantity: it.Quantity})
	}

	var intent *domain.PaymentIntent
	err := s.cache.Mutate(ctx, querycache.Mutation{Kind: querycache.InvoiceCreate}, func(ctx context.Context) error {
		var err error
		intent, err = sess.Gateway().CreateInvoice(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("invoice_id", intent.InvoiceID).Int("lines", len(in.Items)).Bool("from_cart", form.FromCart).Msg("checkout started")
	return &PaymentSession{
		InvoiceID:      intent.InvoiceID,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: s.publishableKey,
		ReturnURL:      ReturnURL(intent.InvoiceID, form.FromCart),
	}, nil
}

// ReturnURL is where the payment processor sends the browser after payment.
func ReturnURL(invoiceID int, fromCart bool) string {
	q := url.Values{"invoiceId": []string{strconv.Itoa(invoiceID)}}
	if fromCart {
		q.Set("source", "cart")
	}
	return "/checkout/success?" + q.Encode()
}

// UpdateAddress replaces the placeholder with the real delivery address.
func (s *CheckoutService) UpdateAddress(ctx context.Context, sess *session.Session, invoiceID int, form forms.Address) error {
	if err := forms.Validate(form); err != nil {
		return err
	}
	if err := requireAuth(sess); err != nil {
		return err
	}
	m := querycache.Mutation{Kind: querycache.InvoiceAddress, Args: querycache.Args{ID: strconv.Itoa(invoiceID)}}
	return s.cache.Mutate(ctx, m, func(ctx context.Context) error {
		_, err := sess.Gateway().UpdateInvoice(ctx, invoiceID, domain.InvoiceUpdate{Address: &form.Address})
		return err
	})
}

// Complete runs when the payment processor redirects back. For a checkout
// that started from the cart every purchased line is removed from the cart.
// Removal is best-effort: failures are logged and the invoice is still
// returned.
func (s *CheckoutService) Complete(ctx context.Context, sess *session.Session, invoiceID int, fromCart bool) (*domain.Invoice, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	key := querycache.NewKey(querycache.ResInvoice, invoiceID, sess.Scope())
	inv, err := querycache.Refresh(ctx, s.cache, key, func(ctx context.Context) (*domain.Invoice, error) {
		return sess.Gateway().GetInvoice(ctx, invoiceID)
	})
	if err != nil {
		return nil, err
	}
	if fromCart {
		s.cleanupCart(ctx, sess, inv)
	}
	return inv, nil
}

func (s *CheckoutService) cleanupCart(ctx context.Context, sess *session.Session, inv *domain.Invoice) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(cleanupConcurrency)
	for _, it := range inv.Items {
		productTypeID := it.ProductTypeID
		g.Go(func() error {
			if err := sess.Gateway().RemoveCartItem(ctx, productTypeID); err != nil {
				s.logger.Warn().Err(err).Int("invoice_id", inv.ID).Int("product_type_id", productTypeID).Msg("cart cleanup failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	s.cache.Invalidate(querycache.Invalidations(querycache.Mutation{
		Kind: querycache.CartCleanup,
		Args: querycache.Args{Scope: sess.Scope()},
	})...)
	s.logger.Debug().Int("invoice_id", inv.ID).Int("lines", len(inv.Items)).Msg("cart cleanup done")
}

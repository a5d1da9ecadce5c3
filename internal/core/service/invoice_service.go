package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/session"
)

const cancelNotePrefix = "Lý do hủy: "

type InvoiceService struct {
	cache  *querycache.Cache
	logger zerolog.Logger
}

func NewInvoiceService(cache *querycache.Cache, logger zerolog.Logger) *InvoiceService {
	return &InvoiceService{cache: cache, logger: logger}
}

// InvoiceView is an invoice plus the actions the viewer may take on it.
type InvoiceView struct {
	domain.Invoice
	StatusLabel string                 `json:"statusLabel"`
	Actions     []domain.InvoiceAction `json:"actions"`
}

// ListMine returns the signed-in customer's invoices.
func (s *InvoiceService) ListMine(ctx context.Context, sess *session.Session) ([]domain.Invoice, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	key := querycache.NewKey(querycache.ResInvoices, sess.Scope())
	return querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), sess.Gateway().ListMyInvoices)
}

// ListAll is the admin listing; a zero status lists every invoice.
func (s *InvoiceService) ListAll(ctx context.Context, sess *session.Session, status domain.InvoiceStatus) ([]domain.Invoice, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if status != 0 && !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %d", domain.ErrInvalidTransition, status)
	}
	key := querycache.NewKey(querycache.ResInvoices, "all", int(status))
	return querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), func(ctx context.Context) ([]domain.Invoice, error) {
		return sess.Gateway().ListInvoices(ctx, status)
	})
}

func (s *InvoiceService) Get(ctx context.Context, sess *session.Session, id int) (*InvoiceView, error) {
	inv, err := s.fetch(ctx, sess, id, false)
	if err != nil {
		return nil, err
	}
	return s.view(sess, inv), nil
}

// Advance moves an invoice exactly one step forward. The caller must pass
// confirm=true once the user has accepted the confirmation dialog.
func (s *InvoiceService) Advance(ctx context.Context, sess *session.Session, id int, target domain.InvoiceStatus, confirm bool) (*InvoiceView, error) {
	if err := requireAdmin(sess); err != nil {
		return nil, err
	}
	if !confirm {
		return nil, domain.ErrConfirmationRequired
	}
	current, err := s.fetch(ctx, sess, id, true)
	if err != nil {
		return nil, err
	}
	next, ok := current.Status.Next()
	if !ok || next != target || !current.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %d -> %d", domain.ErrInvalidTransition, current.Status, target)
	}

	err = s.cache.Mutate(ctx, s.mutation(querycache.InvoiceAdvance, id), func(ctx context.Context) error {
		_, err := sess.Gateway().UpdateInvoice(ctx, id, domain.InvoiceUpdate{Status: &target})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("invoice_id", id).Int("from", int(current.Status)).Int("to", int(target)).Msg("invoice advanced")
	return s.Get(ctx, sess, id)
}

// Cancel cancels a pending invoice and records the reason in its notes.
// Owners and admins may cancel.
func (s *InvoiceService) Cancel(ctx context.Context, sess *session.Session, id int, form forms.Cancel) (*InvoiceView, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(form.Reason)
	if reason == "" {
		return nil, domain.ErrCancelReasonRequired
	}
	current, err := s.fetch(ctx, sess, id, true)
	if err != nil {
		return nil, err
	}
	if sess.Role() != domain.RoleAdmin && !s.owns(sess, current) {
		return nil, domain.ErrForbidden
	}
	if current.Status != domain.InvoicePending {
		return nil, domain.ErrNotCancellable
	}

	status := domain.InvoiceCancelled
	notes := cancelNotePrefix + reason
	if existing := strings.TrimSpace(current.Notes); existing != "" {
		notes = existing + "\n" + notes
	}
	err = s.cache.Mutate(ctx, s.mutation(querycache.InvoiceCancel, id), func(ctx context.Context) error {
		_, err := sess.Gateway().UpdateInvoice(ctx, id, domain.InvoiceUpdate{Status: &status, Notes: &notes})
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("invoice_id", id).Str("by", sess.Role().String()).Msg("invoice cancelled")
	return s.Get(ctx, sess, id)
}

// fetch reads the invoice through the cache; fresh forces a refetch so
// transitions are checked against the backend's current status.
func (s *InvoiceService) fetch(ctx context.Context, sess *session.Session, id int, fresh bool) (*domain.Invoice, error) {
	if err := requireAuth(sess); err != nil {
		return nil, err
	}
	key := querycache.NewKey(querycache.ResInvoice, id, sess.Scope())
	fetch := func(ctx context.Context) (*domain.Invoice, error) {
		return sess.Gateway().GetInvoice(ctx, id)
	}
	if fresh {
		return querycache.Refresh(ctx, s.cache, key, fetch)
	}
	return querycache.Query(ctx, s.cache, key, querycache.PolicyFor(key.Resource), fetch)
}

func (s *InvoiceService) view(sess *session.Session, inv *domain.Invoice) *InvoiceView {
	return &InvoiceView{
		Invoice:     *inv,
		StatusLabel: inv.Status.Label(),
		Actions:     domain.InvoiceActions(inv.Status, sess.Role(), s.owns(sess, inv)),
	}
}

// owns reports whether the signed-in user placed inv. Invoices without a
// user id come from the customer's own listing.
func (s *InvoiceService) owns(sess *session.Session, inv *domain.Invoice) bool {
	u := sess.User()
	if u == nil {
		return false
	}
	if inv.UserID == 0 {
		return sess.Role() != domain.RoleAdmin
	}
	return inv.UserID == u.ID
}

func (s *InvoiceService) mutation(kind querycache.MutationKind, id int) querycache.Mutation {
	return querycache.Mutation{Kind: kind, Args: querycache.Args{ID: strconv.Itoa(id)}}
}

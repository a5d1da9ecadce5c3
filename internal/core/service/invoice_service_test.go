package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
)

func newInvoiceService(h *harness) *InvoiceService {
	return NewInvoiceService(h.cache, zerolog.Nop())
}

func TestInvoiceService_AdvanceConfirmedToShipping(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	_, customer := h.customer("cust")
	inv := h.fb.AddInvoice(domain.Invoice{UserID: customer.ID, Status: domain.InvoiceConfirmed, Total: 250000})
	svc := newInvoiceService(h)
	ctx := context.Background()

	before, err := svc.Get(ctx, admin, inv.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(before.Actions) != 1 || before.Actions[0].Label != "Giao hàng ngay" {
		t.Fatalf("expected the shipping action, got %+v", before.Actions)
	}

	view, err := svc.Advance(ctx, admin, inv.ID, before.Actions[0].Target, true)
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if view.Status != domain.InvoiceShipping {
		t.Fatalf("expected status 3, got %d", view.Status)
	}
	if len(view.Actions) != 1 || view.Actions[0].Target != domain.InvoiceDelivered || view.Actions[0].Kind != domain.ActionAdvance {
		t.Fatalf("expected only the 3->4 action, got %+v", view.Actions)
	}
}

func TestInvoiceService_AdvanceNeedsConfirmation(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	inv := h.fb.AddInvoice(domain.Invoice{UserID: 1, Status: domain.InvoicePending})

	_, err := newInvoiceService(h).Advance(context.Background(), admin, inv.ID, domain.InvoiceConfirmed, false)
	if !errors.Is(err, domain.ErrConfirmationRequired) {
		t.Fatalf("expected ErrConfirmationRequired, got %v", err)
	}
	if h.fb.Calls("PUT /invoices/{id}") != 0 {
		t.Fatalf("expected no write before confirmation")
	}
}

func TestInvoiceService_AdvanceNeverSkips(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	inv := h.fb.AddInvoice(domain.Invoice{UserID: 1, Status: domain.InvoicePending})

	_, err := newInvoiceService(h).Advance(context.Background(), admin, inv.ID, domain.InvoiceShipping, true)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	_, err = newInvoiceService(h).Advance(context.Background(), admin, inv.ID, domain.InvoiceCancelled, true)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected cancellation to be refused as an advance, got %v", err)
	}
}

func TestInvoiceService_CustomerCannotAdvance(t *testing.T) {
	h := newHarness(t)
	sess, acc := h.customer("cust")
	inv := h.fb.AddInvoice(domain.Invoice{UserID: acc.ID, Status: domain.InvoicePending})

	_, err := newInvoiceService(h).Advance(context.Background(), sess, inv.ID, domain.InvoiceConfirmed, true)
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestInvoiceService_CustomerCancelsPending(t *testing.T) {
	h := newHarness(t)
	sess, acc := h.customer("cust")
	inv := h.fb.AddInvoice(domain.Invoice{UserID: acc.ID, Status: domain.InvoicePending})
	svc := newInvoiceService(h)
	ctx := context.Background()

	view, err := svc.Get(ctx, sess, inv.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(view.Actions) != 1 || view.Actions[0].Kind != domain.ActionCancel {
		t.Fatalf("expected only the cancel action for the owner, got %+v", view.Actions)
	}

	if _, err := svc.Cancel(ctx, sess, inv.ID, forms.Cancel{Reason: "   "}); !errors.Is(err, domain.ErrCancelReasonRequired) {
		t.Fatalf("expected ErrCancelReasonRequired, got %v", err)
	}

	view, err = svc.Cancel(ctx, sess, inv.ID, forms.Cancel{Reason: "Đặt nhầm"})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if view.Status != domain.InvoiceCancelled {
		t.Fatalf("expected status 5, got %d", view.Status)
	}
	if !strings.Contains(h.fb.Invoice(inv.ID).Notes, "Đặt nhầm") {
		t.Fatalf("expected the reason in notes, got %q", h.fb.Invoice(inv.ID).Notes)
	}
	if len(view.Actions) != 0 {
		t.Fatalf("expected no actions on a cancelled invoice, got %+v", view.Actions)
	}
}

func TestInvoiceService_CancelOnlyWhilePending(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	inv := h.fb.AddInvoice(domain.Invoice{UserID: 1, Status: domain.InvoiceShipping})

	_, err := newInvoiceService(h).Cancel(context.Background(), admin, inv.ID, forms.Cancel{Reason: "Hết hàng"})
	if !errors.Is(err, domain.ErrNotCancellable) {
		t.Fatalf("expected ErrNotCancellable, got %v", err)
	}
}

func TestInvoiceService_ListAllFilters(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	h.fb.AddInvoice(domain.Invoice{UserID: 1, Status: domain.InvoicePending})
	h.fb.AddInvoice(domain.Invoice{UserID: 2, Status: domain.InvoiceDelivered})
	svc := newInvoiceService(h)

	all, err := svc.ListAll(context.Background(), admin, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 invoices, got %d", len(all))
	}
	delivered, err := svc.ListAll(context.Background(), admin, domain.InvoiceDelivered)
	if err != nil {
		t.Fatal(err)
	}
	if len(delivered) != 1 || delivered[0].Status != domain.InvoiceDelivered {
		t.Fatalf("expected only the delivered invoice, got %+v", delivered)
	}
}

func TestInvoiceService_TerminalStatusesOfferNothing(t *testing.T) {
	h := newHarness(t)
	admin, _ := h.admin("admin")
	svc := newInvoiceService(h)
	for _, status := range []domain.InvoiceStatus{domain.InvoiceDelivered, domain.InvoiceCancelled} {
		inv := h.fb.AddInvoice(domain.Invoice{UserID: 1, Status: status})
		view, err := svc.Get(context.Background(), admin, inv.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(view.Actions) != 0 {
			t.Fatalf("status %d: expected no actions, got %+v", status, view.Actions)
		}
	}
}

func TestInvoiceService_MissingInvoice(t *testing.T) {
	h := newHarness(t)
	sess, _ := h.customer("cust")
	if _, err := newInvoiceService(h).Get(context.Background(), sess, 424242); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInvoiceService_RehydratedSessionKeepsItsOwnScope(t *testing.T) {
	h := newHarnessWithLive(t, 1)
	svc := NewInvoiceService(h.cache, zerolog.Nop())
	ctx := context.Background()
	first := h.fb.AddAccount("Trần Thị B", "b@example.com", "secret1", domain.RoleUser)
	second := h.fb.AddAccount("Lê Văn C", "c@example.com", "secret1", domain.RoleUser)
	h.fb.AddInvoice(domain.Invoice{UserID: first.ID, Address: "nhà của B", Status: domain.InvoicePending})

	sess := h.signIn("shared", first)
	firstScope := sess.Scope()
	mine, err := svc.ListMine(ctx, sess)
	if err != nil || len(mine) != 1 {
		t.Fatalf("ListMine for first user: %v, %d invoices", err, len(mine))
	}
	sess.Logout(ctx)

	sess = h.signIn("shared", second)
	secondScope := sess.Scope()
	if secondScope == firstScope {
		t.Fatalf("a new sign-in must get a new scope")
	}

	h.customer("visitor-a")
	again := h.manager.Open(ctx, "shared")
	if again == sess {
		t.Fatalf("expected the session to have been evicted")
	}
	if again.Scope() != secondScope {
		t.Fatalf("rehydrated scope %q, want %q", again.Scope(), secondScope)
	}
	mine, err = svc.ListMine(ctx, again)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 0 {
		t.Fatalf("second user sees %d invoice(s) cached for the first", len(mine))
	}
}

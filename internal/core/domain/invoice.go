package domain

import "time"

// InvoiceStatus is the backend's integer order status.
type InvoiceStatus int

const (
	InvoicePending   InvoiceStatus = 1
	InvoiceConfirmed InvoiceStatus = 2
	InvoiceShipping  InvoiceStatus = 3
	InvoiceDelivered InvoiceStatus = 4
	InvoiceCancelled InvoiceStatus = 5
)

// validTransitions lists every transition the storefront may request.
var validTransitions = map[InvoiceStatus][]InvoiceStatus{
	InvoicePending:   {InvoiceConfirmed, InvoiceCancelled},
	InvoiceConfirmed: {InvoiceShipping},
	InvoiceShipping:  {InvoiceDelivered},
}

var invoiceStatusLabels = map[InvoiceStatus]string{
	InvoicePending:   "Chờ xác nhận",
	InvoiceConfirmed: "Đã xác nhận",
	InvoiceShipping:  "Đang giao hàng",
	InvoiceDelivered: "Đã giao hàng",
	InvoiceCancelled: "Đã hủy",
}

// forwardLabels are the admin button captions, keyed by the target status.
var forwardLabels = map[InvoiceStatus]string{
	InvoiceConfirmed: "Xác nhận đơn hàng",
	InvoiceShipping:  "Giao hàng ngay",
	InvoiceDelivered: "Xác nhận đã giao",
}

const cancelLabel = "Hủy đơn hàng"

// CanTransitionTo reports whether a transition from s to next is valid.
func (s InvoiceStatus) CanTransitionTo(next InvoiceStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Next returns the forward status after s. Cancellation is never "next".
func (s InvoiceStatus) Next() (InvoiceStatus, bool) {
	switch s {
	case InvoicePending, InvoiceConfirmed, InvoiceShipping:
		return s + 1, true
	default:
		return 0, false
	}
}

// Terminal reports whether no further transition exists.
func (s InvoiceStatus) Terminal() bool {
	return len(validTransitions[s]) == 0
}

func (s InvoiceStatus) Valid() bool {
	return s >= InvoicePending && s <= InvoiceCancelled
}

func (s InvoiceStatus) Label() string {
	if l, ok := invoiceStatusLabels[s]; ok {
		return l
	}
	return "Không xác định"
}

// InvoiceItem is one line of an invoice.
type InvoiceItem struct {
	ProductTypeID   int    `json:"productTypeId"`
	ProductTypeName string `json:"productTypeName,omitempty"`
	ProductName     string `json:"productName,omitempty"`
	Quantity        int    `json:"quantity"`
	Amount          int64  `json:"amount"`
}

// Invoice is an order as recorded by the backend.
type Invoice struct {
	ID              int           `json:"id"`
	UserID          int           `json:"userId,omitempty"`
	CustomerName    string        `json:"customerName,omitempty"`
	Address         string        `json:"address"`
	Status          InvoiceStatus `json:"status"`
	CreatedAt       time.Time     `json:"createdAt"`
	Total           int64         `json:"total"`
	VoucherID       *int          `json:"voucherId,omitempty"`
	PaymentIntentID string        `json:"paymentIntentId,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Items           []InvoiceItem `json:"items"`
}

// InvoiceActionKind distinguishes forward transitions from cancellation.
type InvoiceActionKind string

const (
	ActionAdvance InvoiceActionKind = "advance"
	ActionCancel  InvoiceActionKind = "cancel"
)

// InvoiceAction is a button a view may offer for an invoice.
type InvoiceAction struct {
	Kind    InvoiceActionKind `json:"kind"`
	Target  InvoiceStatus     `json:"target"`
	Label   string            `json:"label"`
	Confirm bool              `json:"confirm"`
}

// InvoiceActions returns the actions available for status to an actor with
// role. owner is true when the actor placed the invoice.
// Forward steps are admin-only; cancellation is open to the owner or an admin
// while the invoice is pending.
func InvoiceActions(status InvoiceStatus, role Role, owner bool) []InvoiceAction {
	actions := []InvoiceAction{}
	if role == RoleAdmin {
		if next, ok := status.Next(); ok && status.CanTransitionTo(next) {
			actions = append(actions, InvoiceAction{
				Kind:    ActionAdvance,
				Target:  next,
				Label:   forwardLabels[next],
				Confirm: true,
			})
		}
	}
	if status == InvoicePending && (role == RoleAdmin || owner) {
		actions = append(actions, InvoiceAction{
			Kind:    ActionCancel,
			Target:  InvoiceCancelled,
			Label:   cancelLabel,
			Confirm: true,
		})
	}
	return actions
}

// InvoiceUpdate is the partial body of PUT /invoices/{id}.
type InvoiceUpdate struct {
	Status  *InvoiceStatus `json:"status,omitempty"`
	Notes   *string        `json:"notes,omitempty"`
	Address *string        `json:"address,omitempty"`
}

// CheckoutLine is a (product type, quantity) pair submitted at checkout.
type CheckoutLine struct {
	ProductTypeID int `json:"productTypeId"`
	Quantity      int `json:"quantity"`
}

// NewInvoice is the body of POST /invoices.
type NewInvoice struct {
	Address   string         `json:"address"`
	VoucherID *int           `json:"voucherId,omitempty"`
	Notes     string         `json:"notes,omitempty"`
	Items     []CheckoutLine `json:"items"`
}

// PaymentIntent is the answer to POST /invoices: the invoice id and the
// payment processor client secret for the hosted payment element.
type PaymentIntent struct {
	InvoiceID    int    `json:"invoiceId"`
	ClientSecret string `json:"clientSecret"`
}

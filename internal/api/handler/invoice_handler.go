package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

type InvoiceHandler struct {
	invoices *service.InvoiceService
}

func NewInvoiceHandler(invoices *service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices}
}

type advanceRequest struct {
	Status  domain.InvoiceStatus `json:"status"`
	Confirm bool                 `json:"confirm"`
}

// ListMine lists the signed-in customer's invoices.
//
// @Summary      My invoices
// @Tags         invoices
// @Produce      json
// @Success      200  {array}  domain.Invoice
// @Router       /invoices [get]
func (h *InvoiceHandler) ListMine(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	list, err := h.invoices.ListMine(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

// ListAll is the admin listing with an optional status filter.
//
// @Summary      All invoices
// @Tags         admin
// @Produce      json
// @Param        status  query  int  false  "1..5, omit for all"
// @Success      200  {array}  domain.Invoice
// @Router       /admin/invoices [get]
func (h *InvoiceHandler) ListAll(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	status, err := queryInt(c, "status")
	if err != nil {
		return err
	}
	list, err := h.invoices.ListAll(c.Request().Context(), sess, domain.InvoiceStatus(status))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

// Get returns an invoice with the actions the viewer may take.
//
// @Summary      Invoice detail
// @Tags         invoices
// @Produce      json
// @Param        id   path      int  true  "Invoice id"
// @Success      200  {object}  service.InvoiceView
// @Failure      404  {object}  map[string]string
// @Router       /invoices/{id} [get]
// @Router       /admin/invoices/{id} [get]
func (h *InvoiceHandler) Get(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	view, err := h.invoices.Get(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, view)
}

// Advance moves an invoice one step forward after confirmation.
//
// @Summary      Advance invoice
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path  int             true  "Invoice id"
// @Param        body  body  advanceRequest  true  "Target status and confirmation"
// @Success      200  {object}  service.InvoiceView
// @Failure      409  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /admin/invoices/{id}/advance [post]
func (h *InvoiceHandler) Advance(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req advanceRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.invoices.Advance(c.Request().Context(), sess, id, req.Status, req.Confirm)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, view)
}

// Cancel cancels a pending invoice with a reason.
//
// @Summary      Cancel invoice
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        id    path  int           true  "Invoice id"
// @Param        body  body  forms.Cancel  true  "Reason"
// @Success      200  {object}  service.InvoiceView
// @Failure      409  {object}  map[string]string
// @Router       /invoices/{id}/cancel [post]
// @Router       /admin/invoices/{id}/cancel [post]
func (h *InvoiceHandler) Cancel(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req forms.Cancel
	if err := bind(c, &req); err != nil {
		return err
	}
	view, err := h.invoices.Cancel(c.Request().Context(), sess, id, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, view)
}

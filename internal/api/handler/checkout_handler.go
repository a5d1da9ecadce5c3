package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

type CheckoutHandler struct {
	checkout *service.CheckoutService
}

func NewCheckoutHandler(checkout *service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

// Begin creates the invoice and returns what the payment element needs.
//
// @Summary      Start checkout
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        body  body      forms.Checkout  true  "Lines to purchase"
// @Success      201   {object}  service.PaymentSession
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /checkout [post]
func (h *CheckoutHandler) Begin(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	var req forms.Checkout
	if err := bind(c, &req); err != nil {
		return err
	}
	ps, err := h.checkout.Begin(c.Request().Context(), sess, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, ps)
}

// UpdateAddress sets the delivery address of a freshly created invoice.
//
// @Summary      Set delivery address
// @Tags         checkout
// @Accept       json
// @Produce      json
// @Param        invoiceId  path  int            true  "Invoice id"
// @Param        body       body  forms.Address  true  "Address"
// @Success      200
// @Router       /checkout/{invoiceId}/address [put]
func (h *CheckoutHandler) UpdateAddress(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "invoiceId")
	if err != nil {
		return err
	}
	var req forms.Address
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.checkout.UpdateAddress(c.Request().Context(), sess, id, req); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}

// Complete is the payment return target. With source=cart the purchased
// lines are removed from the cart.
//
// @Summary      Complete checkout
// @Tags         checkout
// @Produce      json
// @Param        invoiceId  query     int     true   "Invoice id"
// @Param        source     query     string  false  "cart when the checkout started from the cart"
// @Success      200        {object}  domain.Invoice
// @Router       /checkout/success [get]
func (h *CheckoutHandler) Complete(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := queryInt(c, "invoiceId")
	if err != nil {
		return err
	}
	if id == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invoiceId is required")
	}
	inv, err := h.checkout.Complete(c.Request().Context(), sess, id, c.QueryParam("source") == "cart")
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, inv)
}

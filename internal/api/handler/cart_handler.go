package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

type CartHandler struct {
	cart *service.CartService
}

func NewCartHandler(cart *service.CartService) *CartHandler {
	return &CartHandler{cart: cart}
}

type quickAddRequest struct {
	ProductTypeID int `json:"productTypeId"`
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// Get returns the signed-in visitor's cart with its total.
//
// @Summary      Get cart
// @Tags         cart
// @Produce      json
// @Success      200  {object}  service.CartView
// @Failure      401  {object}  map[string]string
// @Router       /cart [get]
func (h *CartHandler) Get(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	view, err := h.cart.Get(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, view)
}

// QuickAdd adds one unit from the shop grid. Guests receive a login prompt
// notification with a 401.
//
// @Summary      Quick add to cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        body  body  quickAddRequest  true  "Variant"
// @Success      200  {object}  service.CartView
// @Failure      401  {object}  map[string]string
// @Router       /cart/quick-add [post]
func (h *CartHandler) QuickAdd(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	var req quickAddRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.cart.QuickAdd(c.Request().Context(), sess, req.ProductTypeID); err != nil {
		return err
	}
	return h.Get(c)
}

// Add adds quantity units of a variant.
//
// @Summary      Add to cart
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        body  body  forms.CartLine  true  "Line"
// @Success      200  {object}  service.CartView
// @Router       /cart/items [post]
func (h *CartHandler) Add(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	var req forms.CartLine
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.cart.Add(c.Request().Context(), sess, req); err != nil {
		return err
	}
	return h.Get(c)
}

// UpdateQuantity sets a line's quantity; zero removes it.
//
// @Summary      Update cart line
// @Tags         cart
// @Accept       json
// @Produce      json
// @Param        productTypeId  path  int              true  "Variant id"
// @Param        body           body  quantityRequest  true  "Quantity"
// @Success      200  {object}  service.CartView
// @Router       /cart/items/{productTypeId} [put]
func (h *CartHandler) UpdateQuantity(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "productTypeId")
	if err != nil {
		return err
	}
	var req quantityRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.cart.UpdateQuantity(c.Request().Context(), sess, id, req.Quantity); err != nil {
		return err
	}
	return h.Get(c)
}

// Remove deletes a cart line.
//
// @Summary      Remove cart line
// @Tags         cart
// @Produce      json
// @Param        productTypeId  path  int  true  "Variant id"
// @Success      200  {object}  service.CartView
// @Router       /cart/items/{productTypeId} [delete]
func (h *CartHandler) Remove(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "productTypeId")
	if err != nil {
		return err
	}
	if err := h.cart.Remove(c.Request().Context(), sess, id); err != nil {
		return err
	}
	return h.Get(c)
}

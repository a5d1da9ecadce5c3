package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

// AccountHandler serves the admin account screens.
type AccountHandler struct {
	accounts *service.AccountService
}

func NewAccountHandler(accounts *service.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// List lists every account.
//
// @Summary      List accounts
// @Tags         admin
// @Produce      json
// @Success      200  {array}  domain.Account
// @Router       /admin/users [get]
func (h *AccountHandler) List(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	list, err := h.accounts.List(c.Request().Context(), sess)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, list)
}

func (h *AccountHandler) Get(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	acc, err := h.accounts.Get(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// Create adds an account.
//
// @Summary      Create account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        body  body      forms.AccountCreate  true  "Account"
// @Success      201   {object}  domain.Account
// @Failure      422   {object}  map[string]string
// @Router       /admin/users [post]
func (h *AccountHandler) Create(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	var req forms.AccountCreate
	if err := bind(c, &req); err != nil {
		return err
	}
	acc, err := h.accounts.Create(c.Request().Context(), sess, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, acc)
}

// Update edits profile fields.
//
// @Summary      Update account
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      int                  true  "Account id"
// @Param        body  body      forms.AccountUpdate  true  "Fields"
// @Success      200   {object}  domain.Account
// @Router       /admin/users/{id} [put]
func (h *AccountHandler) Update(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req forms.AccountUpdate
	if err := bind(c, &req); err != nil {
		return err
	}
	acc, err := h.accounts.Update(c.Request().Context(), sess, id, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// ToggleStatus enables a disabled account and vice versa.
//
// @Summary      Toggle account status
// @Tags         admin
// @Produce      json
// @Param        id   path      int  true  "Account id"
// @Success      200  {object}  domain.Account
// @Router       /admin/users/{id}/status [post]
func (h *AccountHandler) ToggleStatus(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	acc, err := h.accounts.ToggleStatus(c.Request().Context(), sess, id)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

// ChangeRole sets an account's role.
//
// @Summary      Change account role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id    path      int               true  "Account id"
// @Param        body  body      forms.RoleChange  true  "Admin, Manager or User"
// @Success      200   {object}  domain.Account
// @Router       /admin/users/{id}/role [put]
func (h *AccountHandler) ChangeRole(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req forms.RoleChange
	if err := bind(c, &req); err != nil {
		return err
	}
	acc, err := h.accounts.ChangeRole(c.Request().Context(), sess, id, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, acc)
}

func (h *AccountHandler) Delete(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.accounts.Delete(c.Request().Context(), sess, id); err != nil {
		return err
	}
	return respond(c, http.StatusOK, nil)
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/service"
)

type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	User          *domain.Profile `json:"user,omitempty"`
}

// Login signs the visitor in.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forms.Login  true  "Credentials"
// @Success      200   {object}  sessionResponse
// @Failure      401   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	var req forms.Login
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Login(c.Request().Context(), sess, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sessionResponse{Authenticated: true, User: user})
}

// Register creates an account and signs the visitor in.
//
// @Summary      Register
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forms.Register  true  "Registration details"
// @Success      201   {object}  sessionResponse
// @Failure      400   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	var req forms.Register
	if err := bind(c, &req); err != nil {
		return err
	}
	user, err := h.auth.Register(c.Request().Context(), sess, req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, sessionResponse{Authenticated: true, User: user})
}

// Logout signs the visitor out. It succeeds for signed-out visitors too.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	h.auth.Logout(c.Request().Context(), sess)
	return respond(c, http.StatusOK, sessionResponse{})
}

// Me reports the current session.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  sessionResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	sess, err := sessionOf(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sessionResponse{Authenticated: sess.IsAuthenticated(), User: sess.User()})
}

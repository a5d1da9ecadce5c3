package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/api/handler"
	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/forms"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/service"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error         string                `json:"error"`
	Fields        forms.Errors          `json:"fields,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their appropriate HTTP status codes.
//   - Answers invalid forms with 422 and per-field messages.
//   - Passes backend 4xx answers through with the backend's message.
//   - Logs unexpected errors internally without leaking details to the client.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := errorResponse{Notifications: handler.Drain(c)}
		var code int
		code, resp.Error = resolveError(err, log, c)

		var fe forms.Errors
		if errors.As(err, &fe) {
			resp.Fields = fe
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, resp)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, 429 from the limiter).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var fe forms.Errors
	if errors.As(err, &fe) {
		return http.StatusUnprocessableEntity, "validation failed"
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "resource not found"
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, service.ErrNoActiveConversation):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrConfirmationRequired),
		errors.Is(err, domain.ErrCancelReasonRequired),
		errors.Is(err, domain.ErrVariantEditUnsupported),
		errors.Is(err, domain.ErrEmptyCheckout):
		return http.StatusUnprocessableEntity, err.Error()
	}

	var be *domain.BackendError
	if errors.As(err, &be) {
		msg := be.Message
		if msg == "" {
			msg = http.StatusText(be.StatusCode)
		}
		if be.StatusCode >= 400 && be.StatusCode < 500 {
			return be.StatusCode, msg
		}
		log.Warn().
			Err(err).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("backend failure")
		return http.StatusBadGateway, msg
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/guard"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

// Guard admits the request when the guard of kind k allows the session and
// redirects with 302 otherwise. It must run after Session.
func Guard(k guard.Kind) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := SessionFrom(c)
			if sess == nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "session middleware not installed")
			}
			d := guard.Evaluate(k, sess.Snapshot())
			if !d.Allow {
				metrics.GuardRedirectsTotal.WithLabelValues(d.Redirect).Inc()
				return c.Redirect(http.StatusFound, d.Redirect)
			}
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/session"
)

const (
	sessionKey   = "session"
	collectorKey = "notifications"
)

// SessionOptions configures the visitor cookie.
type SessionOptions struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
}

// Session resolves the visitor's session from the cookie, minting a new
// visitor id when there is none, and attaches a notification collector to
// the request context.
func Session(m *session.Manager, opts SessionOptions) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if ck, err := c.Cookie(opts.CookieName); err == nil && validVisitorID(ck.Value) {
				sid = ck.Value
			}
			if sid == "" {
				sid = uuid.NewString()
				c.SetCookie(&http.Cookie{
					Name:     opts.CookieName,
					Value:    sid,
					Path:     "/",
					MaxAge:   int(opts.MaxAge.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx, col := notify.WithCollector(c.Request().Context())
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(sessionKey, m.Open(ctx, sid))
			c.Set(collectorKey, col)
			return next(c)
		}
	}
}

func validVisitorID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// SessionFrom returns the session attached by Session, or nil.
func SessionFrom(c echo.Context) *session.Session {
	s, _ := c.Get(sessionKey).(*session.Session)
	return s
}

// CollectorFrom returns the request's notification collector, or nil.
func CollectorFrom(c echo.Context) *notify.Collector {
	col, _ := c.Get(collectorKey).(*notify.Collector)
	return col
}

package middleware

import (
	"net/http"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/marketplace/storefront/internal/pkg/metrics"
)

// Tier is a rate limit policy.
type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

// Rate limit tiers.
var (
	// Strict applies to login and registration.
	Strict = Tier{Name: "strict", Limit: rate.Limit(2), Burst: 5}
	// General applies to everything else that needs throttling.
	General = Tier{Name: "general", Limit: rate.Limit(10), Burst: 20}
)

const (
	maxVisitors = 10000
	visitorIdle = 3 * time.Minute
)

const tooManyRequests = "Bạn thao tác quá nhanh, vui lòng thử lại sau"

// RateLimit throttles requests per client IP under tier t. Idle clients are
// forgotten after a few minutes.
func RateLimit(t Tier) echo.MiddlewareFunc {
	visitors := expirable.NewLRU[string, *rate.Limiter](maxVisitors, nil, visitorIdle)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ip:" + c.RealIP() + ":" + t.Name
			limiter, ok := visitors.Get(key)
			if !ok {
				limiter = rate.NewLimiter(t.Limit, t.Burst)
			}
			// Re-adding refreshes the idle timer.
			visitors.Add(key, limiter)

			if !limiter.Allow() {
				metrics.RateLimitedTotal.WithLabelValues(t.Name).Inc()
				return echo.NewHTTPError(http.StatusTooManyRequests, tooManyRequests)
			}
			return next(c)
		}
	}
}

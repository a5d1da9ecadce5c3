// Package metrics defines and registers all custom Prometheus metrics for the
// storefront. It is the single source of truth for metric names, labels, and
// help strings. Metrics register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "storefront"

// ── Upstream (marketplace backend) ────────────────────────────────────────────

// UpstreamRequestsTotal counts calls to the backend REST API.
// Labels:
//   - method: HTTP method
//   - status: response status code, "network" when no response arrived,
//     or "build" when the request could not be constructed
var UpstreamRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "Total number of backend API calls, by method and outcome.",
	},
	[]string{"method", "status"},
)

// UpstreamRequestDuration measures backend call latency.
var UpstreamRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Duration of backend API calls.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method"},
)

// UpstreamAuthFailuresTotal counts 401/403 answers by diagnosed reason
// ("missing_token", "expired_token", "malformed_token", "insufficient_permission",
// "rejected_token").
var UpstreamAuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_auth_failures_total",
		Help:      "Total number of backend authentication failures, by diagnosed reason.",
	},
	[]string{"reason"},
)

// ── Server-state cache ────────────────────────────────────────────────────────

// CacheRequestsTotal counts cache reads.
// Labels:
//   - resource: cache key resource (e.g. "products", "cart")
//   - result: "hit", "stale" (served while refreshing), "miss" or "refresh"
var CacheRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_requests_total",
		Help:      "Total number of server-state cache reads, by resource and result.",
	},
	[]string{"resource", "result"},
)

// CacheInvalidationsTotal counts entries dropped by mutation invalidation.
var CacheInvalidationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_invalidations_total",
		Help:      "Total number of cache entries invalidated, by resource.",
	},
	[]string{"resource"},
)

// MutationsTotal counts pessimistic writes.
// Labels:
//   - kind: mutation kind (e.g. "category.update")
//   - result: "ok" or "error"
var MutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mutations_total",
		Help:      "Total number of mutations, by kind and result.",
	},
	[]string{"kind", "result"},
)

// ── Chat widget ───────────────────────────────────────────────────────────────

// PollTicksTotal counts polling ticks.
// Labels:
//   - feed: "conversations" or "messages"
//   - result: "ok" or "error"
var PollTicksTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_ticks_total",
		Help:      "Total number of polling ticks, by feed and result.",
	},
	[]string{"feed", "result"},
)

// ChatSubscriptions tracks the number of mounted chat widgets.
var ChatSubscriptions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "chat_subscriptions",
		Help:      "Current number of open chat widget connections.",
	},
)

// ── Sessions ──────────────────────────────────────────────────────────────────

// SessionEventsTotal counts session lifecycle events ("login", "logout",
// "hydrate", "hydrate_degraded", "corrupt_profile").
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session lifecycle events, by event.",
	},
	[]string{"event"},
)

// ── HTTP ──────────────────────────────────────────────────────────────────────

// RateLimitedTotal counts requests rejected by the per-client throttle.
var RateLimitedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Total number of requests rejected with 429, by tier.",
	},
	[]string{"tier"},
)

// GuardRedirectsTotal counts navigations turned away by a route guard.
var GuardRedirectsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_redirects_total",
		Help:      "Total number of guard redirects, by target.",
	},
	[]string{"target"},
)

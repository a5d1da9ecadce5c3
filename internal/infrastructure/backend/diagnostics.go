package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

const maxLoggedBody = 2048

func (c *Client) logRequest(req *http.Request, payload any) {
	ev := c.log.Debug().Str("method", req.Method).Str("url", req.URL.String())
	if payload != nil {
		ev = ev.Interface("payload", redact(payload))
	}
	ev.Msg("backend request")
}

func (c *Client) logResponse(req *http.Request, status int, body []byte) {
	if e := c.log.Debug(); e.Enabled() {
		e.Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status", status).
			Str("payload", truncate(body)).
			Msg("backend response")
	}
}

// logFailure reports a non-2xx answer. Authentication failures carry a
// diagnosed reason and a remediation hint.
func (c *Client) logFailure(req *http.Request, be *domain.BackendError) {
	if be.StatusCode == http.StatusUnauthorized || be.StatusCode == http.StatusForbidden {
		reason, hint := diagnoseAuth(be.StatusCode, req.Header.Get("Authorization"), time.Now())
		metrics.UpstreamAuthFailuresTotal.WithLabelValues(reason).Inc()
		c.log.Warn().
			Str("method", req.Method).
			Str("url", req.URL.String()).
			Int("status", be.StatusCode).
			Str("reason", reason).
			Str("hint", hint).
			Str("message", be.Message).
			Msg("backend authentication failure")
		return
	}
	c.log.Warn().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", be.StatusCode).
		Str("message", be.Message).
		Msg("backend request failed")
}

func (c *Client) logNetworkFailure(req *http.Request, err error) {
	c.log.Error().
		Err(err).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("backend unreachable: no response received")
}

func (c *Client) logBuildFailure(r request, err error) {
	c.log.Error().
		Err(err).
		Str("method", r.method).
		Str("path", r.path).
		Msg("backend request could not be constructed")
}

// diagnoseAuth explains a 401/403 from the token that was sent. The token is
// parsed without verification: the storefront does not hold the signing key.
func diagnoseAuth(status int, authorization string, now time.Time) (reason, hint string) {
	token := strings.TrimSpace(strings.TrimPrefix(authorization, "Bearer "))
	if token == "" {
		return "missing_token", "no access token was sent; sign in to continue"
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "malformed_token", "the stored access token is not a valid JWT; sign out and sign in again"
	}

	exp, err := claims.GetExpirationTime()
	if err == nil && exp != nil && exp.Before(now) {
		return "expired_token", fmt.Sprintf("the access token expired at %s; sign in again", exp.UTC().Format(time.RFC3339))
	}

	if status == http.StatusForbidden {
		return "insufficient_permission", "the token is valid but its role is not allowed to call this endpoint"
	}
	return "rejected_token", "the backend rejected a well-formed, unexpired token; it may have been revoked"
}

// redact hides password fields from logged payloads.
func redact(payload any) any {
	b, err := json.Marshal(payload)
	if err != nil {
		return payload
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return payload
	}
	for k := range m {
		if strings.Contains(strings.ToLower(k), "password") {
			m[k] = "***"
		}
	}
	return m
}

func truncate(b []byte) string {
	if len(b) <= maxLoggedBody {
		return string(b)
	}
	return string(b[:maxLoggedBody]) + "…"
}

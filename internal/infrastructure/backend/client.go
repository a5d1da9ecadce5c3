// Package backend is the gateway client for the marketplace REST API. One
// Client exists per visitor session; all of them share a single http.Client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/pkg/metrics"
)

const (
	tracerName     = "github.com/marketplace/storefront/internal/infrastructure/backend"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Client talks to the backend on behalf of one session.
type Client struct {
	http   *http.Client
	base   *url.URL
	tokens ports.TokenSource
	log    zerolog.Logger
	tracer trace.Tracer

	mu      sync.RWMutex
	headers http.Header
}

var _ ports.Gateway = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithTracerProvider replaces the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Client) { c.tracer = tp.Tracer(tracerName) }
}

// NewHTTPClient returns the transport shared by every session's Client.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// New builds a Client rooted at baseURL. tokens is consulted before every
// request; it may be nil.
func New(httpClient *http.Client, baseURL string, tokens ports.TokenSource, log zerolog.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("backend: parse base url: %w", err)
	}
	if httpClient == nil {
		httpClient = NewHTTPClient(0)
	}
	c := &Client{
		http:    httpClient,
		base:    base,
		tokens:  tokens,
		log:     log,
		tracer:  otel.Tracer(tracerName),
		headers: http.Header{"Accept": []string{"application/json"}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetBearer sets the default Authorization header.
func (c *Client) SetBearer(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if token == "" {
		c.headers.Del("Authorization")
		return
	}
	c.headers.Set("Authorization", "Bearer "+token)
}

// ClearBearer removes the default Authorization header.
func (c *Client) ClearBearer() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del("Authorization")
}

func (c *Client) Bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.headers.Get("Authorization")
}

// request describes one backend call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
	// trace is what the diagnostics log for the payload; multipart bodies
	// log their field summary instead of raw bytes.
	trace any
}

func jsonRequest(method, path string, payload any) (request, error) {
	r := request{method: method, path: path}
	if payload == nil {
		return r, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return r, fmt.Errorf("backend: encode %s %s: %w", method, path, err)
	}
	r.body = bytes.NewReader(b)
	r.contentType = "application/json"
	r.trace = payload
	return r, nil
}

// do sends r and decodes a JSON response into out (when non-nil). Every
// failure is logged by the diagnostics and returned unchanged in kind:
// *domain.BackendError for non-2xx answers, transport errors otherwise.
func (c *Client) do(ctx context.Context, r request, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend "+r.method+" "+r.path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	req, err := c.build(ctx, r)
	if err != nil {
		c.logBuildFailure(r, err)
		metrics.UpstreamRequestsTotal.WithLabelValues(r.method, "build").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "request construction failed")
		return err
	}
	span.SetAttributes(
		attribute.String("http.method", r.method),
		attribute.String("http.url", req.URL.String()),
	)
	c.logRequest(req, r.trace)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamRequestDuration.WithLabelValues(r.method).Observe(time.Since(start).Seconds())
	if err != nil {
		c.logNetworkFailure(req, err)
		metrics.UpstreamRequestsTotal.WithLabelValues(r.method, "network").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "no response")
		return fmt.Errorf("backend: %s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequestsTotal.WithLabelValues(r.method, strconv.Itoa(resp.StatusCode)).Inc()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		be := &domain.BackendError{StatusCode: resp.StatusCode, Message: readErrorMessage(resp.Body)}
		c.logFailure(req, be)
		span.SetStatus(codes.Error, be.Error())
		return be
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logNetworkFailure(req, err)
		span.RecordError(err)
		return fmt.Errorf("backend: read %s %s: %w", r.method, r.path, err)
	}
	c.logResponse(req, resp.StatusCode, body)

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		span.RecordError(err)
		return fmt.Errorf("backend: decode %s %s: %w", r.method, r.path, err)
	}
	return nil
}

// build resolves the URL and applies the default headers and the bearer
// token read from durable storage.
func (c *Client) build(ctx context.Context, r request) (*http.Request, error) {
	u, err := c.base.Parse(strings.TrimLeft(r.path, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: resolve %q: %w", r.path, err)
	}
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), r.body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}

	c.mu.RLock()
	for k, v := range c.headers {
		req.Header[k] = append([]string(nil), v...)
	}
	c.mu.RUnlock()

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			c.log.Warn().Err(err).Msg("token source unavailable, using default headers")
		} else if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Title   string `json:"title"`
}

func readErrorMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(b) == 0 {
		return ""
	}
	var eb errorBody
	if json.Unmarshal(b, &eb) == nil {
		switch {
		case eb.Message != "":
			return eb.Message
		case eb.Error != "":
			return eb.Error
		case eb.Title != "":
			return eb.Title
		}
		return ""
	}
	var s string
	if json.Unmarshal(b, &s) == nil {
		return s
	}
	text := strings.TrimSpace(string(b))
	if strings.HasPrefix(text, "<") {
		return ""
	}
	return text
}

// isNotFound reports whether err is a 404 from the backend.
func isNotFound(err error) bool {
	var be *domain.BackendError
	return errors.As(err, &be) && be.StatusCode == http.StatusNotFound
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}

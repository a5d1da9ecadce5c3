package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/guard"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/session"
)

type nopGateway struct {
	ports.Gateway
}

func (nopGateway) SetBearer(string) {}
func (nopGateway) ClearBearer()     {}
func (nopGateway) Bearer() string   { return "" }

func newManager(t *testing.T) *session.Manager {
	t.Helper()
	sealer, err := session.NewSealer("test")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	m, err := session.NewManager(session.NewMemoryStorage(), sealer, func(ports.TokenSource) ports.Gateway {
		return nopGateway{}
	}, 16, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

var testCookie = SessionOptions{CookieName: "sf_sid", MaxAge: time.Hour}

func TestSession_MintsCookieForNewVisitor(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var sess *session.Session
	h := Session(newManager(t), testCookie)(func(c echo.Context) error {
		sess = SessionFrom(c)
		if CollectorFrom(c) == nil {
			t.Fatalf("collector not attached")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != "sf_sid" || !cookies[0].HttpOnly {
		t.Fatalf("expected an HttpOnly visitor cookie, got %+v", cookies)
	}
	if sess == nil || sess.ID() != cookies[0].Value {
		t.Fatalf("session id does not match cookie")
	}
}

func TestSession_ReusesKnownVisitor(t *testing.T) {
	e := echo.New()
	m := newManager(t)
	mw := Session(m, testCookie)

	first := m.Open(context.Background(), "2f1d0c5e-8b0e-4d4c-9d55-7a0b0c1d2e3f")
	first.SetToken(context.Background(), "tok")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sf_sid", Value: first.ID()})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := mw(func(c echo.Context) error {
		if SessionFrom(c) != first {
			t.Fatalf("expected the existing session")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("expected no new cookie")
	}
}

func TestSession_RejectsForgedID(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sf_sid", Value: "../../admin"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := Session(newManager(t), testCookie)(func(c echo.Context) error {
		if SessionFrom(c).ID() == "../../admin" {
			t.Fatalf("forged id accepted")
		}
		return nil
	})
	_ = h(c)
}

func runGuard(t *testing.T, k guard.Kind, sess *session.Session) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/invoices", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(sessionKey, sess)

	h := Guard(k)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestGuard_Redirects(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	guest := m.Open(ctx, "guest")
	customer := m.Open(ctx, "customer")
	customer.SetToken(ctx, "tok")
	customer.SetUser(ctx, &domain.Profile{ID: 1, Role: domain.RoleUser})
	admin := m.Open(ctx, "admin")
	admin.SetToken(ctx, "tok")
	admin.SetUser(ctx, &domain.Profile{ID: 2, Role: domain.RoleAdmin})

	tests := []struct {
		name     string
		kind     guard.Kind
		sess     *session.Session
		code     int
		location string
	}{
		{"guest on admin", guard.AdminOnly, guest, http.StatusFound, "/login"},
		{"customer on admin", guard.AdminOnly, customer, http.StatusFound, "/"},
		{"admin on admin", guard.AdminOnly, admin, http.StatusOK, ""},
		{"guest on account", guard.Authenticated, guest, http.StatusFound, "/login"},
		{"customer on account", guard.Authenticated, customer, http.StatusOK, ""},
		{"admin on login", guard.PublicOnly, admin, http.StatusFound, "/admin"},
		{"customer on login", guard.PublicOnly, customer, http.StatusFound, "/"},
		{"guest on login", guard.PublicOnly, guest, http.StatusOK, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := runGuard(t, tc.kind, tc.sess)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if got := rec.Header().Get(echo.HeaderLocation); got != tc.location {
				t.Fatalf("expected location %q, got %q", tc.location, got)
			}
		})
	}
}

func TestRateLimit_StrictTier(t *testing.T) {
	e := echo.New()
	mw := RateLimit(Tier{Name: "test", Limit: 0, Burst: 2})
	h := mw(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	call := func(ip string) error {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		return h(e.NewContext(req, httptest.NewRecorder()))
	}

	for i := 0; i < 2; i++ {
		if err := call("10.0.0.1"); err != nil {
			t.Fatalf("request %d rejected: %v", i, err)
		}
	}
	err := call("10.0.0.1")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if err := call("10.0.0.2"); err != nil {
		t.Fatalf("other client throttled: %v", err)
	}
}

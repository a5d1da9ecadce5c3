package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/api/handler"
	"github.com/marketplace/storefront/internal/api/middleware"
	"github.com/marketplace/storefront/internal/core/domain"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/service"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/infrastructure/backend"
	"github.com/marketplace/storefront/internal/pkg/media"
	"github.com/marketplace/storefront/internal/testutil/fakebackend"
)

type testServer struct {
	*httptest.Server
	fb *fakebackend.Backend
}

func newTestServer(t *testing.T, ready map[string]handler.Pinger) *testServer {
	t.Helper()
	log := zerolog.Nop()
	fb := fakebackend.New(t)

	sealer, err := session.NewSealer("test")
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	manager, err := session.NewManager(session.NewMemoryStorage(), sealer, func(ts ports.TokenSource) ports.Gateway {
		c, err := backend.New(fb.Client(), fb.URL(), ts, log)
		if err != nil {
			t.Fatalf("backend.New: %v", err)
		}
		return c
	}, 64, log)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	cache, err := querycache.New(256, notify.ContextNotifier{}, log)
	if err != nil {
		t.Fatalf("querycache.New: %v", err)
	}
	images := media.NewResolver("demo")
	notifier := notify.ContextNotifier{}

	e := NewRouter(manager, Services{
		Auth:     service.NewAuthService(notifier, log),
		Catalog:  service.NewCatalogService(cache, images, log),
		Cart:     service.NewCartService(cache, notifier, images, log),
		Checkout: service.NewCheckoutService(cache, "pk_test", log),
		Invoices: service.NewInvoiceService(cache, log),
		Accounts: service.NewAccountService(cache, log),
		Chat:     service.NewChatService(cache, 50*time.Millisecond, 20*time.Millisecond, log),
	}, Options{
		Cookie:   middleware.SessionOptions{CookieName: "sf_sid", MaxAge: time.Hour},
		Client:   handler.ClientConfig{PublishableKey: "pk_test", ImageCloudName: "demo"},
		Ready:    ready,
		Registry: prometheus.NewRegistry(),
	}, log)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, fb: fb}
}

// browser is a cookie-keeping client that does not follow redirects.
func (s *testServer) browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

type apiResponse struct {
	Data          json.RawMessage       `json:"data"`
	Error         string                `json:"error"`
	Fields        map[string]string     `json:"fields"`
	Notifications []notify.Notification `json:"notifications"`
}

func call(t *testing.T, c *http.Client, method, url string, payload any) (*http.Response, apiResponse) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return send(t, c, req)
}

func send(t *testing.T, c *http.Client, req *http.Request) (*http.Response, apiResponse) {
	t.Helper()
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL, err)
	}
	defer resp.Body.Close()
	var out apiResponse
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(raw, &out); err != nil {
			t.Fatalf("decode %s: %v", raw, err)
		}
	}
	return resp, out
}

func (s *testServer) login(t *testing.T, c *http.Client, email string) {
	t.Helper()
	resp, body := call(t, c, http.MethodPost, s.URL+"/api/auth/login", map[string]string{"email": email, "password": "secret1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: expected 200, got %d (%s)", resp.StatusCode, body.Error)
	}
}

func TestRouter_HealthProbes(t *testing.T) {
	s := newTestServer(t, map[string]handler.Pinger{
		"sessions": handler.PingFunc(func(context.Context) error { return nil }),
		"redis":    handler.PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	c := s.browser(t)

	resp, _ := call(t, c, http.MethodGet, s.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("liveness: expected 200, got %d", resp.StatusCode)
	}
	resp, _ = call(t, c, http.MethodGet, s.URL+"/health/ready", nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readiness: expected 503, got %d", resp.StatusCode)
	}
}

func TestRouter_GuardsRedirect(t *testing.T) {
	s := newTestServer(t, nil)
	s.fb.AddAccount("Khách", "user@example.com", "secret1", domain.RoleUser)
	c := s.browser(t)

	resp, _ := call(t, c, http.MethodGet, s.URL+"/api/admin/invoices", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/login" {
		t.Fatalf("guest on admin: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}

	s.login(t, c, "user@example.com")

	resp, _ = call(t, c, http.MethodGet, s.URL+"/api/admin/invoices", nil)
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("customer on admin: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	resp, _ = call(t, c, http.MethodPost, s.URL+"/api/auth/login", map[string]string{"email": "user@example.com", "password": "secret1"})
	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/" {
		t.Fatalf("signed-in on login: got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestRouter_LoginFlowCarriesNotifications(t *testing.T) {
	s := newTestServer(t, nil)
	s.fb.AddAccount("Khách", "user@example.com", "secret1", domain.RoleUser)
	c := s.browser(t)

	resp, body := call(t, c, http.MethodPost, s.URL+"/api/auth/login", map[string]string{"email": "user@example.com", "password": "wrong"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if len(body.Notifications) != 1 || body.Notifications[0].Message != "Email hoặc mật khẩu không đúng" {
		t.Fatalf("expected backend message as a notification, got %+v", body.Notifications)
	}

	resp, body = call(t, c, http.MethodPost, s.URL+"/api/auth/login", map[string]string{"email": "not-an-email", "password": "x"})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if _, ok := body.Fields["email"]; !ok {
		t.Fatalf("expected an email field error, got %+v", body.Fields)
	}

	resp, body = call(t, c, http.MethodPost, s.URL+"/api/auth/login", map[string]string{"email": "user@example.com", "password": "secret1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(body.Notifications) == 0 || body.Notifications[0].Level != notify.LevelSuccess {
		t.Fatalf("expected a success notification, got %+v", body.Notifications)
	}

	resp, body = call(t, c, http.MethodGet, s.URL+"/api/cart", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cart: expected 200, got %d (%s)", resp.StatusCode, body.Error)
	}
	var cart service.CartView
	if err := json.Unmarshal(body.Data, &cart); err != nil {
		t.Fatal(err)
	}
	if cart.Total != 0 {
		t.Fatalf("expected an empty cart, got %+v", cart)
	}

	call(t, c, http.MethodPost, s.URL+"/api/auth/logout", nil)
	resp, _ = call(t, c, http.MethodGet, s.URL+"/api/cart", nil)
	if resp.StatusCode != http.StatusFound {
		t.Fatalf("cart after logout: expected redirect, got %d", resp.StatusCode)
	}
}

func TestRouter_GuestQuickAdd(t *testing.T) {
	s := newTestServer(t, nil)
	c := s.browser(t)

	resp, body := call(t, c, http.MethodPost, s.URL+"/api/cart/quick-add", map[string]int{"productTypeId": 7})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if len(body.Notifications) != 1 || body.Notifications[0].Action == nil || body.Notifications[0].Action.Href != "/login" {
		t.Fatalf("expected a login action, got %+v", body.Notifications)
	}
	if calls := s.fb.Calls("POST /cart"); calls != 0 {
		t.Fatalf("expected no backend call, got %d", calls)
	}
}

func multipartRequest(t *testing.T, url string, fields map[string]string, file string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if file != "" {
		fw, err := w.CreateFormFile(file, "cover.jpg")
		if err != nil {
			t.Fatal(err)
		}
		_, _ = fw.Write([]byte{0xff, 0xd8, 0xff})
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	req, err := http.NewRequest(http.MethodPost, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestRouter_AdminCategoryUpload(t *testing.T) {
	s := newTestServer(t, nil)
	s.fb.AddAccount("Quản trị", "admin@example.com", "secret1", domain.RoleAdmin)
	c := s.browser(t)
	s.login(t, c, "admin@example.com")

	fields := map[string]string{"name": "Sách", "status": "1"}
	resp, body := send(t, c, multipartRequest(t, s.URL+"/api/admin/categories", fields, ""))
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without image, got %d", resp.StatusCode)
	}
	if _, ok := body.Fields["image"]; !ok {
		t.Fatalf("expected an image field error, got %+v", body.Fields)
	}
	if calls := s.fb.Calls("POST /categories"); calls != 0 {
		t.Fatalf("expected no backend call, got %d", calls)
	}

	resp, body = send(t, c, multipartRequest(t, s.URL+"/api/admin/categories", fields, "image"))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", resp.StatusCode, body.Error)
	}
	var cat domain.Category
	if err := json.Unmarshal(body.Data, &cat); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(cat.Image, "https://res.cloudinary.com/demo/") {
		t.Fatalf("expected a CDN image url, got %q", cat.Image)
	}
}

func TestRouter_AdvanceNeedsConfirmation(t *testing.T) {
	s := newTestServer(t, nil)
	admin := s.fb.AddAccount("Quản trị", "admin@example.com", "secret1", domain.RoleAdmin)
	inv := s.fb.AddInvoice(domain.Invoice{UserID: admin.ID, Status: domain.InvoiceConfirmed, Total: 1000})
	c := s.browser(t)
	s.login(t, c, "admin@example.com")

	target := s.URL + "/api/admin/invoices/" + strconv.Itoa(inv.ID) + "/advance"
	resp, _ := call(t, c, http.MethodPost, target, map[string]any{"status": int(domain.InvoiceShipping)})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without confirmation, got %d", resp.StatusCode)
	}
	resp, body := call(t, c, http.MethodPost, target, map[string]any{"status": int(domain.InvoiceShipping), "confirm": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.StatusCode, body.Error)
	}
	if got := s.fb.Invoice(inv.ID).Status; got != domain.InvoiceShipping {
		t.Fatalf("expected shipping, got %d", got)
	}
}

func TestRouter_ConfigAndMetrics(t *testing.T) {
	s := newTestServer(t, nil)
	c := s.browser(t)

	resp, body := call(t, c, http.MethodGet, s.URL+"/api/config", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var cfg handler.ClientConfig
	if err := json.Unmarshal(body.Data, &cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.PublishableKey != "pk_test" || cfg.ImageCloudName != "demo" {
		t.Fatalf("unexpected config %+v", cfg)
	}

	res, err := c.Get(s.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer res.Body.Close()
	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode != http.StatusOK || !strings.Contains(string(raw), "requests_total") {
		t.Fatalf("expected request metrics, got %d", res.StatusCode)
	}
}

func TestRouter_ChatWidgetSocket(t *testing.T) {
	s := newTestServer(t, nil)
	s.fb.AddAccount("Hỗ trợ", "support@example.com", "secret1", domain.RoleAdmin)
	s.fb.AddAccount("Khách", "user@example.com", "secret1", domain.RoleUser)
	c := s.browser(t)
	s.login(t, c, "user@example.com")

	u, _ := url.Parse(s.URL)
	header := http.Header{}
	for _, ck := range c.Jar.Cookies(u) {
		header.Add("Cookie", ck.String())
	}
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/api/chat/ws", header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	next := func(typ string, ok func(service.ChatFrame) bool) service.ChatFrame {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
		for {
			var f service.ChatFrame
			if err := conn.ReadJSON(&f); err != nil {
				t.Fatalf("waiting for %q: %v", typ, err)
			}
			if f.Type == typ && (ok == nil || ok(f)) {
				return f
			}
		}
	}

	next(service.FrameConversations, nil)

	if err := conn.WriteJSON(map[string]any{"type": "send", "content": "xin chào"}); err != nil {
		t.Fatal(err)
	}
	if f := next(service.FrameError, nil); f.Error == "" {
		t.Fatalf("expected an error for send without a conversation")
	}

	if err := conn.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatal(err)
	}
	next(service.FrameConversations, func(f service.ChatFrame) bool { return len(f.Conversations) == 1 })

	if err := conn.WriteJSON(map[string]any{"type": "send", "content": "xin chào"}); err != nil {
		t.Fatal(err)
	}
	next(service.FrameMessages, func(f service.ChatFrame) bool {
		return len(f.Messages) == 1 && f.Messages[0].Content == "xin chào"
	})

	call(t, c, http.MethodPost, s.URL+"/api/auth/logout", nil)
	next(service.FrameClosed, nil)
}

func TestRouter_ChatWidgetRequiresSignIn(t *testing.T) {
	s := newTestServer(t, nil)
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http")+"/api/chat/ws", nil)
	if err == nil {
		t.Fatalf("expected the handshake to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusFound {
		t.Fatalf("expected a redirect to login, got %+v", resp)
	}
}

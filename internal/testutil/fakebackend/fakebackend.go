// Package fakebackend is an in-memory stand-in for the marketplace REST API,
// served from an httptest.Server. It implements the endpoints the storefront
// consumes with enough fidelity for end-to-end tests: real JWTs, bcrypt
// passwords, role checks and the invoice status rules.
package fakebackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/marketplace/storefront/internal/core/domain"
)

const signingKey = "fake-backend-secret"

type account struct {
	domain.Account
	hash []byte
}

// Backend is one fake marketplace API.
type Backend struct {
	server *httptest.Server
	mux    *http.ServeMux

	mu            sync.Mutex
	nextID        int
	accounts      map[int]*account
	categories    map[int]*domain.Category
	products      map[int]*domain.Product
	carts         map[int][]domain.CartItem
	invoices      map[int]*domain.Invoice
	conversations map[int]*domain.Conversation
	messages      map[int][]domain.Message
	calls         map[string]int
	failures      map[string]failure
	now           func() time.Time
}

type failure struct {
	status  int
	message string
}

// New starts a fake backend that is closed with the test.
func New(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		mux:           http.NewServeMux(),
		nextID:        100,
		accounts:      map[int]*account{},
		categories:    map[int]*domain.Category{},
		products:      map[int]*domain.Product{},
		carts:         map[int][]domain.CartItem{},
		invoices:      map[int]*domain.Invoice{},
		conversations: map[int]*domain.Conversation{},
		messages:      map[int][]domain.Message{},
		calls:         map[string]int{},
		failures:      map[string]failure{},
		now:           time.Now,
	}
	b.routes()
	b.server = httptest.NewServer(b.mux)
	t.Cleanup(b.server.Close)
	return b
}

// URL is the API base URL, ending in /api.
func (b *Backend) URL() string { return b.server.URL + "/api" }

// Client is the server's HTTP client.
func (b *Backend) Client() *http.Client { return b.server.Client() }

// Calls returns how often route (e.g. "POST /cart") was hit.
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// Fail makes route answer status with message until cleared with status 0.
func (b *Backend) Fail(route string, status int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if status == 0 {
		delete(b.failures, route)
		return
	}
	b.failures[route] = failure{status: status, message: message}
}

func (b *Backend) id() int {
	b.nextID++
	return b.nextID
}

// AddAccount seeds an account with a password.
func (b *Backend) AddAccount(fullName, email, password string, role domain.Role) domain.Account {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := &account{
		Account: domain.Account{ID: b.id(), FullName: fullName, Email: email, Role: role, Status: domain.AccountEnabled},
		hash:    hash,
	}
	b.accounts[a.ID] = a
	return a.Account
}

// Token issues a valid access token for an existing account.
func (b *Backend) Token(accountID int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.issue(b.accounts[accountID])
}

func (b *Backend) AddCategory(c domain.Category) domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = b.id()
	b.categories[c.ID] = &c
	return c
}

// AddProduct seeds a product; variants get ids when they have none.
func (b *Backend) AddProduct(p domain.Product) domain.Product {
	b.mu.Lock()
	defer b.mu.Unlock()
	p.ID = b.id()
	for i := range p.ProductTypes {
		if p.ProductTypes[i].ID == 0 {
			p.ProductTypes[i].ID = b.id()
		}
	}
	b.products[p.ID] = &p
	return p
}

func (b *Backend) AddInvoice(inv domain.Invoice) domain.Invoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	inv.ID = b.id()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = b.now()
	}
	b.invoices[inv.ID] = &inv
	return inv
}

func (b *Backend) Invoice(id int) domain.Invoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.invoices[id]
}

func (b *Backend) Category(id int) domain.Category {
	b.mu.Lock()
	defer b.mu.Unlock()
	return *b.categories[id]
}

func (b *Backend) Cart(userID int) []domain.CartItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.CartItem(nil), b.carts[userID]...)
}

// SetCart replaces a user's cart.
func (b *Backend) SetCart(userID int, items []domain.CartItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.carts[userID] = append([]domain.CartItem(nil), items...)
}

// AddMessage appends a message as if sent by senderID.
func (b *Backend) AddMessage(conversationID, senderID int, content string) domain.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := domain.Message{ID: b.id(), ConversationID: conversationID, SenderID: senderID, Content: content, CreatedAt: b.now()}
	b.messages[conversationID] = append(b.messages[conversationID], m)
	return m
}

func (b *Backend) issue(a *account) string {
	claims := jwt.MapClaims{
		"sub":  strconv.Itoa(a.ID),
		"role": a.Role.String(),
		"exp":  b.now().Add(time.Hour).Unix(),
	}
	t, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	if err != nil {
		panic(err)
	}
	return t
}

// handle registers pattern under /api, counting calls and applying injected
// failures.
func (b *Backend) handle(pattern string, h func(w http.ResponseWriter, r *http.Request)) {
	method, path, _ := strings.Cut(pattern, " ")
	b.mux.HandleFunc(method+" /api"+path, func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[pattern]++
		f, failing := b.failures[pattern]
		b.mu.Unlock()
		if failing {
			writeError(w, f.status, f.message)
			return
		}
		h(w, r)
	})
}

// caller resolves the bearer token. A nil account means no or bad token.
func (b *Backend) caller(r *http.Request) *account {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if raw == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(signingKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil
	}
	sub, _ := claims.GetSubject()
	id, err := strconv.Atoi(sub)
	if err != nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts[id]
}

func (b *Backend) authed(w http.ResponseWriter, r *http.Request) (*account, bool) {
	a := b.caller(r)
	if a == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	return a, true
}

func (b *Backend) admin(w http.ResponseWriter, r *http.Request) (*account, bool) {
	a, ok := b.authed(w, r)
	if !ok {
		return nil, false
	}
	if a.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "Forbidden")
		return nil, false
	}
	return a, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid id %q", r.PathValue("id")))
		return 0, false
	}
	return id, true
}

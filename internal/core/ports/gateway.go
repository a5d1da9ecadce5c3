package ports

import (
	"context"

	"github.com/marketplace/storefront/internal/core/domain"
)

// TokenSource yields the access token to attach to an outgoing backend call.
// An empty token means the call goes out unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// BearerHolder is the default-header side of the gateway client that the
// session store keeps in sync with its token.
type BearerHolder interface {
	SetBearer(token string)
	ClearBearer()
	// Bearer returns the current default Authorization header value, or ""
	// when none is set.
	Bearer() string
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthGateway interface {
	Login(ctx context.Context, in LoginInput) (*domain.AuthResult, error)
	Register(ctx context.Context, in RegisterInput) (*domain.AuthResult, error)
}

// CategoryInput is a multipart category write. A nil Image leaves the stored
// image untouched on update.
type CategoryInput struct {
	Name        string
	Description string
	Status      domain.ActiveStatus
	Image       *domain.Upload
}

// VariantInput is one ProductType created together with its product.
type VariantInput struct {
	Name     string
	Price    int64
	Quantity int
	Image    *domain.Upload
}

// ProductInput is a multipart product write. Variants are only sent on
// creation.
type ProductInput struct {
	Name        string
	Description string
	CategoryID  int
	Status      domain.ActiveStatus
	Images      []domain.Upload
	Variants    []VariantInput
}

// ProductFilter narrows GET /products.
type ProductFilter struct {
	CategoryID int
	Search     string
}

type CatalogGateway interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id int) (*domain.Category, error)
	CreateCategory(ctx context.Context, in CategoryInput) (*domain.Category, error)
	UpdateCategory(ctx context.Context, id int, in CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int) error

	ListProducts(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int, in ProductInput) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int) error
}

type CartGateway interface {
	GetCart(ctx context.Context) (*domain.Cart, error)
	AddToCart(ctx context.Context, productTypeID, quantity int) error
	UpdateCartItem(ctx context.Context, productTypeID, quantity int) error
	RemoveCartItem(ctx context.Context, productTypeID int) error
}

type InvoiceGateway interface {
	// ListMyInvoices returns the caller's own invoices.
	ListMyInvoices(ctx context.Context) ([]domain.Invoice, error)
	// ListInvoices returns every invoice, optionally filtered by status (0 = all).
	ListInvoices(ctx context.Context, status domain.InvoiceStatus) ([]domain.Invoice, error)
	GetInvoice(ctx context.Context, id int) (*domain.Invoice, error)
	CreateInvoice(ctx context.Context, in domain.NewInvoice) (*domain.PaymentIntent, error)
	UpdateInvoice(ctx context.Context, id int, in domain.InvoiceUpdate) (*domain.Invoice, error)
}

// AccountInput is the body of POST/PUT /users. Zero-valued fields are not sent.
type AccountInput struct {
	FullName string                `json:"fullName,omitempty"`
	Email    string                `json:"email,omitempty"`
	Phone    string                `json:"phone,omitempty"`
	Address  string                `json:"address,omitempty"`
	Password string                `json:"password,omitempty"`
	Role     string                `json:"role,omitempty"`
	Status   *domain.AccountStatus `json:"status,omitempty"`
}

type AccountGateway interface {
	ListUsers(ctx context.Context) ([]domain.Account, error)
	CreateUser(ctx context.Context, in AccountInput) (*domain.Account, error)
	UpdateUser(ctx context.Context, id int, in AccountInput) (*domain.Account, error)
	DeleteUser(ctx context.Context, id int) error
}

type ChatGateway interface {
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	CreateConversation(ctx context.Context) (*domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID int) ([]domain.Message, error)
	SendMessage(ctx context.Context, conversationID int, content string) (*domain.Message, error)
}

// Gateway is everything the storefront asks of the marketplace backend,
// bound to one session's credentials.
type Gateway interface {
	BearerHolder
	AuthGateway
	CatalogGateway
	CartGateway
	InvoiceGateway
	AccountGateway
	ChatGateway
}

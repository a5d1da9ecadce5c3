package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/marketplace/storefront/docs"
	"github.com/marketplace/storefront/internal/api/handler"
	"github.com/marketplace/storefront/internal/api/middleware"
	"github.com/marketplace/storefront/internal/core/guard"
	"github.com/marketplace/storefront/internal/core/service"
	"github.com/marketplace/storefront/internal/core/session"
)

// Services are the feature services the routes delegate to.
type Services struct {
	Auth     *service.AuthService
	Catalog  *service.CatalogService
	Cart     *service.CartService
	Checkout *service.CheckoutService
	Invoices *service.InvoiceService
	Accounts *service.AccountService
	Chat     *service.ChatService
}

// Options tunes the router.
type Options struct {
	Cookie middleware.SessionOptions
	Client handler.ClientConfig
	// Ready lists the dependencies checked by /health/ready.
	Ready map[string]handler.Pinger
	// Registry receives the HTTP metrics and backs /metrics. Nil uses the
	// default Prometheus registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(sessions *session.Manager, svc Services, opts Options, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	var (
		registerer prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer   prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if opts.Registry != nil {
		registerer, gatherer = opts.Registry, opts.Registry
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "storefront",
		Registerer: registerer,
		Skipper:    skipProbes,
	}))

	// --- Probes, metrics and docs (no session) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(opts.Ready)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(svc.Auth)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog)
	cartHandler := handler.NewCartHandler(svc.Cart)
	checkoutHandler := handler.NewCheckoutHandler(svc.Checkout)
	invoiceHandler := handler.NewInvoiceHandler(svc.Invoices)
	accountHandler := handler.NewAccountHandler(svc.Accounts)
	chatHandler := handler.NewChatHandler(svc.Chat, log)
	configHandler := handler.NewConfigHandler(opts.Client)

	signedIn := middleware.Guard(guard.Authenticated)
	publicOnly := middleware.Guard(guard.PublicOnly)
	strict := middleware.RateLimit(middleware.Strict)

	api := e.Group("/api", middleware.Session(sessions, opts.Cookie))
	api.GET("/config", configHandler.Get)

	// --- Auth routes ---
	api.POST("/auth/login", authHandler.Login, strict, publicOnly)
	api.POST("/auth/register", authHandler.Register, strict, publicOnly)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)

	// --- Shop ---
	api.GET("/categories", catalogHandler.ListCategories(true))
	api.GET("/products", catalogHandler.ListProducts(true))
	api.GET("/products/:id", catalogHandler.GetProduct(true))

	// Quick add stays open to guests so they get the login prompt.
	api.POST("/cart/quick-add", cartHandler.QuickAdd)
	cart := api.Group("/cart", signedIn)
	cart.GET("", cartHandler.Get)
	cart.POST("/items", cartHandler.Add)
	cart.PUT("/items/:productTypeId", cartHandler.UpdateQuantity)
	cart.DELETE("/items/:productTypeId", cartHandler.Remove)

	checkout := api.Group("/checkout", signedIn)
	checkout.POST("", checkoutHandler.Begin)
	checkout.PUT("/:invoiceId/address", checkoutHandler.UpdateAddress)
	checkout.GET("/success", checkoutHandler.Complete)

	invoices := api.Group("/invoices", signedIn)
	invoices.GET("", invoiceHandler.ListMine)
	invoices.GET("/:id", invoiceHandler.Get)
	invoices.POST("/:id/cancel", invoiceHandler.Cancel)

	chat := api.Group("/chat", signedIn)
	chat.GET("/conversations", chatHandler.ListConversations)
	chat.POST("/conversations", chatHandler.StartConversation)
	chat.GET("/conversations/:id/messages", chatHandler.ListMessages)
	chat.POST("/conversations/:id/messages", chatHandler.SendMessage)
	chat.GET("/ws", chatHandler.Widget)

	// --- Admin console ---
	admin := api.Group("/admin", middleware.Guard(guard.AdminOnly))

	admin.GET("/categories", catalogHandler.ListCategories(false))
	admin.GET("/categories/:id", catalogHandler.GetCategory)
	admin.POST("/categories", catalogHandler.CreateCategory)
	admin.PUT("/categories/:id", catalogHandler.UpdateCategory)
	admin.DELETE("/categories/:id", catalogHandler.DeleteCategory)

	admin.GET("/products", catalogHandler.ListProducts(false))
	admin.GET("/products/:id", catalogHandler.GetProduct(false))
	admin.POST("/products", catalogHandler.CreateProduct)
	admin.PUT("/products/:id", catalogHandler.UpdateProduct)
	admin.DELETE("/products/:id", catalogHandler.DeleteProduct)

	admin.GET("/invoices", invoiceHandler.ListAll)
	admin.GET("/invoices/:id", invoiceHandler.Get)
	admin.POST("/invoices/:id/advance", invoiceHandler.Advance)
	admin.POST("/invoices/:id/cancel", invoiceHandler.Cancel)

	admin.GET("/users", accountHandler.List)
	admin.GET("/users/:id", accountHandler.Get)
	admin.POST("/users", accountHandler.Create)
	admin.PUT("/users/:id", accountHandler.Update)
	admin.POST("/users/:id/status", accountHandler.ToggleStatus)
	admin.PUT("/users/:id/role", accountHandler.ChangeRole)
	admin.DELETE("/users/:id", accountHandler.Delete)

	return e
}

func skipProbes(c echo.Context) bool {
	p := c.Request().URL.Path
	return strings.HasPrefix(p, "/health") || p == "/metrics" || strings.HasPrefix(p, "/swagger")
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		Skipper:      skipProbes,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Error != nil {
				ev = log.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}

// Command storefront serves the marketplace shop and admin console.
//
// @title        Marketplace Storefront API
// @version      1.0
// @description  Backend-for-frontend serving the marketplace shop and admin console.
// @BasePath     /api
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/marketplace/storefront/internal/api"
	"github.com/marketplace/storefront/internal/api/handler"
	"github.com/marketplace/storefront/internal/api/middleware"
	"github.com/marketplace/storefront/internal/core/notify"
	"github.com/marketplace/storefront/internal/core/ports"
	"github.com/marketplace/storefront/internal/core/querycache"
	"github.com/marketplace/storefront/internal/core/service"
	"github.com/marketplace/storefront/internal/core/session"
	"github.com/marketplace/storefront/internal/infrastructure/backend"
	mongostore "github.com/marketplace/storefront/internal/infrastructure/db/mongo"
	redisstore "github.com/marketplace/storefront/internal/infrastructure/db/redis"
	"github.com/marketplace/storefront/internal/pkg/config"
	"github.com/marketplace/storefront/internal/pkg/media"
	"github.com/marketplace/storefront/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "storefront",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	storage, closeStorage, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStorage()

	sealer, err := session.NewSealer(cfg.Session.Secret)
	if err != nil {
		return err
	}

	httpClient := backend.NewHTTPClient(cfg.Backend.Timeout)
	// Reject a malformed base URL at startup rather than on first use.
	if _, err := backend.New(httpClient, cfg.Backend.BaseURL, nil, log); err != nil {
		return err
	}
	gatewayLog := logger.Component("backend")
	manager, err := session.NewManager(storage, sealer, func(ts ports.TokenSource) ports.Gateway {
		c, _ := backend.New(httpClient, cfg.Backend.BaseURL, ts, gatewayLog)
		return c
	}, cfg.Session.MaxLive, logger.Component("session"))
	if err != nil {
		return err
	}

	notifier := notify.ContextNotifier{}
	cache, err := querycache.New(cfg.Cache.Size, notifier, logger.Component("cache"),
		querycache.WithFetchTimeout(cfg.Backend.Timeout))
	if err != nil {
		return err
	}
	images := media.NewResolver(cfg.Images.CloudName)
	svcLog := logger.Component("service")

	e := api.NewRouter(manager, api.Services{
		Auth:     service.NewAuthService(notifier, svcLog),
		Catalog:  service.NewCatalogService(cache, images, svcLog),
		Cart:     service.NewCartService(cache, notifier, images, svcLog),
		Checkout: service.NewCheckoutService(cache, cfg.Payment.PublishableKey, svcLog),
		Invoices: service.NewInvoiceService(cache, svcLog),
		Accounts: service.NewAccountService(cache, svcLog),
		Chat:     service.NewChatService(cache, cfg.Chat.ConversationPoll, cfg.Chat.MessagePoll, logger.Component("chat")),
	}, api.Options{
		Cookie: middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			Secure:     cfg.Session.CookieSecure,
			MaxAge:     cfg.Session.TTL,
		},
		Client: handler.ClientConfig{
			PublishableKey: cfg.Payment.PublishableKey,
			ImageCloudName: cfg.Images.CloudName,
		},
		Ready: map[string]handler.Pinger{"sessions": manager},
	}, logger.Component("http"))

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Session.Store).Str("backend", cfg.Backend.BaseURL).Msg("storefront listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// openStorage connects the durable session store selected by SESSION_STORE.
func openStorage(ctx context.Context, cfg *config.Config) (session.Storage, func(), error) {
	switch cfg.Session.Store {
	case "redis":
		client, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewSessionStorage(client, cfg.Session.TTL), func() { _ = client.Close() }, nil
	case "mongo":
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, nil, err
		}
		store := mongostore.NewSessionStorage(db, cfg.Session.TTL)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil
	case "memory":
		return session.NewMemoryStorage(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}

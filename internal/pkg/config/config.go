package config

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Backend BackendConfig
	Payment PaymentConfig
	Images  ImageConfig
	Session SessionConfig
	Cache   CacheConfig
	Chat    ChatConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type BackendConfig struct {
	BaseURL string        `env:"API_BASE_URL,     default=http://localhost:5000/api"`
	Timeout time.Duration `env:"UPSTREAM_TIMEOUT, default=15s"`
}

type PaymentConfig struct {
	PublishableKey string `env:"PAYMENT_PUBLISHABLE_KEY, default=pk_test_local"`
}

type ImageConfig struct {
	CloudName string `env:"IMAGE_CDN_CLOUD_NAME, default=demo"`
}

type SessionConfig struct {
	Store        string        `env:"SESSION_STORE,  default=redis"`
	Secret       string        `env:"SESSION_SECRET, default=dev-session-secret-change-me"`
	CookieName   string        `env:"COOKIE_NAME,    default=sf_sid"`
	CookieSecure bool          `env:"COOKIE_SECURE,  default=false"`
	MaxLive      int           `env:"SESSION_LIVE_MAX, default=10000"`
	TTL          time.Duration `env:"SESSION_TTL,    default=720h"`
}

type CacheConfig struct {
	Size int `env:"CACHE_SIZE, default=2048"`
}

type ChatConfig struct {
	ConversationPoll time.Duration `env:"CHAT_CONVERSATION_POLL, default=10s"`
	MessagePoll      time.Duration `env:"CHAT_MESSAGE_POLL,      default=3s"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=storefront"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

// Load reads configuration from environment variables using go-envconfig.
// A .env file in the working directory, when present, is loaded first and
// never overrides variables that are already set.
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := FromLookuper(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// FromLookuper builds a Config from an arbitrary variable source.
func FromLookuper(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	switch cfg.Session.Store {
	case "redis", "mongo", "memory":
	default:
		return nil, fmt.Errorf("SESSION_STORE must be redis, mongo or memory, got %q", cfg.Session.Store)
	}
	return &cfg, nil
}

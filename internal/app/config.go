package app

import (
	"os"
	"slices"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/fish-storefront/internal/storage/redis"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Catalog sources.
const (
	CatalogEmbedded = "embedded"
	CatalogPostgres = "postgres"
)

const defaultAddr = "0.0.0.0:8080"

// Config is the storefront configuration. It is read from STORE_-prefixed
// environment variables, flags and config.yaml.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"HTTP listen address"`
	ImageBaseURL string `default:"" usage:"Base URL for item images (e.g. https://cdn.example.com)" flag:"image-base-url"`
	Storage      StorageConfig
	Catalog      CatalogConfig
	Messaging    MessagingConfig
	Checkout     CheckoutConfig
	Cart         CartConfig
	Shop         ShopConfig
	Session      SessionConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// StorageConfig selects where session state lives.
type StorageConfig struct {
	Backend     string        `default:"memory" usage:"Session storage backend: memory, redis or postgres"`
	KeyPrefix   string        `default:"fish" usage:"Prefix of every stored key" flag:"key-prefix"`
	TTL         time.Duration `default:"720h" usage:"Lifetime of idle session data (redis and memory)"`
	DatabaseURL string        `usage:"PostgreSQL connection URL (STORE_STORAGE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Redis       redis.Config
}

// CatalogConfig selects where items are loaded from.
type CatalogConfig struct {
	Source string `default:"embedded" usage:"Catalog source: embedded or postgres"`
}

// MessagingConfig configures the order deep link.
type MessagingConfig struct {
	Host      string `default:"wa.me" usage:"Messaging deep link host"`
	Recipient string `default:"9629864883" usage:"Shop phone number receiving orders"`
}

// CheckoutConfig controls the checkout snapshot.
type CheckoutConfig struct {
	SnapshotTTL time.Duration `default:"24h" usage:"How long a checkout snapshot stays valid" flag:"snapshot-ttl"`
}

// CartConfig controls open cart views.
type CartConfig struct {
	PollInterval time.Duration `default:"1s" usage:"Cart stream refresh interval" flag:"poll-interval"`
}

// ShopConfig describes the physical shop.
type ShopConfig struct {
	Timezone string `default:"Asia/Kolkata" usage:"Timezone of the opening hours"`
}

// SessionConfig controls the session cookie.
type SessionConfig struct {
	Cookie string        `default:"fish_session" usage:"Session cookie name"`
	MaxAge time.Duration `default:"720h" usage:"Session cookie lifetime"`
	Secure bool          `default:"false" usage:"Send the session cookie over HTTPS only" flag:"session-secure"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"300" usage:"Max requests per window, 0 disables"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow the session cookie cross-origin; needs explicit origins" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults honours the PORT and DATABASE_URL variables set by
// hosting platforms.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.Storage.DatabaseURL == "" {
		c.Storage.DatabaseURL = getenv("DATABASE_URL")
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

// Validate rejects combinations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendRedis, BackendPostgres:
	default:
		return errors.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Catalog.Source {
	case CatalogEmbedded, CatalogPostgres:
	default:
		return errors.Errorf("unknown catalog source %q", c.Catalog.Source)
	}
	if c.needsPostgres() && c.Storage.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_STORAGE_DATABASE_URL or DATABASE_URL")
	}
	if c.Messaging.Recipient == "" {
		return errors.New("messaging recipient is required")
	}
	if c.CORS.AllowCredentials && c.CORS.anyOrigin() {
		return errors.New("CORS credentials need explicit origins, not \"*\"")
	}
	return nil
}

func (c CORSConfig) anyOrigin() bool {
	return len(c.Origins) == 0 || slices.Contains(c.Origins, "*")
}

func (c *Config) needsPostgres() bool {
	return c.Storage.Backend == BackendPostgres || c.Catalog.Source == CatalogPostgres
}

package config

import (
	"fmt"
	"time"

	"github.com/utafrali/storefront/internal/catalog"
	"github.com/utafrali/storefront/internal/storage"
	"github.com/utafrali/storefront/internal/view"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort           int `env:"SHOP_HTTP_PORT" envDefault:"8010"`
	RequestTimeoutSecs int `env:"SHOP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
	CatalogCacheMaxAge int `env:"CATALOG_CACHE_MAX_AGE_SECONDS" envDefault:"300"`

	// Per-client rate limit on state mutations; 0 RPS disables it.
	MutationRateLimitRPS   int `env:"SHOP_RATE_LIMIT_RPS" envDefault:"10"`
	MutationRateLimitBurst int `env:"SHOP_RATE_LIMIT_BURST" envDefault:"20"`

	// Shop state
	Namespace      string `env:"SHOP_NAMESPACE" envDefault:"default"`
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`
	StateTTLHours  int    `env:"SHOP_STATE_TTL_HOURS" envDefault:"0"`

	// Redis
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Catalog
	CatalogSource string `env:"CATALOG_SOURCE" envDefault:"static"`
	CatalogFile   string `env:"CATALOG_FILE" envDefault:""`
	CatalogURL    string `env:"CATALOG_URL" envDefault:""`

	// PostgreSQL (CATALOG_SOURCE=postgres)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"storefront_secret"`
	PostgresDB   string `env:"CATALOG_DB_NAME" envDefault:"storefront"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"4"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINUTES" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINUTES" envDefault:"30"`

	// Slow query logging
	SlowQueryThresholdMs int `env:"LOG_SLOW_QUERY_MS" envDefault:"500"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Pricing
	FreeShippingThreshold int64  `env:"SHIPPING_FREE_THRESHOLD_CENTS" envDefault:"10000"`
	ShippingFlatFee       int64  `env:"SHIPPING_FLAT_FEE_CENTS" envDefault:"1500"`
	Currency              string `env:"CURRENCY" envDefault:"BRL"`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pprof debug endpoints (IP allowlist in CIDR notation)
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"10.0.0.0/8,172.16.0.0/12,192.168.0.0/16,127.0.0.0/8,::1/128" envSeparator:","`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.RequestTimeoutSecs <= 0 {
		return fmt.Errorf("SHOP_REQUEST_TIMEOUT_SECONDS must be positive, got %d", c.RequestTimeoutSecs)
	}
	if c.MutationRateLimitRPS < 0 {
		return fmt.Errorf("SHOP_RATE_LIMIT_RPS must not be negative, got %d", c.MutationRateLimitRPS)
	}
	if c.MutationRateLimitRPS > 0 && c.MutationRateLimitBurst < 1 {
		return fmt.Errorf("SHOP_RATE_LIMIT_BURST must be at least 1 when rate limiting is on, got %d", c.MutationRateLimitBurst)
	}
	if c.Namespace == "" {
		return fmt.Errorf("SHOP_NAMESPACE is required")
	}

	switch storage.Backend(c.StorageBackend) {
	case storage.BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when STORAGE_BACKEND=redis")
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StateTTLHours < 0 {
		return fmt.Errorf("SHOP_STATE_TTL_HOURS must not be negative, got %d", c.StateTTLHours)
	}

	switch catalog.Source(c.CatalogSource) {
	case catalog.SourceStatic:
	case catalog.SourcePostgres:
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when CATALOG_SOURCE=postgres")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when CATALOG_SOURCE=postgres")
		}
	case catalog.SourceRemote:
		if c.CatalogURL == "" {
			return fmt.Errorf("CATALOG_URL is required when CATALOG_SOURCE=remote")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}

	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when EVENTS_ENABLED=true")
	}
	if c.FreeShippingThreshold < 0 || c.ShippingFlatFee < 0 {
		return fmt.Errorf("shipping amounts must not be negative")
	}
	if c.Currency == "" {
		return fmt.Errorf("CURRENCY is required")
	}
	if c.CatalogCacheMaxAge < 0 {
		return fmt.Errorf("CATALOG_CACHE_MAX_AGE_SECONDS must not be negative")
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1.0 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %f", c.OTELSampleRate)
	}
	return nil
}

// ShippingPolicy returns the configured shipping rule.
func (c *Config) ShippingPolicy() view.ShippingPolicy {
	return view.ShippingPolicy{FreeThreshold: c.FreeShippingThreshold, FlatFee: c.ShippingFlatFee}
}

// StateTTL is the expiry applied to persisted shop state; 0 means none.
func (c *Config) StateTTL() time.Duration {
	return time.Duration(c.StateTTLHours) * time.Hour
}

// RequestTimeout bounds every HTTP request.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSecs) * time.Second
}

// PostgresConfig returns the catalog database settings.
func (c *Config) PostgresConfig() database.PostgresConfig {
	return database.PostgresConfig{
		Host:            c.PostgresHost,
		Port:            c.PostgresPort,
		User:            c.PostgresUser,
		Password:        c.PostgresPass,
		DBName:          c.PostgresDB,
		SSLMode:         c.PostgresSSL,
		MaxConns:        c.DBMaxConns,
		MinConns:        c.DBMinConns,
		MaxConnLifetime: time.Duration(c.DBMaxConnLifetimeMins) * time.Minute,
		MaxConnIdleTime: time.Duration(c.DBMaxConnIdleTimeMins) * time.Minute,
	}
}

// RedisConfig returns the state backend settings.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{Addr: c.RedisAddr, Password: c.RedisPass, DB: c.RedisDB}
}

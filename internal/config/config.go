package config

import (
	"fmt"

	pkgconfig "github.com/madukaneranga/Kixora-sub002/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL (inventory, orders)
	PostgresHost     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER" envDefault:"postgres"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	PostgresDB       string `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSLMode  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Connection pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis (cart mirror)
	RedisHost     string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Cart mirror TTL in hours (default: 7 days) and the bound on every
	// mirror call; past the timeout the local cart is authoritative.
	CartTTL             int `env:"CART_TTL_HOURS" envDefault:"168"`
	CartRemoteTimeoutMS int `env:"CART_REMOTE_TIMEOUT_MS" envDefault:"2000"`
	// Idle local sessions are evicted after this many hours; bound carts
	// survive in the mirror.
	CartSessionTTL int `env:"CART_SESSION_TTL_HOURS" envDefault:"24"`

	// Inventory
	LowStockThreshold int `env:"LOW_STOCK_THRESHOLD" envDefault:"5"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Payment gateway
	GatewayEndpoint   string `env:"GATEWAY_ENDPOINT" envDefault:"https://sandbox.gateway.example"`
	GatewayMerchantID string `env:"GATEWAY_MERCHANT_ID,required"`
	GatewaySecret     string `env:"GATEWAY_SECRET,required"`

	// Observability
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
	OTELEnabled       bool     `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint      string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate    float64  `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
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
	if c.CartRemoteTimeoutMS < 1 {
		return fmt.Errorf("invalid cart remote timeout: %dms", c.CartRemoteTimeoutMS)
	}
	if c.CartSessionTTL < 1 {
		return fmt.Errorf("invalid cart session ttl: %dh", c.CartSessionTTL)
	}
	if c.GatewayMerchantID == "" {
		return fmt.Errorf("gateway merchant id is required")
	}
	if c.GatewaySecret == "" {
		return fmt.Errorf("gateway secret is required")
	}
	return nil
}

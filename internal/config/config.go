package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rdGxd/todo-list/internal/auth"
	pkgconfig "github.com/rdGxd/todo-list/pkg/config"
	"github.com/rdGxd/todo-list/pkg/database"
	"github.com/rdGxd/todo-list/pkg/middleware"
	"github.com/rdGxd/todo-list/pkg/tracing"
)

const (
	ServiceName = "todo-api"

	defaultJWTSecret = "change-this-to-a-secure-secret"
	minSecretLength  = 32
)

// Config holds all configuration for the todo API.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Version     string `env:"SERVICE_VERSION" envDefault:"dev"`

	// HTTP server
	HTTPPort        int           `env:"HTTP_PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// JWT. TTLs are in seconds.
	JWTSecret     string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTIssuer     string `env:"JWT_TOKEN_ISSUER" envDefault:"todo-api"`
	JWTAudience   string `env:"JWT_TOKEN_AUDIENCE" envDefault:"todo-web"`
	JWTTTL        int    `env:"JWT_TTL" envDefault:"3600"`
	JWTRefreshTTL int    `env:"JWT_REFRESH_TTL" envDefault:"86400"`

	// Password hashing
	PasswordHasher string `env:"PASSWORD_HASHER" envDefault:"bcrypt"`
	BcryptCost     int    `env:"BCRYPT_COST" envDefault:"12"`

	// PostgreSQL
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"todo"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"todo_secret"`
	PostgresDB         string        `env:"POSTGRES_DB" envDefault:"todo_db"`
	PostgresSSL        string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns         int32         `env:"DB_MAX_CONNS" envDefault:"20"`
	DBMinConns         int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetime  time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime  time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	SlowQueryThreshold int           `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis backs the failed-login throttle. An empty host disables it.
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// Accounts with these emails are given the admin role at registration
	// and promoted at startup if they already exist.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	LoginMaxFailures   int           `env:"LOGIN_MAX_FAILURES" envDefault:"5"`
	LoginLockoutWindow time.Duration `env:"LOGIN_LOCKOUT_WINDOW" envDefault:"15m"`

	// Kafka
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`

	// Rate limiting for the public /auth routes
	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
	// Proxies (CIDRs or addresses) whose forwarding headers identify the
	// client. Empty means the service is the edge and RemoteAddr is used.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load todo config: %w", err)
	}
	return cfg, nil
}

// Validate checks cross-field rules. It runs as part of Load.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}

	// Outside development, require an explicitly set, strong JWT secret.
	if c.Environment != "development" {
		if c.JWTSecret == defaultJWTSecret {
			return fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", c.Environment)
		}
		if len(c.JWTSecret) < minSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters long, got %d", minSecretLength, len(c.JWTSecret))
		}
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWTIssuer == "" || c.JWTAudience == "" {
		return errors.New("JWT_TOKEN_ISSUER and JWT_TOKEN_AUDIENCE must be set")
	}
	if c.JWTTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_TTL and JWT_REFRESH_TTL must be positive, got %d and %d", c.JWTTTL, c.JWTRefreshTTL)
	}
	if c.JWTRefreshTTL <= c.JWTTTL {
		return fmt.Errorf("JWT_REFRESH_TTL (%d) must exceed JWT_TTL (%d)", c.JWTRefreshTTL, c.JWTTTL)
	}

	switch c.PasswordHasher {
	case auth.HasherBcrypt, auth.HasherArgon2id:
	default:
		return fmt.Errorf("unknown PASSWORD_HASHER %q", c.PasswordHasher)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if _, err := middleware.ParseTrustedProxies(c.TrustedProxies); err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be within [0, 1], got %g", c.OTelSampleRate)
	}
	return nil
}

// TokenConfig returns the immutable token settings handed to the codec.
func (c *Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		Secret:     c.JWTSecret,
		Issuer:     c.JWTIssuer,
		Audience:   c.JWTAudience,
		AccessTTL:  time.Duration(c.JWTTTL) * time.Second,
		RefreshTTL: time.Duration(c.JWTRefreshTTL) * time.Second,
	}
}

// PostgresConfig returns the connection and pool settings.
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
		MaxConnLifetime: c.DBMaxConnLifetime,
		MaxConnIdleTime: c.DBMaxConnIdleTime,
	}
}

// RedisEnabled reports whether a Redis host is configured.
func (c *Config) RedisEnabled() bool {
	return c.RedisHost != ""
}

// RedisConfig returns the Redis connection settings.
func (c *Config) RedisConfig() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPassword,
		DB:       c.RedisDB,
	}
}

// TracingConfig returns the OpenTelemetry settings.
func (c *Config) TracingConfig() tracing.Config {
	return tracing.Config{
		ServiceName:    ServiceName,
		ServiceVersion: c.Version,
		Environment:    c.Environment,
		OTLPEndpoint:   c.OTelEndpoint,
		SampleRate:     c.OTelSampleRate,
		Enabled:        c.OTelEnabled,
	}
}

// RateLimitConfig returns the settings of the public-route rate limiter.
// TrustedProxies was checked by Validate.
func (c *Config) RateLimitConfig() middleware.RateLimitConfig {
	proxies, _ := middleware.ParseTrustedProxies(c.TrustedProxies)
	return middleware.RateLimitConfig{
		RPS:            c.RateLimitRPS,
		Burst:          c.RateLimitBurst,
		TrustedProxies: proxies,
	}
}

// SlowQuery returns the slow query log threshold.
func (c *Config) SlowQuery() time.Duration {
	return time.Duration(c.SlowQueryThreshold) * time.Millisecond
}

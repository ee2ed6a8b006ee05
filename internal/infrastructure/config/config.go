package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minSecretLength mirrors the token package's minimum HMAC key size.
const minSecretLength = 32

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWT    JWTConfig
	DB     DBConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Audit  AuditConfig
	Cookie CookieConfig
}

type JWTConfig struct {
	// Secret and ExpirationMs have no defaults: the process refuses to start
	// without them.
	Secret       string `env:"JWT_SECRET,        required"`
	ExpirationMs int64  `env:"JWT_EXPIRATION_MS, required"`
	Issuer       string `env:"JWT_ISSUER,        default=tms"`
}

// TTL returns the configured token lifetime.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpirationMs) * time.Millisecond
}

type DBConfig struct {
	Driver string `env:"DB_DRIVER, default=postgres"`
	DSN    string `env:"DB_DSN,    default=host=localhost user=tms password=tms dbname=tms port=5432 sslmode=disable"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=tms"`
}

type RedisConfig struct {
	Addr           string        `env:"REDIS_ADDR,      default=localhost:6379"`
	Password       string        `env:"REDIS_PASSWORD"`
	DB             int           `env:"REDIS_DB,        default=0"`
	IdempotencyTTL time.Duration `env:"IDEMPOTENCY_TTL, default=24h"`
}

type AuditConfig struct {
	Workers int `env:"AUDIT_WORKERS, default=4"`
}

type CookieConfig struct {
	Secure bool `env:"COOKIE_SECURE, default=true"`
}

// Load reads configuration from environment variables and validates it.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration through l. Tests pass envconfig.MapLookuper.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}

// Validate checks values envconfig cannot express as tags.
func (c *Config) Validate() error {
	var errs []error
	if len(c.JWT.Secret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minSecretLength))
	}
	if c.JWT.ExpirationMs <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRATION_MS must be positive"))
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER %q is not one of postgres, mysql, sqlite", c.DB.Driver))
	}
	if c.Audit.Workers < 0 {
		errs = append(errs, errors.New("AUDIT_WORKERS must not be negative"))
	}
	return errors.Join(errs...)
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Package config loads the server configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"cuecards_backend/internal/platform/db"
	"cuecards_backend/internal/platform/mailer"
	"cuecards_backend/internal/platform/redis"
)

// Config contains server configuration parameters.
type Config struct {
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTP     HTTP          `envPrefix:"HTTP_"`
	JWT      JWT           `envPrefix:"JWT_"`
	Auth     Auth          `envPrefix:"AUTH_"`
	Mail     mailer.Config `envPrefix:"MAIL_"`
	Database db.Config     `envPrefix:"DB_"`
	Redis    redis.Config  `envPrefix:"REDIS_"`
}

// HTTP contains HTTP server parameters.
type HTTP struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:","`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// JWT contains token signing parameters.
type JWT struct {
	Secret     string        `env:"SECRET,required,notEmpty"`
	AccessTTL  time.Duration `env:"ACCESS_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"REFRESH_TTL" envDefault:"720h"`
}

// Auth contains credential lifecycle parameters.
type Auth struct {
	CodeTTL        time.Duration `env:"CODE_TTL" envDefault:"15m"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"2s"`
	SweepInterval  time.Duration `env:"SWEEP_INTERVAL" envDefault:"10m"`
	BcryptCost     int           `env:"BCRYPT_COST" envDefault:"10"`
}

// Validate checks values env tags cannot express.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes")
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return fmt.Errorf("token TTLs must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must not be shorter than JWT_ACCESS_TTL")
	}
	if c.Auth.CodeTTL <= 0 {
		return fmt.Errorf("AUTH_CODE_TTL must be positive")
	}
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		return fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31")
	}
	return nil
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

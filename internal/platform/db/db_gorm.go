// Package db はPostgreSQLへのGORM接続とスキーマ移行を提供します。
package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	authadapters "cuecards_backend/internal/feature/auth/adapters"
	"cuecards_backend/internal/feature/auth/domain/entity"
)

// Config holds the connection settings. It is filled from DB_* variables.
type Config struct {
	User          string        `env:"USER" envDefault:"postgres"`
	Password      string        `env:"PASSWORD"`
	Name          string        `env:"NAME" envDefault:"cuecards"`
	Host          string        `env:"HOST" envDefault:"localhost"`
	Port          string        `env:"PORT" envDefault:"5432"`
	SSLMode       string        `env:"SSLMODE" envDefault:"disable"`
	ConnTimeout   time.Duration `env:"CONNECT_TIMEOUT" envDefault:"60s"`
	RunMigrations bool          `env:"RUN_MIGRATIONS" envDefault:"true"`
}

// Opener opens a gorm connection for a DSN. Tests replace it.
type Opener func(dsn string) (*gorm.DB, error)

const retryInterval = 3 * time.Second

// BuildDSN はPostgreSQLのkey=value形式のDSN文字列を生成します。
func BuildDSN(cfg Config) string {
	parts := []string{
		"host=" + cfg.Host,
		"port=" + cfg.Port,
		"user=" + cfg.User,
		"dbname=" + cfg.Name,
		"sslmode=" + cfg.SSLMode,
		"TimeZone=UTC",
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	return strings.Join(parts, " ")
}

// PostgresOpener opens dsn with the postgres driver. Unique violations are
// translated to gorm.ErrDuplicatedKey.
func PostgresOpener(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
}

// ConnectWithRetry はタイムアウトまでinterval間隔で接続をリトライします。
func ConnectWithRetry(dsn string, timeout, interval time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("DB connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying...", "error", err)
		time.Sleep(interval)
	}
}

// Open connects to PostgreSQL and migrates the schema when enabled.
func Open(cfg Config) (*gorm.DB, error) {
	db, err := ConnectWithRetry(BuildDSN(cfg), cfg.ConnTimeout, retryInterval, PostgresOpener)
	if err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// Migrate creates or updates the auth tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&entity.User{},
		&entity.Credentials{},
		&entity.RevokedToken{},
		&authadapters.ChallengeModel{},
	); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

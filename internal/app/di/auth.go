package di

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"cuecards_backend/internal/config"
	authadapters "cuecards_backend/internal/feature/auth/adapters"
	"cuecards_backend/internal/feature/auth/usecase"
	jwtmw "cuecards_backend/internal/platform/jwt"
)

// Auth bundles the auth components built from one configuration.
type Auth struct {
	Usecase *usecase.AuthUsecase
	Sweeper *usecase.Sweeper
}

// NewAuth wires the auth usecase and the sweeper. rdb may be nil.
func NewAuth(cfg *config.Config, db *gorm.DB, rdb *redis.Client, m usecase.Mailer, logger *slog.Logger) *Auth {
	revocations := NewRevocationRegistry(rdb, db)
	challenges := NewChallengeStore(rdb, db)

	uc := usecase.NewAuthUsecase(usecase.Dependencies{
		Users:       authadapters.NewUserGorm(db),
		Credentials: authadapters.NewCredentialsGorm(db),
		Revocations: revocations,
		Challenges:  usecase.NewChallengeIssuer(challenges, cfg.Auth.CodeTTL),
		Codec:       jwtmw.NewCodec(cfg.JWT.Secret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL),
		Mailer:      m,
		Tx:          authadapters.NewGormTransactor(db),
		Logger:      logger,
	}, usecase.Options{
		RequestTimeout: cfg.Auth.RequestTimeout,
		BcryptCost:     cfg.Auth.BcryptCost,
	})

	return &Auth{
		Usecase: uc,
		Sweeper: usecase.NewSweeper(revocations, challenges, cfg.Auth.SweepInterval, logger),
	}
}

package di

import (
	"context"
	"log/slog"
	"time"

	"cuecards_backend/internal/feature/auth/usecase"
	"cuecards_backend/internal/platform/mailer"
	"cuecards_backend/internal/shared/ratelimiter"
)

// NewMailer returns an SES mailer when SES is configured and a LogMailer otherwise.
func NewMailer(ctx context.Context, cfg mailer.Config, logger *slog.Logger) (usecase.Mailer, error) {
	if !cfg.Enabled() {
		logger.Warn("SES is not configured, codes will only be logged")
		return mailer.NewLogMailer(logger), nil
	}

	client, err := mailer.NewSESClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rate := cfg.RatePerSecond
	if rate <= 0 {
		rate = 1
	}
	limiter := ratelimiter.NewRateLimiter(rate, time.Second, logger)
	m, err := mailer.NewSESMailer(client, cfg.From, limiter, logger)
	if err != nil {
		return nil, err
	}
	return m, nil
}

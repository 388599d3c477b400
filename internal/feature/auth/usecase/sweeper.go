package usecase

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically purges revocation entries whose tokens have expired
// on their own and challenges that can no longer be consumed.
type Sweeper struct {
	revocations RevocationRegistry
	challenges  ChallengeStore
	interval    time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// NewSweeper creates a sweeper. A non-positive interval defaults to 10 minutes.
func NewSweeper(revocations RevocationRegistry, challenges ChallengeStore, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{
		revocations: revocations,
		challenges:  challenges,
		interval:    interval,
		logger:      logger,
		now:         time.Now,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep of both stores and logs the outcome.
// A failure in one store does not skip the other.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.now()
	s.sweep(ctx, "revocation", func() (int64, error) { return s.revocations.SweepExpired(ctx, now) })
	s.sweep(ctx, "challenge", func() (int64, error) { return s.challenges.SweepExpired(ctx, now) })
}

func (s *Sweeper) sweep(ctx context.Context, store string, fn func() (int64, error)) {
	n, err := fn()
	if err != nil {
		s.logger.ErrorContext(ctx, "sweep failed", "store", store, "error", err)
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "sweep finished", "store", store, "removed", n)
	}
}

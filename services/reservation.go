package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"event-tickets/models"
)

// ReservationService closes the read-then-create oversell race with an
// atomic per-category sold counter in Redis. The document store stays
// the source of truth: counters are seeded from it on first use and
// corrected by the admin status-change hooks.
type ReservationService struct {
	redis  *redis.Client
	logger *slog.Logger
}

func NewReservationService(redisClient *redis.Client, logger *slog.Logger) *ReservationService {
	return &ReservationService{redis: redisClient, logger: logger}
}

func soldKey(category string) string {
	return fmt.Sprintf("inventory:sold:%s", category)
}

// Reserve claims qty units of the category atomically. sold is the
// store-computed sold count used to seed the counter the first time a
// category is reserved. When the increment would exceed the limit the
// claim is rolled back and ErrConflict is returned; the caller already
// checked plain availability, so overshoot here means a concurrent
// purchase won the remainder.
func (s *ReservationService) Reserve(ctx context.Context, category string, qty, limit, sold int) error {
	key := soldKey(category)

	if err := s.redis.SetNX(ctx, key, sold, 0).Err(); err != nil {
		return fmt.Errorf("seed sold counter for %q: %w", category, err)
	}

	total, err := s.redis.IncrBy(ctx, key, int64(qty)).Result()
	if err != nil {
		return fmt.Errorf("reserve %d in %q: %w", qty, category, err)
	}

	if total > int64(limit) {
		if err := s.redis.DecrBy(ctx, key, int64(qty)).Err(); err != nil {
			s.logger.Error("failed to roll back reservation",
				"category", category, "qty", qty, "error", err)
		}
		return ErrConflict
	}

	return nil
}

// Release returns qty units to the category, flooring the counter at
// zero in case a hook raced a release past the seed.
func (s *ReservationService) Release(ctx context.Context, category string, qty int) error {
	key := soldKey(category)

	total, err := s.redis.DecrBy(ctx, key, int64(qty)).Result()
	if err != nil {
		return fmt.Errorf("release %d in %q: %w", qty, category, err)
	}
	if total < 0 {
		if err := s.redis.Set(ctx, key, 0, 0).Err(); err != nil {
			return fmt.Errorf("floor sold counter for %q: %w", category, err)
		}
	}
	return nil
}

// Restore re-adds qty units without a limit check. Used when an admin
// reverses a rejection; reversal is permitted and unguarded, matching
// the admin's authority over ticket state.
func (s *ReservationService) Restore(ctx context.Context, category string, qty int) error {
	if err := s.redis.IncrBy(ctx, soldKey(category), int64(qty)).Err(); err != nil {
		return fmt.Errorf("restore %d in %q: %w", qty, category, err)
	}
	return nil
}

// ApplyStatusChange reconciles the counter after an admin transition.
func (s *ReservationService) ApplyStatusChange(ctx context.Context, category string, qty int, from, to string) error {
	wasCounted := countsAgainstLimit(from)
	isCounted := countsAgainstLimit(to)

	switch {
	case wasCounted && !isCounted:
		return s.Release(ctx, category, qty)
	case !wasCounted && isCounted:
		return s.Restore(ctx, category, qty)
	default:
		return nil
	}
}

func countsAgainstLimit(status string) bool {
	return status == models.StatusPending || status == models.StatusVerified
}

package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"event-tickets/models"
)

const eventConfigCacheKey = "event_config:cache"

// EventConfigService owns lookup and caching of the singleton
// configuration record. There is no ambient global: handlers and
// workflows receive this service and call Load per request. The cache
// expires on TTL and is invalidated explicitly when an admin edits the
// record.
type EventConfigService struct {
	store  Store
	redis  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewEventConfigService(store Store, redisClient *redis.Client, ttl time.Duration, logger *slog.Logger) *EventConfigService {
	return &EventConfigService{
		store:  store,
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// Load returns the event configuration, preferring the Redis cache.
// Cache failures degrade to a store read, they never fail the request.
func (s *EventConfigService) Load(ctx context.Context) (*models.EventConfig, error) {
	cached, err := s.redis.Get(ctx, eventConfigCacheKey).Result()
	if err == nil {
		var cfg models.EventConfig
		if jsonErr := json.Unmarshal([]byte(cached), &cfg); jsonErr == nil {
			return &cfg, nil
		}
		// Corrupt cache entry, fall through to the store.
		s.redis.Del(ctx, eventConfigCacheKey)
	} else if err != redis.Nil {
		s.logger.Warn("event config cache read failed", "error", err)
	}

	records, err := s.store.FindRecordsByFilter("event_config", "id != ''", "-created", 1, 0)
	if err != nil || len(records) == 0 {
		return nil, ErrNotConfigured
	}

	cfg, err := EventConfigFromRecord(records[0])
	if err != nil {
		return nil, err
	}

	if raw, jsonErr := json.Marshal(cfg); jsonErr == nil {
		if cacheErr := s.redis.Set(ctx, eventConfigCacheKey, raw, s.ttl).Err(); cacheErr != nil {
			s.logger.Warn("event config cache write failed", "error", cacheErr)
		}
	}

	return cfg, nil
}

// Invalidate drops the cached copy. Called from the admin-update hook.
func (s *EventConfigService) Invalidate(ctx context.Context) {
	if err := s.redis.Del(ctx, eventConfigCacheKey).Err(); err != nil {
		s.logger.Warn("event config cache invalidation failed", "error", err)
	}
}

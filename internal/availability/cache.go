package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"agenda/internal/events"
)

const cachePrefix = "availability:"

// UseRedisCache configures optional Redis caching of computed results.
func (s *Service) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	s.redis = redisClient
	s.cacheTTL = ttl
}

// cacheKey buckets requests by minute so a result is never served for a
// window that started more than a minute earlier.
func cacheKey(req Request, now time.Time) string {
	return fmt.Sprintf("%s%s:%s:%d", cachePrefix, req.ServiceID, req.TeamMemberID, now.Truncate(time.Minute).Unix())
}

func (s *Service) cacheEnabled() bool {
	return s.redis != nil && s.cacheTTL > 0
}

func (s *Service) readCache(ctx context.Context, key string, out any) bool {
	if !s.cacheEnabled() {
		return false
	}
	val, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (s *Service) writeCache(ctx context.Context, key string, val any) {
	if !s.cacheEnabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, key, data, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("availability cache write failed")
	}
}

// InvalidateCache drops every cached availability result.
func (s *Service) InvalidateCache(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}
	iter := s.redis.Scan(ctx, 0, cachePrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan availability cache: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.redis.Del(ctx, keys...).Err()
}

// SubscribeInvalidation clears the cache whenever schedules or appointments change.
func (s *Service) SubscribeInvalidation(bus *events.EventBus) {
	handler := func(e events.Event) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.InvalidateCache(ctx); err != nil {
			return fmt.Errorf("invalidate on %s: %w", e.Type, err)
		}
		s.logger.Debug().Str("event", e.Type).Msg("availability cache invalidated")
		return nil
	}
	bus.Subscribe(events.ScheduleUpdated, handler)
	bus.Subscribe(events.AppointmentChanged, handler)
}

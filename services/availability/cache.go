// File: services/availability/cache.go
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"servana/models"
	"servana/utils"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedResolver fronts a Resolver with a short-lived Redis cache. Cache
// misses and Redis failures fall through to the underlying resolver; a
// reservation must call Invalidate so stale schedules never linger past
// the TTL.
type CachedResolver struct {
	Inner Resolver
	Cache *redis.Client
	TTL   time.Duration
}

func NewCachedResolver(inner Resolver, cache *redis.Client) *CachedResolver {
	return &CachedResolver{Inner: inner, Cache: cache, TTL: utils.AvailabilityCacheTTL}
}

func cacheKey(providerID, date, listingID string) string {
	return fmt.Sprintf("%s%s:%s:%s", utils.AvailabilityCachePrefix, providerID, date, listingID)
}

func (c *CachedResolver) ResolveSlots(ctx context.Context, providerID, date, listingID string) ([]models.SlotCandidate, error) {
	logger := utils.GetLogger()
	key := cacheKey(providerID, date, listingID)

	if data, err := c.Cache.Get(ctx, key).Result(); err == nil {
		var slots []models.SlotCandidate
		if jsonErr := json.Unmarshal([]byte(data), &slots); jsonErr == nil {
			return slots, nil
		}
	}

	slots, err := c.Inner.ResolveSlots(ctx, providerID, date, listingID)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(slots); jsonErr == nil {
		if setErr := c.Cache.Set(ctx, key, data, c.TTL).Err(); setErr != nil {
			logger.Warn("availability: failed to cache resolved slots",
				zap.String("key", key), zap.Error(setErr))
		}
	}
	return slots, nil
}

// Invalidate drops every cached schedule for the provider+date (any listing).
func (c *CachedResolver) Invalidate(ctx context.Context, providerID, date string) {
	pattern := fmt.Sprintf("%s%s:%s:*", utils.AvailabilityCachePrefix, providerID, date)
	keys, err := c.Cache.Keys(ctx, pattern).Result()
	if err != nil {
		utils.GetLogger().Warn("availability: cache invalidation scan failed", zap.Error(err))
		return
	}
	if len(keys) > 0 {
		if err := c.Cache.Del(ctx, keys...).Err(); err != nil {
			utils.GetLogger().Warn("availability: cache invalidation failed", zap.Error(err))
		}
	}
}

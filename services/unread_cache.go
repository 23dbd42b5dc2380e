package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smartcommerce/notification-service/utils"
)

// ErrCacheMiss signals an absent or expired entry.
var ErrCacheMiss = errors.New("cache miss")

// UnreadCountTTL bounds staleness when an invalidation is lost.
const UnreadCountTTL = 5 * time.Minute

// KVCache is the small slice of the cache layer the unread counter needs.
type KVCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// RedisKV backs KVCache with the shared Redis.
type RedisKV struct {
	Client *redis.Client
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, error) {
	val, err := r.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

func (r *RedisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.Client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisKV) Del(ctx context.Context, key string) error {
	return r.Client.Del(ctx, key).Err()
}

// UnreadCountCache is a read-through cache of per-user unread counts. Any
// mutation path that changes a user's read state must call Invalidate; the
// TTL only covers lost invalidations. A cache outage never fails the read
// path, the count is computed from the store instead.
type UnreadCountCache struct {
	Store *NotificationStore
	Cache KVCache // nil disables caching entirely
}

func NewUnreadCountCache(store *NotificationStore, cache KVCache) *UnreadCountCache {
	return &UnreadCountCache{Store: store, Cache: cache}
}

func unreadKey(userID uint) string {
	return fmt.Sprintf("notifications:unread:%d", userID)
}

// Get returns the cached unread count, computing and caching it on a miss.
func (c *UnreadCountCache) Get(ctx context.Context, userID uint) (int64, error) {
	if c.Cache != nil {
		val, err := c.Cache.Get(ctx, unreadKey(userID))
		if err == nil {
			if count, perr := strconv.ParseInt(val, 10, 64); perr == nil {
				return count, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			utils.ErrorLogger.Printf("unread cache read failed for user %d: %v", userID, err)
		}
	}

	count, err := c.Store.CountUnread(userID)
	if err != nil {
		return 0, err
	}

	if c.Cache != nil {
		if err := c.Cache.Set(ctx, unreadKey(userID), strconv.FormatInt(count, 10), UnreadCountTTL); err != nil {
			utils.ErrorLogger.Printf("unread cache write failed for user %d: %v", userID, err)
		}
	}
	return count, nil
}

// Invalidate drops the user's entry immediately, without waiting for TTL.
func (c *UnreadCountCache) Invalidate(ctx context.Context, userID uint) {
	if c.Cache == nil {
		return
	}
	if err := c.Cache.Del(ctx, unreadKey(userID)); err != nil {
		utils.ErrorLogger.Printf("unread cache invalidation failed for user %d: %v", userID, err)
	}
}

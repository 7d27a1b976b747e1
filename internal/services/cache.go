package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/redis"
)

// BookingCache holds derived views: booking list pages per user and
// provider analytics. Lists are keyed by a per-user version so one INCR
// drops every cached page for that user.
type BookingCache struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

type BookingPage struct {
	Items []*model.Booking `json:"items"`
	Total int64            `json:"total"`
}

func NewBookingCache(adapter redis.RedisAdapter, ttl time.Duration) *BookingCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BookingCache{redis: adapter, ttl: ttl}
}

func listVersionKey(userID uuid.UUID) string { return "bookings:list:" + userID.String() + ":v" }
func analyticsKey(userID uuid.UUID) string   { return "analytics:" + userID.String() }

func (c *BookingCache) listKey(userID uuid.UUID, f model.BookingFilter) string {
	var version int64
	if raw, err := c.redis.Get(listVersionKey(userID)); err == nil {
		version, _ = strconv.ParseInt(string(raw), 10, 64)
	}
	statuses := make([]string, len(f.Statuses))
	for i, s := range f.Statuses {
		statuses[i] = string(s)
	}
	return fmt.Sprintf("bookings:list:%s:%d:%s:%d:%d", userID, version, strings.Join(statuses, ","), f.Limit, f.Offset)
}

func (c *BookingCache) GetList(userID uuid.UUID, f model.BookingFilter) (*BookingPage, bool) {
	if c == nil {
		return nil, false
	}
	var page BookingPage
	if !c.get(c.listKey(userID, f), &page) {
		return nil, false
	}
	return &page, true
}

func (c *BookingCache) PutList(userID uuid.UUID, f model.BookingFilter, page *BookingPage) {
	if c == nil {
		return
	}
	c.put(c.listKey(userID, f), page)
}

func (c *BookingCache) GetStats(providerID uuid.UUID) (*model.BookingStats, bool) {
	if c == nil {
		return nil, false
	}
	var stats model.BookingStats
	if !c.get(analyticsKey(providerID), &stats) {
		return nil, false
	}
	return &stats, true
}

func (c *BookingCache) PutStats(stats *model.BookingStats) {
	if c == nil {
		return
	}
	c.put(analyticsKey(stats.ProviderID), stats)
}

// Invalidate drops every cached view for the given users. A failure only
// means a stale view until the TTL runs out, so it is logged, not returned.
func (c *BookingCache) Invalidate(userIDs ...uuid.UUID) {
	if c == nil {
		return
	}
	for _, id := range userIDs {
		if id == uuid.Nil {
			continue
		}
		if _, err := c.redis.Incr(listVersionKey(id), 24*time.Hour); err != nil {
			logger.Warn("booking list cache invalidation failed", "user_id", id, "error", err)
		}
		if err := c.redis.Del(analyticsKey(id)); err != nil {
			logger.Warn("analytics cache invalidation failed", "user_id", id, "error", err)
		}
	}
}

func (c *BookingCache) get(key string, v any) bool {
	raw, err := c.redis.Get(key)
	if err != nil {
		if !errors.Is(err, redis.NilError) {
			logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func (c *BookingCache) put(key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.redis.Set(key, raw, c.ttl); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
}

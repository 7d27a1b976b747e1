package processor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/redis"
)

var (
	ErrAlreadyDelivered   = errors.New("notification already delivered")
	ErrLockAcquireFailed  = errors.New("failed to acquire delivery lock")
	ErrMaxRetriesExceeded = errors.New("maximum delivery retries exceeded")
)

type IdempotencyConfig struct {
	LockTTL      time.Duration
	DeliveredTTL time.Duration
	MaxRetries   int
	KeyPrefix    string
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		LockTTL:      30 * time.Second,
		DeliveredTTL: 24 * time.Hour,
		MaxRetries:   5,
		KeyPrefix:    "push:",
	}
}

// IdempotencyService keeps a stream redelivery from pushing the same
// notification twice within DeliveredTTL. Three keys per notification: a
// short lock while a worker holds it, a retry counter and a long-lived
// delivered marker.
type IdempotencyService struct {
	redis  redis.RedisAdapter
	config IdempotencyConfig
}

func NewIdempotencyService(adapter redis.RedisAdapter, config IdempotencyConfig) *IdempotencyService {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "push:"
	}
	return &IdempotencyService{redis: adapter, config: config}
}

type DeliveryLock struct {
	Key        string
	RetryCount int
	held       bool
}

func (s *IdempotencyService) lockKey(key string) string  { return s.config.KeyPrefix + "lock:" + key }
func (s *IdempotencyService) retryKey(key string) string { return s.config.KeyPrefix + "retry:" + key }
func (s *IdempotencyService) deliveredKey(key string) string {
	return s.config.KeyPrefix + "delivered:" + key
}

func (s *IdempotencyService) Acquire(ctx context.Context, key string) (*DeliveryLock, error) {
	exists, err := s.redis.Exist(s.deliveredKey(key))
	if err != nil {
		// Risk a duplicate push rather than stall delivery.
		logger.Warn("delivered marker check failed", "key", key, "error", err)
	} else if exists > 0 {
		return nil, ErrAlreadyDelivered
	}

	retries, err := s.RetryCount(ctx, key)
	if err != nil {
		logger.Warn("retry counter read failed", "key", key, "error", err)
	}
	if s.config.MaxRetries > 0 && retries >= s.config.MaxRetries {
		return nil, fmt.Errorf("%w: key=%s retries=%d", ErrMaxRetriesExceeded, key, retries)
	}

	acquired, err := s.redis.SetNX(s.lockKey(key), []byte(strconv.FormatInt(time.Now().UnixNano(), 10)), s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockAcquireFailed, err)
	}
	if !acquired {
		return nil, ErrLockAcquireFailed
	}
	return &DeliveryLock{Key: key, RetryCount: retries, held: true}, nil
}

// MarkDelivered sets the delivered marker and clears the lock and counter.
func (s *IdempotencyService) MarkDelivered(ctx context.Context, l *DeliveryLock) error {
	if err := s.redis.Set(s.deliveredKey(l.Key), []byte("1"), s.config.DeliveredTTL); err != nil {
		return fmt.Errorf("failed to set delivered marker: %w", err)
	}
	if err := s.redis.Del(s.lockKey(l.Key), s.retryKey(l.Key)); err != nil {
		logger.Warn("delivery lock cleanup failed", "key", l.Key, "error", err)
	}
	l.held = false
	return nil
}

// MarkFailed bumps the retry counter and frees the lock for the next attempt.
func (s *IdempotencyService) MarkFailed(ctx context.Context, l *DeliveryLock, reason error) {
	n, err := s.redis.Incr(s.retryKey(l.Key), s.config.DeliveredTTL)
	if err != nil {
		logger.Error("retry counter increment failed", "key", l.Key, "error", err)
	}
	s.Release(ctx, l)
	logger.Warn("push failed, will retry", "key", l.Key, "retry_count", n, "max_retries", s.config.MaxRetries, "reason", reason)
}

func (s *IdempotencyService) Release(ctx context.Context, l *DeliveryLock) {
	if l == nil || !l.held {
		return
	}
	if err := s.redis.Del(s.lockKey(l.Key)); err != nil {
		logger.Warn("delivery lock release failed", "key", l.Key, "error", err)
		return
	}
	l.held = false
}

func (s *IdempotencyService) RetryCount(ctx context.Context, key string) (int, error) {
	raw, err := s.redis.Get(s.retryKey(key))
	if err != nil {
		if errors.Is(err, redis.NilError) {
			return 0, nil
		}
		return 0, err
	}
	return strconv.Atoi(string(raw))
}

func (s *IdempotencyService) IsDelivered(ctx context.Context, key string) (bool, error) {
	exists, err := s.redis.Exist(s.deliveredKey(key))
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

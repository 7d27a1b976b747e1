package processor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/healthythako/booking-service/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdempotency(t *testing.T, maxRetries int) *IdempotencyService {
	_, adapter := helpers.SetupTestRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.MaxRetries = maxRetries
	return NewIdempotencyService(adapter, cfg)
}

func TestIdempotency_AcquireAndDeliver(t *testing.T) {
	svc := newTestIdempotency(t, 3)
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "n-1")
	require.NoError(t, err)
	assert.Equal(t, 0, lock.RetryCount)

	_, err = svc.Acquire(ctx, "n-1")
	assert.ErrorIs(t, err, ErrLockAcquireFailed)

	require.NoError(t, svc.MarkDelivered(ctx, lock))

	delivered, err := svc.IsDelivered(ctx, "n-1")
	require.NoError(t, err)
	assert.True(t, delivered)

	_, err = svc.Acquire(ctx, "n-1")
	assert.ErrorIs(t, err, ErrAlreadyDelivered)
}

func TestIdempotency_FailureCountsRetries(t *testing.T) {
	svc := newTestIdempotency(t, 2)
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "n-2")
	require.NoError(t, err)
	svc.MarkFailed(ctx, lock, errors.New("publish failed"))

	count, err := svc.RetryCount(ctx, "n-2")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	lock, err = svc.Acquire(ctx, "n-2")
	require.NoError(t, err)
	assert.Equal(t, 1, lock.RetryCount)
	svc.MarkFailed(ctx, lock, errors.New("publish failed"))

	_, err = svc.Acquire(ctx, "n-2")
	assert.ErrorIs(t, err, ErrMaxRetriesExceeded)
}

func TestIdempotency_ReleaseAllowsReacquire(t *testing.T) {
	svc := newTestIdempotency(t, 3)
	ctx := context.Background()

	lock, err := svc.Acquire(ctx, "n-3")
	require.NoError(t, err)
	svc.Release(ctx, lock)
	svc.Release(ctx, lock)

	again, err := svc.Acquire(ctx, "n-3")
	require.NoError(t, err)
	assert.Equal(t, 0, again.RetryCount)
}

func TestIdempotency_LockExpires(t *testing.T) {
	mr, adapter := helpers.SetupTestRedis(t)
	cfg := DefaultIdempotencyConfig()
	cfg.LockTTL = time.Second
	svc := NewIdempotencyService(adapter, cfg)
	ctx := context.Background()

	_, err := svc.Acquire(ctx, "n-4")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	_, err = svc.Acquire(ctx, "n-4")
	assert.NoError(t, err)
}

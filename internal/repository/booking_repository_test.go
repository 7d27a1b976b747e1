package repository

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingRepository_CreateAndGet(t *testing.T) {
	repo := NewBookingRepository(setupTestDB(t))
	ctx := context.Background()

	client, provider := uuid.New(), uuid.New()
	created := mustCreateBooking(t, repo, newBooking(client, provider, model.BookingPending))
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BookingPending, got.Status)
	assert.Equal(t, client, got.ClientID)
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, 10, got.ScheduledAt.Hour())

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	ok, err := repo.Exists(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBookingRepository_UpdateStatusIfCurrent(t *testing.T) {
	repo := NewBookingRepository(setupTestDB(t))
	ctx := context.Background()
	b := mustCreateBooking(t, repo, newBooking(uuid.New(), uuid.New(), model.BookingPending))

	t.Run("moves from the expected status", func(t *testing.T) {
		notes := "see you there"
		updated, err := repo.UpdateStatusIfCurrent(ctx, b.ID, model.BookingPending, model.BookingConfirmed, &notes)
		require.NoError(t, err)
		assert.Equal(t, model.BookingConfirmed, updated.Status)
		assert.Equal(t, notes, updated.Notes)
		assert.Nil(t, updated.CancelledAt)
	})

	t.Run("stale expected status is a conflict", func(t *testing.T) {
		_, err := repo.UpdateStatusIfCurrent(ctx, b.ID, model.BookingPending, model.BookingCancelled, nil)
		assert.ErrorIs(t, err, ErrConcurrentUpdate)
	})

	t.Run("cancel stamps cancelled_at and keeps notes", func(t *testing.T) {
		updated, err := repo.UpdateStatusIfCurrent(ctx, b.ID, model.BookingConfirmed, model.BookingCancelled, nil)
		require.NoError(t, err)
		assert.NotNil(t, updated.CancelledAt)
		assert.Equal(t, "see you there", updated.Notes)
	})

	t.Run("unknown booking", func(t *testing.T) {
		_, err := repo.UpdateStatusIfCurrent(ctx, uuid.New(), model.BookingPending, model.BookingConfirmed, nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestBookingRepository_UpdateNotes(t *testing.T) {
	repo := NewBookingRepository(setupTestDB(t))
	ctx := context.Background()
	b := mustCreateBooking(t, repo, newBooking(uuid.New(), uuid.New(), model.BookingCompleted))

	updated, err := repo.UpdateNotes(ctx, b.ID, "great session")
	require.NoError(t, err)
	assert.Equal(t, "great session", updated.Notes)
	assert.Equal(t, model.BookingCompleted, updated.Status)

	_, err = repo.UpdateNotes(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBookingRepository_List(t *testing.T) {
	repo := NewBookingRepository(setupTestDB(t))
	ctx := context.Background()
	client, provider := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		mustCreateBooking(t, repo, newBooking(client, provider, model.BookingPending))
	}
	mustCreateBooking(t, repo, newBooking(client, uuid.New(), model.BookingCompleted))
	mustCreateBooking(t, repo, newBooking(uuid.New(), provider, model.BookingCancelled))

	t.Run("by client", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.BookingFilter{ClientID: &client})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, items, 4)
	})

	t.Run("by provider and status", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.BookingFilter{
			ProviderID: &provider,
			Statuses:   []model.BookingStatus{model.BookingCancelled},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, items, 1)
		assert.Equal(t, model.BookingCancelled, items[0].Status)
	})

	t.Run("pagination", func(t *testing.T) {
		items, total, err := repo.List(ctx, model.BookingFilter{ClientID: &client, Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Equal(t, int64(4), total)
		assert.Len(t, items, 2)
	})
}

func TestBookingRepository_ProviderStats(t *testing.T) {
	repo := NewBookingRepository(setupTestDB(t))
	ctx := context.Background()
	provider := uuid.New()

	mustCreateBooking(t, repo, newBooking(uuid.New(), provider, model.BookingPending))
	done := newBooking(uuid.New(), provider, model.BookingCompleted)
	done.Amount = decimal.RequireFromString("1500.50")
	mustCreateBooking(t, repo, done)
	mustCreateBooking(t, repo, newBooking(uuid.New(), provider, model.BookingCompleted))

	stats, err := repo.ProviderStats(ctx, provider)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByStatus[model.BookingCompleted])
	assert.Equal(t, int64(1), stats.ByStatus[model.BookingPending])
	assert.Equal(t, "2500.50", stats.CompletedRevenue.StringFixed(2))

	empty, err := repo.ProviderStats(ctx, uuid.New())
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.True(t, empty.CompletedRevenue.IsZero())
}

func TestReviewRepository(t *testing.T) {
	db := setupTestDB(t)
	bookings := NewBookingRepository(db)
	repo := NewReviewRepository(db)
	ctx := context.Background()

	b := mustCreateBooking(t, bookings, newBooking(uuid.New(), uuid.New(), model.BookingCompleted))
	rv := &model.Review{BookingID: b.ID, ClientID: b.ClientID, ProviderID: b.ProviderID, Rating: 5, Comment: "top"}

	created, err := repo.Create(ctx, rv)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)

	got, err := repo.GetByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)

	_, err = repo.Create(ctx, &model.Review{BookingID: b.ID, ClientID: b.ClientID, ProviderID: b.ProviderID, Rating: 1})
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = repo.GetByBooking(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

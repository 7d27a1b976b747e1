package model

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBookingStatus(t *testing.T) {
	cases := map[string]BookingStatus{
		"pending":     BookingPending,
		"confirmed":   BookingConfirmed,
		"accepted":    BookingConfirmed,
		" Completed ": BookingCompleted,
		"canceled":    BookingCancelled,
		"cancelled":   BookingCancelled,
		"in_progress": BookingInProgress,
	}
	for in, want := range cases {
		got, err := ParseBookingStatus(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseBookingStatus("done")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidateTransition(t *testing.T) {
	allowed := [][2]BookingStatus{
		{BookingPending, BookingConfirmed},
		{BookingPending, BookingCancelled},
		{BookingConfirmed, BookingInProgress},
		{BookingConfirmed, BookingCancelled},
		{BookingInProgress, BookingCompleted},
	}
	for _, tr := range allowed {
		assert.NoError(t, ValidateTransition(tr[0], tr[1]), "%s -> %s", tr[0], tr[1])
	}

	t.Run("pending to completed is rejected", func(t *testing.T) {
		err := ValidateTransition(BookingPending, BookingCompleted)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidTransition)

		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, BookingPending, te.From)
		assert.Equal(t, BookingCompleted, te.To)
	})

	t.Run("terminal states do not move", func(t *testing.T) {
		all := []BookingStatus{BookingPending, BookingConfirmed, BookingInProgress, BookingCompleted, BookingCancelled}
		for _, to := range all {
			assert.ErrorIs(t, ValidateTransition(BookingCompleted, to), ErrInvalidTransition)
			assert.ErrorIs(t, ValidateTransition(BookingCancelled, to), ErrInvalidTransition)
		}
	})

	t.Run("same state is not a transition", func(t *testing.T) {
		assert.Error(t, ValidateTransition(BookingConfirmed, BookingConfirmed))
	})
}

func TestBookingStatus_Cancellable(t *testing.T) {
	assert.True(t, BookingPending.Cancellable())
	assert.True(t, BookingConfirmed.Cancellable())
	assert.False(t, BookingInProgress.Cancellable())
	assert.False(t, BookingCompleted.Cancellable())
	assert.False(t, BookingCancelled.Cancellable())
}

func TestBookingCreateRequest_Validate(t *testing.T) {
	valid := func() BookingCreateRequest {
		return BookingCreateRequest{
			ProviderID:      uuid.New(),
			Date:            "2025-06-01",
			Time:            "10:00",
			DurationMinutes: 60,
			Amount:          decimal.NewFromInt(1000),
		}
	}

	t.Run("defaults are filled", func(t *testing.T) {
		req := valid()
		require.NoError(t, req.Validate())
		assert.Equal(t, ProviderTrainer, req.ProviderType)
		assert.Equal(t, SessionInPerson, req.SessionMode)
		assert.Equal(t, "single", req.PackageType)

		at, err := req.Schedule(time.UTC)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC), at)
	})

	t.Run("scheduled_at wins over date and time", func(t *testing.T) {
		req := valid()
		when := time.Date(2025, 7, 2, 8, 30, 0, 0, time.UTC)
		req.ScheduledAt = &when
		req.Date, req.Time = "", ""
		require.NoError(t, req.Validate())
		at, _ := req.Schedule(time.UTC)
		assert.Equal(t, when, at)
	})

	bad := map[string]func(r *BookingCreateRequest){
		"missing provider": func(r *BookingCreateRequest) { r.ProviderID = uuid.Nil },
		"zero amount":      func(r *BookingCreateRequest) { r.Amount = decimal.Zero },
		"negative amount":  func(r *BookingCreateRequest) { r.Amount = decimal.NewFromInt(-5) },
		"zero duration":    func(r *BookingCreateRequest) { r.DurationMinutes = 0 },
		"bad mode":         func(r *BookingCreateRequest) { r.SessionMode = "teleport" },
		"bad provider":     func(r *BookingCreateRequest) { r.ProviderType = "spa" },
		"bad date":         func(r *BookingCreateRequest) { r.Date = "01/06/2025" },
		"missing time":     func(r *BookingCreateRequest) { r.Time = "" },
	}
	for name, mutate := range bad {
		t.Run(name, func(t *testing.T) {
			req := valid()
			mutate(&req)
			assert.ErrorIs(t, req.Validate(), ErrValidation)
		})
	}
}

func TestBooking_Counterpart(t *testing.T) {
	b := &Booking{ClientID: uuid.New(), ProviderID: uuid.New()}
	assert.Equal(t, b.ProviderID, b.Counterpart(b.ClientID))
	assert.Equal(t, b.ClientID, b.Counterpart(b.ProviderID))
	assert.True(t, b.Party(b.ClientID))
	assert.False(t, b.Party(uuid.New()))
}

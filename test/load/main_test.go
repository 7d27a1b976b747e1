package main

import (
	"testing"

	"github.com/healthythako/booking-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentile(t *testing.T) {
	assert.Zero(t, percentile(nil, 0.5))

	times := []float64{0.01, 0.02, 0.03, 0.04, 0.05, 0.06, 0.07, 0.08, 0.09, 0.10}
	assert.Equal(t, 0.06, percentile(times, 0.50))
	assert.Equal(t, 0.10, percentile(times, 0.99))
	assert.Equal(t, 0.10, percentile(times, 1))
}

func TestStats_Record(t *testing.T) {
	s := &Stats{}
	s.record(201, 0.2)
	s.record(200, 0.1)
	s.record(409, 0.3)
	s.record(0, 0.5)

	assert.EqualValues(t, 2, s.successCount.Load())
	assert.EqualValues(t, 2, s.errorCount.Load())
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0.5}, s.sortedTimes())
}

func TestScenarios(t *testing.T) {
	next, err := newScenario(LoadTestConfig{Scenario: "booking", Providers: 2})
	require.NoError(t, err)
	path, body := next(0)
	assert.Equal(t, "/bookings", path)
	first := body.(model.BookingCreateRequest)
	_, body = next(2)
	third := body.(model.BookingCreateRequest)
	assert.Equal(t, first.ProviderID, third.ProviderID)
	assert.True(t, third.ScheduledAt.After(*first.ScheduledAt))

	next, err = newScenario(LoadTestConfig{Scenario: "checkout"})
	require.NoError(t, err)
	path, body = next(7)
	assert.Equal(t, "/payments/checkout", path)
	req := body.(model.CheckoutRequest)
	require.NoError(t, req.Validate())

	_, err = newScenario(LoadTestConfig{Scenario: "soak"})
	assert.Error(t, err)
}

package processor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/healthythako/booking-service/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobs(t *testing.T) {
	var runs int32
	s, err := NewScheduler(Job{
		Name: "tick",
		Spec: "@every 1s",
		Run: func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.Entries())

	s.Start()
	defer s.Stop()

	helpers.AssertEventually(t, 3*time.Second, func() bool {
		return atomic.LoadInt32(&runs) > 0
	}, "job never ran")
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	_, err := NewScheduler(Job{Name: "broken", Spec: "every now and then", Run: func(context.Context) error { return nil }})
	assert.Error(t, err)
}

func TestScheduler_SkipsEmptySpec(t *testing.T) {
	s, err := NewScheduler(Job{Name: "disabled", Run: func(context.Context) error { return nil }})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Entries())
}

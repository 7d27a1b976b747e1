package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type existsSet struct {
	ids map[uuid.UUID]bool
	err error
}

func (s existsSet) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return s.ids[id], s.err
}

func TestRedirectValidator(t *testing.T) {
	bookingID, txnID := uuid.New(), uuid.New()
	v := NewRedirectValidator(
		existsSet{ids: map[uuid.UUID]bool{bookingID: true}},
		existsSet{ids: map[uuid.UUID]bool{txnID: true}},
	)
	ctx := context.Background()

	tests := []struct {
		name    string
		kind    RedirectKind
		params  RedirectParams
		allowed bool
		reason  string
	}{
		{"success without identifiers", RedirectSuccess, RedirectParams{}, false, "Invalid payment session"},
		{"success with session only", RedirectSuccess, RedirectParams{SessionID: "sess_1"}, true, ""},
		{"success with known booking", RedirectSuccess, RedirectParams{BookingID: bookingID.String()}, true, ""},
		{"success with unknown booking", RedirectSuccess, RedirectParams{BookingID: uuid.NewString()}, false, "Booking not found"},
		{"success with malformed booking", RedirectSuccess, RedirectParams{BookingID: "42"}, false, "Booking not found"},
		{"success with known transaction", RedirectSuccess, RedirectParams{TransactionID: txnID.String()}, true, ""},
		{"success with unknown transaction", RedirectSuccess, RedirectParams{SessionID: "s", TransactionID: uuid.NewString()}, false, "Transaction not found"},
		{"booking ok but transaction missing", RedirectSuccess, RedirectParams{BookingID: bookingID.String(), TransactionID: uuid.NewString()}, false, "Transaction not found"},
		{"cancelled without identifiers", RedirectCancelled, RedirectParams{}, true, ""},
		{"cancelled with bogus booking", RedirectCancelled, RedirectParams{BookingID: "bogus"}, true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := v.Validate(ctx, tt.kind, tt.params)
			assert.Equal(t, tt.allowed, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
			if tt.allowed {
				assert.Empty(t, d.RedirectTo)
			} else {
				assert.Equal(t, "/", d.RedirectTo)
			}
		})
	}
}

func TestRedirectValidator_EchoesPlanAndGym(t *testing.T) {
	v := NewRedirectValidator(existsSet{}, existsSet{})
	d := v.Validate(context.Background(), RedirectSuccess, RedirectParams{SessionID: "s", Gym: "Iron House", Plan: "monthly"})
	require.True(t, d.Allowed)
	assert.Equal(t, "Iron House", d.Gym)
	assert.Equal(t, "monthly", d.Plan)
}

func TestRedirectValidator_LookupErrorFailsClosed(t *testing.T) {
	v := NewRedirectValidator(existsSet{err: errors.New("db down")}, existsSet{})
	d := v.Validate(context.Background(), RedirectSuccess, RedirectParams{BookingID: uuid.NewString()})
	assert.False(t, d.Allowed)
	assert.Equal(t, "/", d.RedirectTo)
}

func TestParseRedirectKind(t *testing.T) {
	k, err := ParseRedirectKind("Success")
	require.NoError(t, err)
	assert.Equal(t, RedirectSuccess, k)

	k, err = ParseRedirectKind("canceled")
	require.NoError(t, err)
	assert.Equal(t, RedirectCancelled, k)

	_, err = ParseRedirectKind("refund")
	assert.Error(t, err)
}

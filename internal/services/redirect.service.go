package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/pkg/logger"
)

type RedirectKind string

const (
	RedirectSuccess   RedirectKind = "success"
	RedirectCancelled RedirectKind = "cancelled"
)

func ParseRedirectKind(s string) (RedirectKind, error) {
	switch k := RedirectKind(strings.ToLower(strings.TrimSpace(s))); k {
	case RedirectSuccess, RedirectCancelled:
		return k, nil
	case "cancel", "canceled":
		return RedirectCancelled, nil
	}
	return "", invalid("unknown redirect kind %q", s)
}

// RedirectParams are the query parameters the gateway sends the browser
// back with.
type RedirectParams struct {
	SessionID     string
	BookingID     string
	TransactionID string
	Gym           string
	Plan          string
}

// Decision tells the page whether to render. Reason is user-facing.
type Decision struct {
	Allowed       bool         `json:"allowed"`
	Kind          RedirectKind `json:"kind"`
	RedirectTo    string       `json:"redirect_to,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	BookingID     string       `json:"booking_id,omitempty"`
	TransactionID string       `json:"transaction_id,omitempty"`
	Gym           string       `json:"gym,omitempty"`
	Plan          string       `json:"plan,omitempty"`
}

type ExistenceChecker interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

const (
	reasonInvalidSession  = "Invalid payment session"
	reasonBookingMissing  = "Booking not found"
	reasonTxnMissing      = "Transaction not found"
	reasonVerifyFailed    = "Could not verify payment, please try again"
	redirectFallbackRoute = "/"
)

// RedirectValidator gates the payment return pages so they cannot be
// reached with forged or empty parameters.
type RedirectValidator struct {
	bookings     ExistenceChecker
	transactions ExistenceChecker
}

func NewRedirectValidator(bookings, transactions ExistenceChecker) *RedirectValidator {
	return &RedirectValidator{bookings: bookings, transactions: transactions}
}

func (v *RedirectValidator) Validate(ctx context.Context, kind RedirectKind, p RedirectParams) Decision {
	d := Decision{
		Kind:          kind,
		BookingID:     p.BookingID,
		TransactionID: p.TransactionID,
		Gym:           p.Gym,
		Plan:          p.Plan,
	}
	if kind == RedirectCancelled {
		d.Allowed = true
		return d
	}

	if p.SessionID == "" && p.BookingID == "" && p.TransactionID == "" {
		return deny(d, reasonInvalidSession)
	}
	if p.BookingID != "" {
		if reason := v.check(ctx, v.bookings, p.BookingID, reasonBookingMissing); reason != "" {
			return deny(d, reason)
		}
	}
	if p.TransactionID != "" {
		if reason := v.check(ctx, v.transactions, p.TransactionID, reasonTxnMissing); reason != "" {
			return deny(d, reason)
		}
	}
	d.Allowed = true
	return d
}

// check returns a denial reason, or "" when the id resolves.
func (v *RedirectValidator) check(ctx context.Context, store ExistenceChecker, raw, missing string) string {
	id, err := uuid.Parse(raw)
	if err != nil {
		return missing
	}
	ok, err := store.Exists(ctx, id)
	if err != nil {
		logger.Error("redirect validation lookup failed", "id", raw, "error", err)
		return reasonVerifyFailed
	}
	if !ok {
		return missing
	}
	return ""
}

func deny(d Decision, reason string) Decision {
	d.Allowed = false
	d.Reason = reason
	d.RedirectTo = redirectFallbackRoute
	return d
}

package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProviderType string

const (
	ProviderTrainer ProviderType = "trainer"
	ProviderGym     ProviderType = "gym"
)

func (p ProviderType) Valid() bool {
	return p == ProviderTrainer || p == ProviderGym
}

type SessionMode string

const (
	SessionOnline   SessionMode = "online"
	SessionInPerson SessionMode = "in_person"
	SessionHome     SessionMode = "home"
)

func (m SessionMode) Valid() bool {
	switch m {
	case SessionOnline, SessionInPerson, SessionHome:
		return true
	}
	return false
}

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingPending:    {BookingConfirmed, BookingCancelled},
	BookingConfirmed:  {BookingInProgress, BookingCancelled},
	BookingInProgress: {BookingCompleted},
	BookingCompleted:  nil,
	BookingCancelled:  nil,
}

// ParseBookingStatus accepts the canonical names plus the legacy spellings
// "accepted" and "canceled" that older clients still send.
func ParseBookingStatus(s string) (BookingStatus, error) {
	v := BookingStatus(strings.ToLower(strings.TrimSpace(s)))
	switch v {
	case "accepted":
		return BookingConfirmed, nil
	case "canceled":
		return BookingCancelled, nil
	}
	if _, ok := bookingTransitions[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return v, nil
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

// Cancellable reports whether a client may still cancel the booking.
func (s BookingStatus) Cancellable() bool {
	return s == BookingPending || s == BookingConfirmed
}

func (s BookingStatus) CanTransitionTo(to BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type TransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move booking from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func ValidateTransition(from, to BookingStatus) error {
	if !from.CanTransitionTo(to) {
		return &TransitionError{From: from, To: to}
	}
	return nil
}

type Booking struct {
	ID              uuid.UUID       `json:"id"`
	ClientID        uuid.UUID       `json:"client_id"`
	ProviderID      uuid.UUID       `json:"provider_id"`
	ProviderType    ProviderType    `json:"provider_type"`
	ScheduledAt     time.Time       `json:"scheduled_at"`
	DurationMinutes int             `json:"duration_minutes"`
	SessionMode     SessionMode     `json:"session_mode"`
	PackageType     string          `json:"package_type"`
	Amount          decimal.Decimal `json:"amount"`
	Status          BookingStatus   `json:"status"`
	Notes           string          `json:"notes"`
	CancelledAt     *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Party reports whether the user is the client or the provider of record.
func (b *Booking) Party(userID uuid.UUID) bool {
	return b.ClientID == userID || b.ProviderID == userID
}

// Counterpart returns the other side of the booking from userID.
func (b *Booking) Counterpart(userID uuid.UUID) uuid.UUID {
	if b.ClientID == userID {
		return b.ProviderID
	}
	return b.ClientID
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

type BookingCreateRequest struct {
	ProviderID      uuid.UUID       `json:"provider_id"`
	ProviderType    ProviderType    `json:"provider_type"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	ScheduledAt     *time.Time      `json:"scheduled_at,omitempty"`
	DurationMinutes int             `json:"duration_minutes"`
	SessionMode     SessionMode     `json:"session_mode"`
	PackageType     string          `json:"package_type"`
	Amount          decimal.Decimal `json:"amount"`
	Notes           string          `json:"notes"`
}

func (p *BookingCreateRequest) Validate() error {
	if p.ProviderID == uuid.Nil {
		return invalid("provider_id is required")
	}
	if p.ProviderType == "" {
		p.ProviderType = ProviderTrainer
	}
	if !p.ProviderType.Valid() {
		return invalid("unknown provider_type %q", p.ProviderType)
	}
	if p.SessionMode == "" {
		p.SessionMode = SessionInPerson
	}
	if !p.SessionMode.Valid() {
		return invalid("unknown session_mode %q", p.SessionMode)
	}
	if p.DurationMinutes <= 0 {
		return invalid("duration_minutes must be positive")
	}
	if !p.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	if p.PackageType == "" {
		p.PackageType = "single"
	}
	if _, err := p.Schedule(time.UTC); err != nil {
		return err
	}
	return nil
}

// Schedule resolves the requested start, either from scheduled_at or from
// a date plus HH:MM time interpreted in loc.
func (p *BookingCreateRequest) Schedule(loc *time.Location) (time.Time, error) {
	if p.ScheduledAt != nil && !p.ScheduledAt.IsZero() {
		return p.ScheduledAt.UTC(), nil
	}
	if p.Date == "" || p.Time == "" {
		return time.Time{}, invalid("date and time are required")
	}
	t, err := time.ParseInLocation(dateLayout+" "+timeLayout, p.Date+" "+p.Time, loc)
	if err != nil {
		return time.Time{}, invalid("date must be YYYY-MM-DD and time HH:MM")
	}
	return t.UTC(), nil
}

type BookingStatusUpdate struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// BookingFilter controls List queries.
type BookingFilter struct {
	ClientID   *uuid.UUID
	ProviderID *uuid.UUID
	Statuses   []BookingStatus
	Limit      int // default 50
	Offset     int
}

type BookingStats struct {
	ProviderID       uuid.UUID               `json:"provider_id"`
	Total            int64                   `json:"total"`
	ByStatus         map[BookingStatus]int64 `json:"by_status"`
	CompletedRevenue decimal.Decimal         `json:"completed_revenue"`
}

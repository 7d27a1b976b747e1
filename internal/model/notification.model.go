package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationNewBooking    NotificationType = "new_booking"
	NotificationBookingUpdate NotificationType = "booking_update"
	NotificationPayment       NotificationType = "payment"
	NotificationReview        NotificationType = "review"
	NotificationVerification  NotificationType = "verification"
	NotificationSystem        NotificationType = "system"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewBooking, NotificationBookingUpdate, NotificationPayment,
		NotificationReview, NotificationVerification, NotificationSystem:
		return true
	}
	return false
}

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	RelatedID *uuid.UUID       `json:"related_id,omitempty"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func (n *Notification) Validate() error {
	if n.UserID == uuid.Nil {
		return invalid("notification user_id is required")
	}
	if !n.Type.Valid() {
		return invalid("unknown notification type %q", n.Type)
	}
	if n.Title == "" {
		return invalid("notification title is required")
	}
	return nil
}

func (n *Notification) Event() NotificationEvent {
	return NotificationEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Type:           n.Type,
		Title:          n.Title,
		Message:        n.Message,
		RelatedID:      n.RelatedID,
		CreatedAt:      n.CreatedAt,
	}
}

// OutboxEntry tracks whether a notification has reached the stream.
type OutboxEntry struct {
	ID             uuid.UUID
	NotificationID uuid.UUID
	UserID         uuid.UUID
	Attempts       int
	LastError      string
	PublishedAt    *time.Time
	CreatedAt      time.Time

	Notification *Notification
}

// NotificationEvent is what travels over the stream and the websocket.
type NotificationEvent struct {
	NotificationID uuid.UUID        `json:"notification_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Type           NotificationType `json:"type"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	RelatedID      *uuid.UUID       `json:"related_id,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

type NotificationFilter struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Since      *time.Time
	Limit      int
}

const UserChannelPrefix = "notifications:user:"

// UserChannel is the pub/sub channel a user's live events are fanned out on.
func UserChannel(userID uuid.UUID) string {
	return UserChannelPrefix + userID.String()
}

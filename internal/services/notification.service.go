package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/prom"
)

type NotificationRepository interface {
	CreateWithOutbox(ctx context.Context, n *model.Notification) (*model.Notification, *model.OutboxEntry, error)
	List(ctx context.Context, f model.NotificationFilter) ([]*model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	MarkPublished(ctx context.Context, outboxID uuid.UUID) error
	RecordPublishFailure(ctx context.Context, outboxID uuid.UUID, cause string) error
	PendingOutbox(ctx context.Context, limit, maxAttempts int) ([]*model.OutboxEntry, error)
}

// EventPublisher is satisfied by *queue.Queue.
type EventPublisher interface {
	PublishJSON(ctx context.Context, v any, metadata map[string]string) (string, error)
}

// Notifier is what the booking and payment flows depend on.
type Notifier interface {
	Dispatch(ctx context.Context, n *model.Notification) (*model.Notification, error)
}

type NotificationService struct {
	repo        NotificationRepository
	publisher   EventPublisher
	maxAttempts int
}

func NewNotificationService(repo NotificationRepository, publisher EventPublisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, maxAttempts: 10}
}

// Dispatch stores the notification and its outbox row in one transaction,
// then tries an immediate publish. A failed publish leaves the outbox row
// for RelayOutbox; the notification itself is already durable.
// Every call creates a new row.
func (s *NotificationService) Dispatch(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	created, entry, err := s.repo.CreateWithOutbox(ctx, n)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, entry, created, "dispatch")
	return created, nil
}

// RelayOutbox republishes notifications whose first publish failed.
func (s *NotificationService) RelayOutbox(ctx context.Context, batch int) (int, error) {
	entries, err := s.repo.PendingOutbox(ctx, batch, s.maxAttempts)
	if err != nil {
		return 0, err
	}
	published := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if e.Notification == nil {
			continue
		}
		if s.publish(ctx, e, e.Notification, "relay") {
			published++
		}
	}
	if len(entries) > 0 {
		logger.Info("outbox relay finished", "pending", len(entries), "published", published)
	}
	return published, nil
}

func (s *NotificationService) publish(ctx context.Context, entry *model.OutboxEntry, n *model.Notification, source string) bool {
	if s.publisher == nil || entry == nil {
		return false
	}
	_, err := s.publisher.PublishJSON(ctx, n.Event(), map[string]string{
		"notification_id": n.ID.String(),
		"user_id":         n.UserID.String(),
		"type":            string(n.Type),
	})
	if err != nil {
		logger.Warn("notification publish failed", "notification_id", n.ID, "source", source, "error", err)
		if ferr := s.repo.RecordPublishFailure(context.WithoutCancel(ctx), entry.ID, err.Error()); ferr != nil {
			logger.Error("failed to record outbox failure", "outbox_id", entry.ID, "error", ferr)
		}
		return false
	}
	if err := s.repo.MarkPublished(context.WithoutCancel(ctx), entry.ID); err != nil {
		logger.Error("failed to mark outbox entry published", "outbox_id", entry.ID, "error", err)
	}
	prom.IncNotificationPublished(source)
	return true
}

type NotificationPage struct {
	Items       []*model.Notification `json:"items"`
	UnreadCount int64                 `json:"unread_count"`
}

func (s *NotificationService) List(ctx context.Context, session *model.Session, unreadOnly bool, since *time.Time, limit int) (*NotificationPage, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	items, err := s.repo.List(ctx, model.NotificationFilter{
		UserID:     session.UserID,
		UnreadOnly: unreadOnly,
		Since:      since,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Items: items, UnreadCount: unread}, nil
}

// Backlog returns unread notifications created after since, oldest first,
// for a client that just (re)connected.
func (s *NotificationService) Backlog(ctx context.Context, userID uuid.UUID, since time.Time) ([]*model.Notification, error) {
	items, err := s.repo.List(ctx, model.NotificationFilter{
		UserID:     userID,
		UnreadOnly: true,
		Since:      &since,
		Limit:      100,
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, session *model.Session, id uuid.UUID) error {
	if !session.Authenticated() {
		return ErrUnauthenticated
	}
	return fromRepo(s.repo.MarkRead(ctx, id, session.UserID))
}

func (s *NotificationService) MarkAllRead(ctx context.Context, session *model.Session) (int64, error) {
	if !session.Authenticated() {
		return 0, ErrUnauthenticated
	}
	return s.repo.MarkAllRead(ctx, session.UserID)
}

// notify is the fire-and-forget form used after a state change has been
// committed; the change stands even when the notification cannot be stored.
func notify(ctx context.Context, n Notifier, userID uuid.UUID, typ model.NotificationType, title, message string, related uuid.UUID) {
	if n == nil || userID == uuid.Nil {
		return
	}
	rid := related
	_, err := n.Dispatch(ctx, &model.Notification{
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		RelatedID: &rid,
	})
	if err != nil {
		logger.Error("notification dispatch failed", "user_id", userID, "type", typ, "related_id", related, "error", err)
	}
}

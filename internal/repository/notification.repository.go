package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/pg"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	*pg.DB
}

func NewNotificationRepository(db *pg.DB) *NotificationRepository {
	return &NotificationRepository{
		db,
	}
}

// CreateWithOutbox writes the notification and its outbox entry in one
// transaction.
func (r *NotificationRepository) CreateWithOutbox(ctx context.Context, n *model.Notification) (*model.Notification, *model.OutboxEntry, error) {
	entity := toNotificationEntity(n)
	var outbox *OutboxEntity

	err := r.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := r.Write(ctx).Create(entity).Error; err != nil {
			return err
		}
		outbox = &OutboxEntity{
			NotificationID: entity.ID,
			UserID:         entity.UserID,
		}
		return r.Write(ctx).Create(outbox).Error
	})
	if err != nil {
		return nil, nil, err
	}
	return toNotificationModel(entity), toOutboxModel(outbox), nil
}

func (r *NotificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var entity NotificationEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toNotificationModel(&entity), nil
}

func (r *NotificationRepository) List(ctx context.Context, f model.NotificationFilter) ([]*model.Notification, error) {
	q := r.Read(ctx).Where("user_id = ?", f.UserID)
	if f.UnreadOnly {
		q = q.Where("read_at IS NULL")
	}
	if f.Since != nil {
		q = q.Where("created_at > ?", *f.Since)
	}
	limit, _ := pageBounds(f.Limit, 0)

	var entities []*NotificationEntity
	if err := q.Order("created_at DESC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, err
	}
	return toNotificationModels(entities), nil
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&NotificationEntity{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, err
}

// MarkRead is a no-op for a notification that is already read. A row owned
// by someone else reads as not found.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	var n int64
	err := r.Read(ctx).Model(&NotificationEntity{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	now := time.Now().UTC()
	return r.Write(ctx).Model(&NotificationEntity{}).
		Where("id = ? AND read_at IS NULL", id).
		Updates(map[string]any{"read_at": now, "updated_at": now}).Error
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	now := time.Now().UTC()
	res := r.Write(ctx).Model(&NotificationEntity{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Updates(map[string]any{"read_at": now, "updated_at": now})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) MarkPublished(ctx context.Context, outboxID uuid.UUID) error {
	now := time.Now().UTC()
	return r.Write(ctx).Model(&OutboxEntity{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"published_at": now,
			"updated_at":   now,
			"attempts":     gorm.Expr("attempts + 1"),
			"last_error":   "",
		}).Error
}

func (r *NotificationRepository) RecordPublishFailure(ctx context.Context, outboxID uuid.UUID, cause string) error {
	return r.Write(ctx).Model(&OutboxEntity{}).
		Where("id = ?", outboxID).
		Updates(map[string]any{
			"updated_at": time.Now().UTC(),
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error
}

// PendingOutbox returns unpublished entries with their notification,
// oldest first, skipping entries that already used up maxAttempts.
func (r *NotificationRepository) PendingOutbox(ctx context.Context, limit, maxAttempts int) ([]*model.OutboxEntry, error) {
	limit, _ = pageBounds(limit, 0)
	q := r.Read(ctx).Preload("Notification").Where("published_at IS NULL")
	if maxAttempts > 0 {
		q = q.Where("attempts < ?", maxAttempts)
	}

	var entities []*OutboxEntity
	if err := q.Order("created_at ASC").Limit(limit).Find(&entities).Error; err != nil {
		return nil, err
	}

	entries := make([]*model.OutboxEntry, 0, len(entities))
	for _, e := range entities {
		if e.Notification == nil {
			continue
		}
		entry := toOutboxModel(e)
		entry.Notification = toNotificationModel(e.Notification)
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *NotificationRepository) CountByRelated(ctx context.Context, userID, relatedID uuid.UUID, typ model.NotificationType) (int64, error) {
	var n int64
	err := r.Read(ctx).Model(&NotificationEntity{}).
		Where("user_id = ? AND related_id = ? AND type = ?", userID, relatedID, string(typ)).
		Count(&n).Error
	return n, err
}

package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/pg"
)

type NotificationEntity struct {
	pg.Model
	UserID    uuid.UUID  `gorm:"type:uuid;column:user_id;not null;index"`
	Type      string     `gorm:"column:type;size:32;not null"`
	Title     string     `gorm:"column:title;size:255;not null"`
	Message   string     `gorm:"column:message;not null"`
	RelatedID *uuid.UUID `gorm:"type:uuid;column:related_id"`
	ReadAt    *time.Time `gorm:"column:read_at"`
}

func (NotificationEntity) TableName() string {
	return "notifications"
}

type OutboxEntity struct {
	pg.Model
	NotificationID uuid.UUID           `gorm:"type:uuid;column:notification_id;not null;index"`
	Notification   *NotificationEntity `gorm:"foreignKey:NotificationID;references:ID;constraint:OnDelete:CASCADE"`
	UserID         uuid.UUID           `gorm:"type:uuid;column:user_id;not null"`
	Attempts       int                 `gorm:"column:attempts;not null;default:0"`
	LastError      string              `gorm:"column:last_error;not null;default:''"`
	PublishedAt    *time.Time          `gorm:"column:published_at"`
}

func (OutboxEntity) TableName() string {
	return "notification_outbox"
}

func toNotificationEntity(m *model.Notification) *NotificationEntity {
	return &NotificationEntity{
		Model:     pg.Model{ID: m.ID, CreatedAt: m.CreatedAt},
		UserID:    m.UserID,
		Type:      string(m.Type),
		Title:     m.Title,
		Message:   m.Message,
		RelatedID: m.RelatedID,
		ReadAt:    m.ReadAt,
	}
}

func toNotificationModel(e *NotificationEntity) *model.Notification {
	if e == nil {
		return nil
	}
	return &model.Notification{
		ID:        e.ID,
		UserID:    e.UserID,
		Type:      model.NotificationType(e.Type),
		Title:     e.Title,
		Message:   e.Message,
		RelatedID: e.RelatedID,
		ReadAt:    e.ReadAt,
		CreatedAt: e.CreatedAt,
	}
}

func toNotificationModels(entities []*NotificationEntity) []*model.Notification {
	models := make([]*model.Notification, len(entities))
	for i, e := range entities {
		models[i] = toNotificationModel(e)
	}
	return models
}

func toOutboxModel(e *OutboxEntity) *model.OutboxEntry {
	return &model.OutboxEntry{
		ID:             e.ID,
		NotificationID: e.NotificationID,
		UserID:         e.UserID,
		Attempts:       e.Attempts,
		LastError:      e.LastError,
		PublishedAt:    e.PublishedAt,
		CreatedAt:      e.CreatedAt,
	}
}

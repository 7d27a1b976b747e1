package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/shopspring/decimal"
)

type BookingEntity struct {
	pg.Model
	ClientID        uuid.UUID       `gorm:"type:uuid;column:client_id;not null;index"`
	ProviderID      uuid.UUID       `gorm:"type:uuid;column:provider_id;not null;index"`
	ProviderType    string          `gorm:"column:provider_type;size:16;not null"`
	ScheduledAt     time.Time       `gorm:"column:scheduled_at;not null"`
	DurationMinutes int             `gorm:"column:duration_minutes;not null"`
	SessionMode     string          `gorm:"column:session_mode;size:16;not null"`
	PackageType     string          `gorm:"column:package_type;size:64;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(12,2);column:amount;not null"`
	Status          string          `gorm:"column:status;size:16;not null;index"`
	Notes           string          `gorm:"column:notes;not null;default:''"`
	CancelledAt     *time.Time      `gorm:"column:cancelled_at"`
}

func (BookingEntity) TableName() string {
	return "bookings"
}

func toBookingEntity(m *model.Booking) *BookingEntity {
	if m == nil {
		return nil
	}
	return &BookingEntity{
		Model:           pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		ClientID:        m.ClientID,
		ProviderID:      m.ProviderID,
		ProviderType:    string(m.ProviderType),
		ScheduledAt:     m.ScheduledAt,
		DurationMinutes: m.DurationMinutes,
		SessionMode:     string(m.SessionMode),
		PackageType:     m.PackageType,
		Amount:          m.Amount,
		Status:          string(m.Status),
		Notes:           m.Notes,
		CancelledAt:     m.CancelledAt,
	}
}

func toBookingModel(e *BookingEntity) *model.Booking {
	if e == nil {
		return nil
	}
	return &model.Booking{
		ID:              e.ID,
		ClientID:        e.ClientID,
		ProviderID:      e.ProviderID,
		ProviderType:    model.ProviderType(e.ProviderType),
		ScheduledAt:     e.ScheduledAt.UTC(),
		DurationMinutes: e.DurationMinutes,
		SessionMode:     model.SessionMode(e.SessionMode),
		PackageType:     e.PackageType,
		Amount:          e.Amount,
		Status:          model.BookingStatus(e.Status),
		Notes:           e.Notes,
		CancelledAt:     e.CancelledAt,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}

func toBookingModels(entities []*BookingEntity) []*model.Booking {
	models := make([]*model.Booking, len(entities))
	for i, e := range entities {
		models[i] = toBookingModel(e)
	}
	return models
}

type ReviewEntity struct {
	pg.Model
	BookingID  uuid.UUID `gorm:"type:uuid;column:booking_id;not null;uniqueIndex"`
	ClientID   uuid.UUID `gorm:"type:uuid;column:client_id;not null"`
	ProviderID uuid.UUID `gorm:"type:uuid;column:provider_id;not null;index"`
	Rating     int       `gorm:"column:rating;not null"`
	Comment    string    `gorm:"column:comment;not null;default:''"`
}

func (ReviewEntity) TableName() string {
	return "reviews"
}

func toReviewEntity(m *model.Review) *ReviewEntity {
	return &ReviewEntity{
		Model:      pg.Model{ID: m.ID, CreatedAt: m.CreatedAt},
		BookingID:  m.BookingID,
		ClientID:   m.ClientID,
		ProviderID: m.ProviderID,
		Rating:     m.Rating,
		Comment:    m.Comment,
	}
}

func toReviewModel(e *ReviewEntity) *model.Review {
	return &model.Review{
		ID:         e.ID,
		BookingID:  e.BookingID,
		ClientID:   e.ClientID,
		ProviderID: e.ProviderID,
		Rating:     e.Rating,
		Comment:    e.Comment,
		CreatedAt:  e.CreatedAt,
	}
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BookingRepository struct {
	*pg.DB
}

func NewBookingRepository(db *pg.DB) *BookingRepository {
	return &BookingRepository{
		db,
	}
}

func (r *BookingRepository) Create(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	entity := toBookingEntity(b)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		return nil, err
	}

	return toBookingModel(entity), nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var entity BookingEntity
	err := r.Read(ctx).Where("id = ?", id).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toBookingModel(&entity), nil
}

func (r *BookingRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := r.Read(ctx).Model(&BookingEntity{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *BookingRepository) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, int64, error) {
	q := r.Read(ctx).Model(&BookingEntity{})

	if f.ClientID != nil {
		q = q.Where("client_id = ?", *f.ClientID)
	}
	if f.ProviderID != nil {
		q = q.Where("provider_id = ?", *f.ProviderID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	var entities []*BookingEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toBookingModels(entities), total, nil
}

// UpdateStatusIfCurrent moves the booking from one status to another only
// if nobody else changed it first. Notes are replaced when non-nil.
func (r *BookingRepository) UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, notes *string) (*model.Booking, error) {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":     string(to),
		"updated_at": now,
	}
	if notes != nil {
		updates["notes"] = *notes
	}
	if to == model.BookingCancelled {
		updates["cancelled_at"] = now
	}

	res := r.Write(ctx).Model(&BookingEntity{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		exists, err := r.Exists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrConcurrentUpdate
	}
	return r.GetByID(ctx, id)
}

func (r *BookingRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*model.Booking, error) {
	res := r.Write(ctx).Model(&BookingEntity{}).
		Where("id = ?", id).
		Updates(map[string]any{"notes": notes, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *BookingRepository) ProviderStats(ctx context.Context, providerID uuid.UUID) (*model.BookingStats, error) {
	var rows []struct {
		Status string
		N      int64
	}
	err := r.Read(ctx).Model(&BookingEntity{}).
		Select("status, COUNT(*) AS n").
		Where("provider_id = ?", providerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &model.BookingStats{
		ProviderID: providerID,
		ByStatus:   make(map[model.BookingStatus]int64, len(rows)),
	}
	for _, row := range rows {
		stats.ByStatus[model.BookingStatus(row.Status)] = row.N
		stats.Total += row.N
	}

	var revenue decimal.NullDecimal
	err = r.Read(ctx).Model(&BookingEntity{}).
		Select("SUM(amount)").
		Where("provider_id = ? AND status = ?", providerID, string(model.BookingCompleted)).
		Row().Scan(&revenue)
	if err != nil {
		return nil, err
	}
	stats.CompletedRevenue = decimal.Zero
	if revenue.Valid {
		stats.CompletedRevenue = revenue.Decimal
	}
	return stats, nil
}

type ReviewRepository struct {
	*pg.DB
}

func NewReviewRepository(db *pg.DB) *ReviewRepository {
	return &ReviewRepository{
		db,
	}
}

func (r *ReviewRepository) Create(ctx context.Context, rv *model.Review) (*model.Review, error) {
	entity := toReviewEntity(rv)
	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return toReviewModel(entity), nil
}

func (r *ReviewRepository) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*model.Review, error) {
	var entity ReviewEntity
	err := r.Read(ctx).Where("booking_id = ?", bookingID).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toReviewModel(&entity), nil
}

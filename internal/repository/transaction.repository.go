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

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error) {
	entity := toTransactionEntity(txn)

	if err := r.Write(ctx).Create(entity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	return toTransactionModel(entity), nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error) {
	return r.first(ctx, "id = ?", id)
}

func (r *TransactionRepository) GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Transaction, error) {
	return r.first(ctx, "invoice_id = ?", invoiceID)
}

func (r *TransactionRepository) first(ctx context.Context, cond string, arg any) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).Where(cond, arg).First(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

func (r *TransactionRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var n int64
	if err := r.Read(ctx).Model(&TransactionEntity{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// AttachInvoice records the gateway invoice on a transaction that has none yet.
func (r *TransactionRepository) AttachInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error {
	res := r.Write(ctx).Model(&TransactionEntity{}).
		Where("id = ? AND invoice_id IS NULL", id).
		Updates(map[string]any{"invoice_id": invoiceID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConcurrentUpdate
	}
	return nil
}

// UpdateStatusIfCurrent applies u only while the row is still in status from.
func (r *TransactionRepository) UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from model.TransactionStatus, u model.TransactionUpdate) (*model.Transaction, error) {
	updates := map[string]any{
		"status":     string(u.Status),
		"updated_at": time.Now().UTC(),
	}
	if u.PaymentMethod != "" {
		updates["payment_method"] = u.PaymentMethod
	}
	if u.GatewayTransactionID != "" {
		updates["gateway_transaction_id"] = u.GatewayTransactionID
	}
	if u.FailureReason != "" {
		updates["failure_reason"] = u.FailureReason
	}

	res := r.Write(ctx).Model(&TransactionEntity{}).
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

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	q := r.Read(ctx).Model(&TransactionEntity{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.BookingID != nil {
		q = q.Where("booking_id = ?", *f.BookingID)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(f.Limit, f.Offset)
	var entities []*TransactionEntity
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return toTransactionModels(entities), total, nil
}

// ListStalePending returns provisional rows created before the cutoff, oldest first.
func (r *TransactionRepository) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Transaction, error) {
	limit, _ = pageBounds(limit, 0)
	var entities []*TransactionEntity
	err := r.Read(ctx).
		Where("status = ? AND created_at < ?", string(model.TransactionPending), before).
		Order("created_at ASC").
		Limit(limit).
		Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return toTransactionModels(entities), nil
}

package repository

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/shopspring/decimal"
)

type TransactionEntity struct {
	pg.Model
	BookingID            *uuid.UUID      `gorm:"type:uuid;column:booking_id;index"`
	UserID               uuid.UUID       `gorm:"type:uuid;column:user_id;not null;index"`
	PaymentType          string          `gorm:"column:payment_type;size:32;not null"`
	Amount               decimal.Decimal `gorm:"type:numeric(12,2);column:amount;not null"`
	Currency             string          `gorm:"column:currency;size:8;not null"`
	Commission           decimal.Decimal `gorm:"type:numeric(12,2);column:commission;not null"`
	NetAmount            decimal.Decimal `gorm:"type:numeric(12,2);column:net_amount;not null"`
	Status               string          `gorm:"column:status;size:16;not null;index"`
	PaymentMethod        string          `gorm:"column:payment_method;size:32;not null;default:''"`
	InvoiceID            *string         `gorm:"column:invoice_id;size:128;uniqueIndex"`
	GatewayTransactionID string          `gorm:"column:gateway_transaction_id;size:128;not null;default:''"`
	FailureReason        string          `gorm:"column:failure_reason;not null;default:''"`
	Metadata             string          `gorm:"column:metadata;not null;default:'{}'"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	meta := "{}"
	if len(m.Metadata) > 0 {
		if b, err := json.Marshal(m.Metadata); err == nil {
			meta = string(b)
		} else {
			logger.Warn("transaction metadata not serialisable", "transaction_id", m.ID, "error", err)
		}
	}
	return &TransactionEntity{
		Model:                pg.Model{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		BookingID:            m.BookingID,
		UserID:               m.UserID,
		PaymentType:          m.PaymentType,
		Amount:               m.Amount,
		Currency:             m.Currency,
		Commission:           m.Commission,
		NetAmount:            m.NetAmount,
		Status:               string(m.Status),
		PaymentMethod:        m.PaymentMethod,
		InvoiceID:            m.InvoiceID,
		GatewayTransactionID: m.GatewayTransactionID,
		FailureReason:        m.FailureReason,
		Metadata:             meta,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	var meta map[string]any
	if e.Metadata != "" && e.Metadata != "{}" {
		_ = json.Unmarshal([]byte(e.Metadata), &meta)
	}
	return &model.Transaction{
		ID:                   e.ID,
		BookingID:            e.BookingID,
		UserID:               e.UserID,
		PaymentType:          e.PaymentType,
		Amount:               e.Amount,
		Currency:             e.Currency,
		Commission:           e.Commission,
		NetAmount:            e.NetAmount,
		Status:               model.TransactionStatus(e.Status),
		PaymentMethod:        e.PaymentMethod,
		InvoiceID:            e.InvoiceID,
		GatewayTransactionID: e.GatewayTransactionID,
		FailureReason:        e.FailureReason,
		Metadata:             meta,
		CreatedAt:            e.CreatedAt,
		UpdatedAt:            e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}

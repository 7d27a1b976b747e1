package fixtures

import (
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/shopspring/decimal"
)

var SessionStart = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func NewBookingRequest(providerID uuid.UUID) model.BookingCreateRequest {
	return model.BookingCreateRequest{
		ProviderID:      providerID,
		ProviderType:    model.ProviderTrainer,
		Date:            "2025-06-01",
		Time:            "10:00",
		DurationMinutes: 60,
		SessionMode:     model.SessionInPerson,
		PackageType:     "single",
		Amount:          decimal.NewFromInt(1000),
	}
}

func NewBooking(clientID, providerID uuid.UUID, status model.BookingStatus) *model.Booking {
	return &model.Booking{
		ClientID:        clientID,
		ProviderID:      providerID,
		ProviderType:    model.ProviderTrainer,
		ScheduledAt:     SessionStart,
		DurationMinutes: 60,
		SessionMode:     model.SessionInPerson,
		PackageType:     "single",
		Amount:          decimal.NewFromInt(1000),
		Status:          status,
	}
}

func NewCheckoutRequest(email string, amount int64) model.CheckoutRequest {
	return model.CheckoutRequest{
		Amount:        decimal.NewFromInt(amount),
		Currency:      "BDT",
		CustomerName:  "Test Client",
		CustomerEmail: email,
	}
}

func NewMobileCheckoutRequest(email string, amount int64, paymentType string) model.CheckoutRequest {
	req := NewCheckoutRequest(email, amount)
	req.Metadata = map[string]any{
		"is_mobile_app": true,
		"payment_type":  paymentType,
	}
	return req
}

func NewPendingTransaction(userID uuid.UUID, bookingID *uuid.UUID, amount int64) *model.Transaction {
	a := decimal.NewFromInt(amount)
	commission, net := model.SplitCommission(a, decimal.RequireFromString("0.10"))
	return &model.Transaction{
		BookingID:   bookingID,
		UserID:      userID,
		PaymentType: model.PaymentTypeBooking,
		Amount:      a,
		Currency:    "BDT",
		Commission:  commission,
		NetAmount:   net,
		Status:      model.TransactionPending,
	}
}

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionWithdrawn TransactionStatus = "withdrawn"
	TransactionFailed    TransactionStatus = "failed"
)

func (s TransactionStatus) Final() bool {
	return s == TransactionCompleted || s == TransactionFailed || s == TransactionWithdrawn
}

const (
	PaymentTypeBooking    = "booking"
	PaymentTypeMembership = "membership"
)

// Transaction is one payment attempt. Commission and NetAmount always sum
// to Amount for rows written through SplitCommission.
type Transaction struct {
	ID                   uuid.UUID         `json:"id"`
	BookingID            *uuid.UUID        `json:"booking_id,omitempty"`
	UserID               uuid.UUID         `json:"user_id"`
	PaymentType          string            `json:"payment_type"`
	Amount               decimal.Decimal   `json:"amount"`
	Currency             string            `json:"currency"`
	Commission           decimal.Decimal   `json:"commission"`
	NetAmount            decimal.Decimal   `json:"net_amount"`
	Status               TransactionStatus `json:"status"`
	PaymentMethod        string            `json:"payment_method"`
	InvoiceID            *string           `json:"invoice_id,omitempty"`
	GatewayTransactionID string            `json:"gateway_transaction_id,omitempty"`
	FailureReason        string            `json:"failure_reason,omitempty"`
	Metadata             map[string]any    `json:"metadata,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// SplitCommission rounds the platform share to two places and gives the
// remainder to the provider.
func SplitCommission(amount, rate decimal.Decimal) (commission, net decimal.Decimal) {
	commission = amount.Mul(rate).Round(2)
	return commission, amount.Sub(commission)
}

// TransactionUpdate carries the fields a status change may set.
type TransactionUpdate struct {
	Status               TransactionStatus
	PaymentMethod        string
	GatewayTransactionID string
	FailureReason        string
}

type TransactionFilter struct {
	UserID    *uuid.UUID
	BookingID *uuid.UUID
	Statuses  []TransactionStatus
	Limit     int
	Offset    int
}

// CheckoutRequest is the local payment intent. Origin is filled from the
// request headers, not the body.
type CheckoutRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	BookingID     *uuid.UUID      `json:"booking_id,omitempty"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	SuccessURL    string          `json:"success_url,omitempty"`
	CancelURL     string          `json:"cancel_url,omitempty"`
	Metadata      map[string]any  `json:"metadata,omitempty"`
	Origin        string          `json:"-"`
}

func (r *CheckoutRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return invalid("amount must be positive")
	}
	r.CustomerEmail = strings.TrimSpace(r.CustomerEmail)
	if r.CustomerEmail == "" || !strings.Contains(r.CustomerEmail, "@") {
		return invalid("customer_email is required")
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	return nil
}

// PaymentType is metadata.payment_type, "booking" when absent.
func (r *CheckoutRequest) PaymentType() string {
	if v, ok := r.Metadata["payment_type"].(string); ok && v != "" {
		return v
	}
	return PaymentTypeBooking
}

// IsMobileApp accepts both a JSON boolean and the string "true".
func (r *CheckoutRequest) IsMobileApp() bool {
	switch v := r.Metadata["is_mobile_app"].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

type CheckoutResult struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	PaymentURL    string    `json:"payment_url"`
	InvoiceID     string    `json:"invoice_id"`
	SuccessURL    string    `json:"success_url"`
	CancelURL     string    `json:"cancel_url"`
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/prom"
	"github.com/shopspring/decimal"
)

type TransactionRepository interface {
	Create(ctx context.Context, txn *model.Transaction) (*model.Transaction, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Transaction, error)
	GetByInvoiceID(ctx context.Context, invoiceID string) (*model.Transaction, error)
	AttachInvoice(ctx context.Context, id uuid.UUID, invoiceID string) error
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from model.TransactionStatus, u model.TransactionUpdate) (*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*model.Transaction, error)
}

// PaymentGateway is satisfied by *gateway.Client.
type PaymentGateway interface {
	CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error)
	VerifyPayment(ctx context.Context, invoiceID string) (*gateway.Payment, error)
	ValidateWebhook(apiKey string) bool
}

type BookingReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
}

type PaymentConfig struct {
	Currency       string
	CommissionRate decimal.Decimal
	URLs           gateway.URLConfig
}

type PaymentService struct {
	txns     TransactionRepository
	bookings BookingReader
	gateway  PaymentGateway
	notifier Notifier
	config   PaymentConfig
}

func NewPaymentService(txns TransactionRepository, bookings BookingReader, gw PaymentGateway, notifier Notifier, config PaymentConfig) *PaymentService {
	if config.Currency == "" {
		config.Currency = "BDT"
	}
	return &PaymentService{
		txns:     txns,
		bookings: bookings,
		gateway:  gw,
		notifier: notifier,
		config:   config,
	}
}

// CheckoutOptions carries request-derived values that are not part of the
// JSON body.
type CheckoutOptions struct {
	Origin  string
	Referer string
}

// Checkout opens a gateway session for a provisional transaction. The row
// is written first; if the gateway call fails it is marked failed, so no
// pending row outlives a failed checkout.
func (s *PaymentService) Checkout(ctx context.Context, session *model.Session, req model.CheckoutRequest, opts CheckoutOptions) (*model.CheckoutResult, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		prom.IncCheckoutOutcome("invalid")
		return nil, err
	}
	if req.Currency == "" {
		req.Currency = s.config.Currency
	}
	if req.BookingID != nil {
		b, err := s.bookings.GetByID(ctx, *req.BookingID)
		if err != nil {
			return nil, fromRepo(err)
		}
		if !session.IsAdmin() && b.ClientID != session.UserID {
			return nil, ErrForbidden
		}
		if b.Status.Terminal() {
			return nil, invalid("booking is %s", b.Status)
		}
	}

	paymentType := req.PaymentType()
	metadata := make(map[string]any, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["payment_type"] = paymentType

	commission, net := model.SplitCommission(req.Amount, s.config.CommissionRate)
	txn, err := s.txns.Create(ctx, &model.Transaction{
		BookingID:   req.BookingID,
		UserID:      session.UserID,
		PaymentType: paymentType,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Commission:  commission,
		NetAmount:   net,
		Status:      model.TransactionPending,
		Metadata:    metadata,
	})
	if err != nil {
		return nil, err
	}

	intent := gateway.ReturnIntent{
		Origin:        opts.Origin,
		Referer:       opts.Referer,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
		Mobile:        req.IsMobileApp(),
		PaymentType:   paymentType,
		TransactionID: txn.ID.String(),
	}
	gwMetadata := make(map[string]any, len(metadata)+3)
	for k, v := range metadata {
		gwMetadata[k] = v
	}
	gwMetadata["transaction_id"] = txn.ID.String()
	gwMetadata["user_id"] = session.UserID.String()
	if req.BookingID != nil {
		intent.BookingID = req.BookingID.String()
		gwMetadata["booking_id"] = req.BookingID.String()
	}
	urls := gateway.ResolveReturnURLs(s.config.URLs, intent)

	name := req.CustomerName
	if name == "" {
		name = session.Name
	}
	if name == "" {
		name = req.CustomerEmail
	}

	checkout, err := s.gateway.CreateCheckout(ctx, &gateway.CheckoutRequest{
		FullName:    name,
		Email:       req.CustomerEmail,
		Amount:      req.Amount,
		Metadata:    gwMetadata,
		RedirectURL: urls.Success,
		CancelURL:   urls.Cancel,
	})
	if err != nil {
		outcome := "gateway_error"
		if errors.Is(err, gateway.ErrConfiguration) {
			outcome = "config_error"
		}
		prom.IncCheckoutOutcome(outcome)
		logger.Error("checkout failed", "transaction_id", txn.ID, "error", err)
		s.fail(ctx, txn.ID, err.Error())
		return nil, err
	}

	if err := s.txns.AttachInvoice(ctx, txn.ID, checkout.InvoiceID); err != nil {
		logger.Warn("could not attach invoice to transaction", "transaction_id", txn.ID, "invoice_id", checkout.InvoiceID, "error", err)
	}
	prom.IncCheckoutOutcome("created")
	logger.Info("checkout created", "transaction_id", txn.ID, "invoice_id", checkout.InvoiceID, "payment_type", paymentType)

	return &model.CheckoutResult{
		TransactionID: txn.ID,
		PaymentURL:    checkout.PaymentURL,
		InvoiceID:     checkout.InvoiceID,
		SuccessURL:    urls.Success,
		CancelURL:     urls.Cancel,
	}, nil
}

func (s *PaymentService) fail(ctx context.Context, id uuid.UUID, reason string) {
	_, err := s.txns.UpdateStatusIfCurrent(context.WithoutCancel(ctx), id, model.TransactionPending, model.TransactionUpdate{
		Status:        model.TransactionFailed,
		FailureReason: reason,
	})
	if err != nil {
		logger.Error("could not mark transaction failed", "transaction_id", id, "error", err)
	}
}

// HandleWebhook settles a transaction from a gateway callback. The payload
// only identifies the payment; its status is taken from verify-payment.
// Callbacks for already settled transactions are acknowledged unchanged.
func (s *PaymentService) HandleWebhook(ctx context.Context, apiKey string, payload gateway.Payment) (*model.Transaction, error) {
	if !s.gateway.ValidateWebhook(apiKey) {
		prom.IncWebhookOutcome("unauthorized")
		return nil, ErrUnauthorizedWebhook
	}
	txn, err := s.locate(ctx, payload)
	if err != nil {
		prom.IncWebhookOutcome("unknown")
		return nil, err
	}
	if txn.Status.Final() {
		prom.IncWebhookOutcome("duplicate")
		return txn, nil
	}
	if txn.InvoiceID == nil {
		return nil, invalid("transaction %s has no invoice yet", txn.ID)
	}

	payment, err := s.gateway.VerifyPayment(ctx, *txn.InvoiceID)
	if err != nil {
		prom.IncWebhookOutcome("verify_failed")
		return nil, err
	}
	settled, err := s.settle(ctx, txn, payment)
	if err != nil {
		return nil, err
	}
	prom.IncWebhookOutcome(string(settled.Status))
	return settled, nil
}

func (s *PaymentService) locate(ctx context.Context, payload gateway.Payment) (*model.Transaction, error) {
	if payload.InvoiceID != "" {
		txn, err := s.txns.GetByInvoiceID(ctx, payload.InvoiceID)
		if err == nil {
			return txn, nil
		}
		if !errors.Is(fromRepo(err), ErrNotFound) {
			return nil, err
		}
	}
	raw := payload.MetadataString("transaction_id")
	if raw == "" {
		if payload.InvoiceID == "" {
			return nil, invalid("webhook carries neither invoice_id nor metadata.transaction_id")
		}
		return nil, ErrNotFound
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, ErrNotFound
	}
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	// The invoice write after checkout may have failed; link it now.
	if txn.InvoiceID == nil && payload.InvoiceID != "" {
		if err := s.txns.AttachInvoice(ctx, txn.ID, payload.InvoiceID); err != nil {
			logger.Warn("could not attach invoice from webhook", "transaction_id", txn.ID, "error", err)
		} else {
			invoice := payload.InvoiceID
			txn.InvoiceID = &invoice
		}
	}
	return txn, nil
}

// settle applies the gateway's verdict. PENDING leaves the row alone.
func (s *PaymentService) settle(ctx context.Context, txn *model.Transaction, payment *gateway.Payment) (*model.Transaction, error) {
	var update model.TransactionUpdate
	switch payment.Status {
	case gateway.PaymentCompleted:
		update = model.TransactionUpdate{
			Status:               model.TransactionCompleted,
			PaymentMethod:        payment.PaymentMethod,
			GatewayTransactionID: payment.TransactionID,
		}
	case gateway.PaymentError:
		update = model.TransactionUpdate{
			Status:               model.TransactionFailed,
			PaymentMethod:        payment.PaymentMethod,
			GatewayTransactionID: payment.TransactionID,
			FailureReason:        "gateway reported payment error",
		}
	default:
		return txn, nil
	}

	updated, err := s.txns.UpdateStatusIfCurrent(ctx, txn.ID, model.TransactionPending, update)
	if err != nil {
		if errors.Is(fromRepo(err), ErrConcurrentUpdate) {
			// Another callback or the reconciler got there first.
			return s.txns.GetByID(ctx, txn.ID)
		}
		return nil, err
	}
	logger.Info("transaction settled", "transaction_id", updated.ID, "status", updated.Status, "method", updated.PaymentMethod)
	s.notifySettled(ctx, updated)
	return updated, nil
}

func (s *PaymentService) notifySettled(ctx context.Context, txn *model.Transaction) {
	amount := fmt.Sprintf("%s %s", txn.Amount.StringFixed(2), txn.Currency)
	related := txn.ID
	if txn.BookingID != nil {
		related = *txn.BookingID
	}
	if txn.Status != model.TransactionCompleted {
		notify(ctx, s.notifier, txn.UserID, model.NotificationPayment,
			"Payment failed", "Your payment of "+amount+" could not be completed", related)
		return
	}
	notify(ctx, s.notifier, txn.UserID, model.NotificationPayment,
		"Payment received", "Your payment of "+amount+" was successful", related)

	if txn.BookingID == nil {
		return
	}
	b, err := s.bookings.GetByID(ctx, *txn.BookingID)
	if err != nil {
		logger.Warn("paid booking not found", "booking_id", *txn.BookingID, "error", err)
		return
	}
	notify(ctx, s.notifier, b.ProviderID, model.NotificationPayment,
		"Booking paid", "A client paid "+amount+" for the booking on "+b.ScheduledAt.Format("2006-01-02 15:04"), b.ID)
}

// ReconcileStale settles provisional transactions older than olderThan.
// Rows with an invoice are verified with the gateway; rows that never got
// one belong to a checkout that died before the gateway answered.
func (s *PaymentService) ReconcileStale(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.txns.ListStalePending(ctx, time.Now().UTC().Add(-olderThan), 100)
	if err != nil {
		return 0, err
	}
	settled := 0
	for _, txn := range stale {
		if ctx.Err() != nil {
			return settled, ctx.Err()
		}
		if txn.InvoiceID == nil {
			s.fail(ctx, txn.ID, "checkout session was never created")
			settled++
			continue
		}
		payment, err := s.gateway.VerifyPayment(ctx, *txn.InvoiceID)
		if err != nil {
			logger.Warn("reconcile verify failed", "transaction_id", txn.ID, "error", err)
			continue
		}
		updated, err := s.settle(ctx, txn, payment)
		if err != nil {
			logger.Warn("reconcile settle failed", "transaction_id", txn.ID, "error", err)
			continue
		}
		if updated.Status.Final() {
			settled++
		}
	}
	if len(stale) > 0 {
		logger.Info("reconciled stale transactions", "stale", len(stale), "settled", settled)
	}
	return settled, nil
}

func (s *PaymentService) GetTransaction(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Transaction, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	txn, err := s.txns.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !session.IsAdmin() && txn.UserID != session.UserID {
		return nil, ErrNotFound
	}
	return txn, nil
}

type TransactionPage struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
}

func (s *PaymentService) ListTransactions(ctx context.Context, session *model.Session, statuses []model.TransactionStatus, limit, offset int) (*TransactionPage, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	items, total, err := s.txns.List(ctx, model.TransactionFilter{
		UserID:   &session.UserID,
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, err
	}
	return &TransactionPage{Items: items, Total: total}, nil
}

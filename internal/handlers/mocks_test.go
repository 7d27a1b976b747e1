package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/services"
	"github.com/stretchr/testify/mock"
)

type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, s *model.Session, req model.BookingCreateRequest) (*model.Booking, error) {
	args := m.Called(ctx, s, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Get(ctx context.Context, s *model.Session, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) List(ctx context.Context, s *model.Session, statuses []model.BookingStatus, limit, offset int) (*services.BookingPage, error) {
	args := m.Called(ctx, s, statuses, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.BookingPage), args.Error(1)
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, s *model.Session, id uuid.UUID, u model.BookingStatusUpdate) (*model.Booking, error) {
	args := m.Called(ctx, s, id, u)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) Cancel(ctx context.Context, s *model.Session, id uuid.UUID, reason string) (*model.Booking, error) {
	args := m.Called(ctx, s, id, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) AmendNotes(ctx context.Context, s *model.Session, id uuid.UUID, notes string) (*model.Booking, error) {
	args := m.Called(ctx, s, id, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingService) ProviderStats(ctx context.Context, s *model.Session, id uuid.UUID) (*model.BookingStats, error) {
	args := m.Called(ctx, s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingStats), args.Error(1)
}

func (m *MockBookingService) Review(ctx context.Context, s *model.Session, id uuid.UUID, req model.ReviewCreateRequest) (*model.Review, error) {
	args := m.Called(ctx, s, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockBookingService) GetReview(ctx context.Context, s *model.Session, id uuid.UUID) (*model.Review, error) {
	args := m.Called(ctx, s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) Checkout(ctx context.Context, s *model.Session, req model.CheckoutRequest, opts services.CheckoutOptions) (*model.CheckoutResult, error) {
	args := m.Called(ctx, s, req, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResult), args.Error(1)
}

func (m *MockPaymentService) HandleWebhook(ctx context.Context, apiKey string, p gateway.Payment) (*model.Transaction, error) {
	args := m.Called(ctx, apiKey, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockPaymentService) GetTransaction(ctx context.Context, s *model.Session, id uuid.UUID) (*model.Transaction, error) {
	args := m.Called(ctx, s, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transaction), args.Error(1)
}

func (m *MockPaymentService) ListTransactions(ctx context.Context, s *model.Session, statuses []model.TransactionStatus, limit, offset int) (*services.TransactionPage, error) {
	args := m.Called(ctx, s, statuses, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.TransactionPage), args.Error(1)
}

type MockRedirectValidator struct {
	mock.Mock
}

func (m *MockRedirectValidator) Validate(ctx context.Context, kind services.RedirectKind, p services.RedirectParams) services.Decision {
	args := m.Called(ctx, kind, p)
	return args.Get(0).(services.Decision)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) List(ctx context.Context, s *model.Session, unreadOnly bool, since *time.Time, limit int) (*services.NotificationPage, error) {
	args := m.Called(ctx, s, unreadOnly, since, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.NotificationPage), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, s *model.Session, id uuid.UUID) error {
	return m.Called(ctx, s, id).Error(0)
}

func (m *MockNotificationService) MarkAllRead(ctx context.Context, s *model.Session) (int64, error) {
	args := m.Called(ctx, s)
	return args.Get(0).(int64), args.Error(1)
}

package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, b *model.Booking) (*model.Booking, error) {
	args := m.Called(ctx, b)
	if rf, ok := args.Get(0).(func(context.Context, *model.Booking) *model.Booking); ok {
		return rf(ctx, b), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Booking), args.Get(1).(int64), args.Error(2)
}

func (m *MockBookingRepository) UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, notes *string) (*model.Booking, error) {
	args := m.Called(ctx, id, from, to, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*model.Booking, error) {
	args := m.Called(ctx, id, notes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) ProviderStats(ctx context.Context, providerID uuid.UUID) (*model.BookingStats, error) {
	args := m.Called(ctx, providerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingStats), args.Error(1)
}

type MockReviewRepository struct {
	mock.Mock
}

func (m *MockReviewRepository) Create(ctx context.Context, r *model.Review) (*model.Review, error) {
	args := m.Called(ctx, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

func (m *MockReviewRepository) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*model.Review, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Review), args.Error(1)
}

// recordingNotifier keeps every dispatched notification.
type recordingNotifier struct {
	sent []*model.Notification
	err  error
}

func (n *recordingNotifier) Dispatch(_ context.Context, notification *model.Notification) (*model.Notification, error) {
	if n.err != nil {
		return nil, n.err
	}
	notification.ID = uuid.New()
	notification.CreatedAt = time.Now()
	n.sent = append(n.sent, notification)
	return notification, nil
}

func (n *recordingNotifier) to(userID uuid.UUID) []*model.Notification {
	var out []*model.Notification
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckout(ctx context.Context, req *gateway.CheckoutRequest) (*gateway.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.CheckoutSession), args.Error(1)
}

func (m *MockGateway) VerifyPayment(ctx context.Context, invoiceID string) (*gateway.Payment, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}

func (m *MockGateway) ValidateWebhook(apiKey string) bool {
	return m.Called(apiKey).Bool(0)
}

type fakePublisher struct {
	events []any
	err    error
}

func (p *fakePublisher) PublishJSON(_ context.Context, v any, _ map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.events = append(p.events, v)
	return "1-0", nil
}

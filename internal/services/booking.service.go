package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/prom"
)

type BookingRepository interface {
	Create(ctx context.Context, b *model.Booking) (*model.Booking, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	List(ctx context.Context, f model.BookingFilter) ([]*model.Booking, int64, error)
	UpdateStatusIfCurrent(ctx context.Context, id uuid.UUID, from, to model.BookingStatus, notes *string) (*model.Booking, error)
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*model.Booking, error)
	ProviderStats(ctx context.Context, providerID uuid.UUID) (*model.BookingStats, error)
}

type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) (*model.Review, error)
	GetByBooking(ctx context.Context, bookingID uuid.UUID) (*model.Review, error)
}

// BookingService owns the booking state machine. Every status change is a
// compare-and-set against the status the caller observed, so two racing
// writers cannot both win.
type BookingService struct {
	bookings BookingRepository
	reviews  ReviewRepository
	notifier Notifier
	cache    *BookingCache
	location *time.Location
}

func NewBookingService(bookings BookingRepository, reviews ReviewRepository, notifier Notifier, cache *BookingCache) *BookingService {
	return &BookingService{
		bookings: bookings,
		reviews:  reviews,
		notifier: notifier,
		cache:    cache,
		location: time.UTC,
	}
}

func (s *BookingService) Create(ctx context.Context, session *model.Session, req model.BookingCreateRequest) (*model.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ProviderID == session.UserID {
		return nil, invalid("cannot book yourself")
	}
	scheduledAt, err := req.Schedule(s.location)
	if err != nil {
		return nil, err
	}

	b, err := s.bookings.Create(ctx, &model.Booking{
		ClientID:        session.UserID,
		ProviderID:      req.ProviderID,
		ProviderType:    req.ProviderType,
		ScheduledAt:     scheduledAt,
		DurationMinutes: req.DurationMinutes,
		SessionMode:     req.SessionMode,
		PackageType:     req.PackageType,
		Amount:          req.Amount,
		Status:          model.BookingPending,
		Notes:           strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("booking created", "booking_id", b.ID, "client_id", b.ClientID, "provider_id", b.ProviderID)
	prom.IncBookingTransition("", string(model.BookingPending))
	s.cache.Invalidate(b.ClientID, b.ProviderID)

	notify(ctx, s.notifier, b.ProviderID, model.NotificationNewBooking,
		"New booking request",
		fmt.Sprintf("You have a new %s booking on %s", b.SessionMode, b.ScheduledAt.Format("2006-01-02 15:04")),
		b.ID)
	return b, nil
}

func (s *BookingService) Get(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !session.IsAdmin() && !b.Party(session.UserID) {
		return nil, ErrForbidden
	}
	return b, nil
}

// List scopes by role: providers see bookings made with them, everyone else
// sees bookings they made. Admins see all.
func (s *BookingService) List(ctx context.Context, session *model.Session, statuses []model.BookingStatus, limit, offset int) (*BookingPage, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	f := model.BookingFilter{Statuses: statuses, Limit: limit, Offset: offset}
	switch {
	case session.IsAdmin():
	case session.Role.IsProvider():
		f.ProviderID = &session.UserID
	default:
		f.ClientID = &session.UserID
	}

	// Admin pages span every party, so no single invalidation covers them.
	cache := s.cache
	if session.IsAdmin() {
		cache = nil
	}
	if page, ok := cache.GetList(session.UserID, f); ok {
		return page, nil
	}
	items, total, err := s.bookings.List(ctx, f)
	if err != nil {
		return nil, err
	}
	page := &BookingPage{Items: items, Total: total}
	cache.PutList(session.UserID, f, page)
	return page, nil
}

// UpdateStatus applies a transition requested through the generic status
// endpoint. Only the provider of record or an admin may confirm, start or
// complete; cancellation goes through Cancel's rules.
func (s *BookingService) UpdateStatus(ctx context.Context, session *model.Session, id uuid.UUID, update model.BookingStatusUpdate) (*model.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	to, err := model.ParseBookingStatus(update.Status)
	if err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !session.IsAdmin() && !b.Party(session.UserID) {
		return nil, ErrForbidden
	}
	if to != model.BookingCancelled && !session.IsAdmin() && b.ProviderID != session.UserID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, session, b, to, update.Notes)
}

// Cancel is allowed to either party while the booking is pending or
// confirmed. A reason, when given, is appended to the notes.
func (s *BookingService) Cancel(ctx context.Context, session *model.Session, id uuid.UUID, reason string) (*model.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !session.IsAdmin() && !b.Party(session.UserID) {
		return nil, ErrForbidden
	}
	var notes *string
	if reason = strings.TrimSpace(reason); reason != "" {
		n := appendNote(b.Notes, "Cancellation reason: "+reason)
		notes = &n
	}
	return s.transition(ctx, session, b, model.BookingCancelled, notes)
}

func (s *BookingService) transition(ctx context.Context, session *model.Session, b *model.Booking, to model.BookingStatus, notes *string) (*model.Booking, error) {
	from := b.Status
	if err := model.ValidateTransition(from, to); err != nil {
		return nil, err
	}
	updated, err := s.bookings.UpdateStatusIfCurrent(ctx, b.ID, from, to, notes)
	if err != nil {
		return nil, fromRepo(err)
	}

	logger.Info("booking status changed", "booking_id", b.ID, "from", from, "to", to, "actor", session.UserID)
	prom.IncBookingTransition(string(from), string(to))
	s.cache.Invalidate(updated.ClientID, updated.ProviderID)

	title, message := transitionText(updated, to)
	for _, party := range []uuid.UUID{updated.ClientID, updated.ProviderID} {
		if party == session.UserID {
			continue
		}
		notify(ctx, s.notifier, party, model.NotificationBookingUpdate, title, message, updated.ID)
	}
	return updated, nil
}

func transitionText(b *model.Booking, to model.BookingStatus) (string, string) {
	when := b.ScheduledAt.Format("2006-01-02 15:04")
	switch to {
	case model.BookingConfirmed:
		return "Booking confirmed", "Your booking on " + when + " has been confirmed"
	case model.BookingInProgress:
		return "Session started", "Your session on " + when + " is in progress"
	case model.BookingCompleted:
		return "Session completed", "Your session on " + when + " has been completed"
	case model.BookingCancelled:
		return "Booking cancelled", "The booking on " + when + " has been cancelled"
	}
	return "Booking updated", "The booking on " + when + " is now " + string(to)
}

// AmendNotes replaces the notes without touching the status. It is the one
// change still allowed once a booking is completed or cancelled.
func (s *BookingService) AmendNotes(ctx context.Context, session *model.Session, id uuid.UUID, notes string) (*model.Booking, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if !session.IsAdmin() && !b.Party(session.UserID) {
		return nil, ErrForbidden
	}
	updated, err := s.bookings.UpdateNotes(ctx, id, strings.TrimSpace(notes))
	if err != nil {
		return nil, fromRepo(err)
	}
	s.cache.Invalidate(updated.ClientID, updated.ProviderID)
	return updated, nil
}

func (s *BookingService) ProviderStats(ctx context.Context, session *model.Session, providerID uuid.UUID) (*model.BookingStats, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if !session.IsAdmin() && session.UserID != providerID {
		return nil, ErrForbidden
	}
	if stats, ok := s.cache.GetStats(providerID); ok {
		return stats, nil
	}
	stats, err := s.bookings.ProviderStats(ctx, providerID)
	if err != nil {
		return nil, err
	}
	s.cache.PutStats(stats)
	return stats, nil
}

// Review records the client's single review of a completed booking.
func (s *BookingService) Review(ctx context.Context, session *model.Session, id uuid.UUID, req model.ReviewCreateRequest) (*model.Review, error) {
	if !session.Authenticated() {
		return nil, ErrUnauthenticated
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	if b.ClientID != session.UserID {
		return nil, ErrForbidden
	}
	if b.Status != model.BookingCompleted {
		return nil, ErrNotReviewable
	}
	rv, err := s.reviews.Create(ctx, &model.Review{
		BookingID:  b.ID,
		ClientID:   b.ClientID,
		ProviderID: b.ProviderID,
		Rating:     req.Rating,
		Comment:    strings.TrimSpace(req.Comment),
	})
	if err != nil {
		if errors.Is(fromRepo(err), ErrConflict) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}
	notify(ctx, s.notifier, b.ProviderID, model.NotificationReview,
		"New review", fmt.Sprintf("You received a %d-star review", rv.Rating), b.ID)
	return rv, nil
}

func (s *BookingService) GetReview(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Review, error) {
	if _, err := s.Get(ctx, session, id); err != nil {
		return nil, err
	}
	rv, err := s.reviews.GetByBooking(ctx, id)
	if err != nil {
		return nil, fromRepo(err)
	}
	return rv, nil
}

func appendNote(existing, line string) string {
	if strings.TrimSpace(existing) == "" {
		return line
	}
	return existing + "\n" + line
}

package handlers

import (
	"context"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
)

type BookingService interface {
	Create(ctx context.Context, session *model.Session, req model.BookingCreateRequest) (*model.Booking, error)
	Get(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Booking, error)
	List(ctx context.Context, session *model.Session, statuses []model.BookingStatus, limit, offset int) (*services.BookingPage, error)
	UpdateStatus(ctx context.Context, session *model.Session, id uuid.UUID, update model.BookingStatusUpdate) (*model.Booking, error)
	Cancel(ctx context.Context, session *model.Session, id uuid.UUID, reason string) (*model.Booking, error)
	AmendNotes(ctx context.Context, session *model.Session, id uuid.UUID, notes string) (*model.Booking, error)
	ProviderStats(ctx context.Context, session *model.Session, providerID uuid.UUID) (*model.BookingStats, error)
	Review(ctx context.Context, session *model.Session, id uuid.UUID, req model.ReviewCreateRequest) (*model.Review, error)
	GetReview(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Review, error)
}

type BookingHandler struct {
	svc BookingService
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type notesRequest struct {
	Notes string `json:"notes"`
}

func NewBookingHandler(svc BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

// RegisterBookingRoutes mounts the booking endpoints behind the session
// middleware.
func RegisterBookingRoutes(g *router.Group, h *BookingHandler, a *auth.Authenticator) {
	g.POST("/bookings", a.Require(h.CreateBooking))
	g.GET("/bookings", a.Require(h.ListBookings))
	g.GET("/bookings/{id}", a.Require(h.GetBooking))
	g.PUT("/bookings/{id}/status", a.Require(h.UpdateStatus))
	g.POST("/bookings/{id}/cancel", a.Require(h.CancelBooking))
	g.PUT("/bookings/{id}/notes", a.Require(h.AmendNotes))
	g.POST("/bookings/{id}/review", a.Require(h.CreateReview))
	g.GET("/bookings/{id}/review", a.Require(h.GetReview))
	g.GET("/providers/{id}/stats", a.Require(h.ProviderStats))
}

func (h *BookingHandler) CreateBooking(ctx *xhttp.RequestCtx) {
	var req model.BookingCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
		return
	}
	b, err := h.svc.Create(ctx, auth.SessionFrom(ctx), req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, b)
}

func (h *BookingHandler) ListBookings(ctx *xhttp.RequestCtx) {
	var statuses []model.BookingStatus
	for _, raw := range csv(query(ctx, "status")) {
		s, err := model.ParseBookingStatus(raw)
		if err != nil {
			writeServiceError(ctx, err)
			return
		}
		statuses = append(statuses, s)
	}
	limit, offset := paging(ctx)

	page, err := h.svc.List(ctx, auth.SessionFrom(ctx), statuses, limit, offset)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: page.Items, Total: page.Total})
}

func (h *BookingHandler) GetBooking(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	b, err := h.svc.Get(ctx, auth.SessionFrom(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, b)
}

func (h *BookingHandler) UpdateStatus(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req model.BookingStatusUpdate
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
		return
	}
	b, err := h.svc.UpdateStatus(ctx, auth.SessionFrom(ctx), id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, b)
}

// CancelBooking accepts an optional body with a reason.
func (h *BookingHandler) CancelBooking(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req cancelRequest
	if len(ctx.PostBody()) > 0 {
		if err := readJSON(ctx, &req); err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
			return
		}
	}
	b, err := h.svc.Cancel(ctx, auth.SessionFrom(ctx), id, req.Reason)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, b)
}

func (h *BookingHandler) AmendNotes(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req notesRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
		return
	}
	b, err := h.svc.AmendNotes(ctx, auth.SessionFrom(ctx), id, req.Notes)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, b)
}

func (h *BookingHandler) CreateReview(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	var req model.ReviewCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
		return
	}
	rv, err := h.svc.Review(ctx, auth.SessionFrom(ctx), id, req)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, rv)
}

func (h *BookingHandler) GetReview(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	rv, err := h.svc.GetReview(ctx, auth.SessionFrom(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, rv)
}

func (h *BookingHandler) ProviderStats(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	stats, err := h.svc.ProviderStats(ctx, auth.SessionFrom(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, stats)
}

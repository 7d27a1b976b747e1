package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
)

type NotificationService interface {
	List(ctx context.Context, session *model.Session, unreadOnly bool, since *time.Time, limit int) (*services.NotificationPage, error)
	MarkRead(ctx context.Context, session *model.Session, id uuid.UUID) error
	MarkAllRead(ctx context.Context, session *model.Session) (int64, error)
}

type NotificationHandler struct {
	svc NotificationService
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func RegisterNotificationRoutes(g *router.Group, h *NotificationHandler, a *auth.Authenticator) {
	g.GET("/notifications", a.Require(h.ListNotifications))
	g.POST("/notifications/read-all", a.Require(h.MarkAllRead))
	g.POST("/notifications/{id}/read", a.Require(h.MarkRead))
}

func (h *NotificationHandler) ListNotifications(ctx *xhttp.RequestCtx) {
	unread := query(ctx, "unread") == "true" || query(ctx, "unread") == "1"

	var since *time.Time
	if v := query(ctx, "since"); v != "" {
		t, err := parseTime(v)
		if err != nil {
			writeError(ctx, xhttp.StatusBadRequest, "validation", "since must be RFC3339 or YYYY-MM-DD")
			return
		}
		since = &t
	}
	limit := 0
	if v := query(ctx, "limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	page, err := h.svc.List(ctx, auth.SessionFrom(ctx), unread, since, limit)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, page)
}

func (h *NotificationHandler) MarkRead(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	if err := h.svc.MarkRead(ctx, auth.SessionFrom(ctx), id); err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]any{"id": id, "read": true})
}

func (h *NotificationHandler) MarkAllRead(ctx *xhttp.RequestCtx) {
	n, err := h.svc.MarkAllRead(ctx, auth.SessionFrom(ctx))
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, map[string]int64{"updated": n})
}

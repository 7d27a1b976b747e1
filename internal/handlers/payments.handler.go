package handlers

import (
	"context"
	"strings"

	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
)

type PaymentService interface {
	Checkout(ctx context.Context, session *model.Session, req model.CheckoutRequest, opts services.CheckoutOptions) (*model.CheckoutResult, error)
	HandleWebhook(ctx context.Context, apiKey string, payload gateway.Payment) (*model.Transaction, error)
	GetTransaction(ctx context.Context, session *model.Session, id uuid.UUID) (*model.Transaction, error)
	ListTransactions(ctx context.Context, session *model.Session, statuses []model.TransactionStatus, limit, offset int) (*services.TransactionPage, error)
}

type RedirectValidator interface {
	Validate(ctx context.Context, kind services.RedirectKind, p services.RedirectParams) services.Decision
}

type PaymentHandler struct {
	svc       PaymentService
	redirects RedirectValidator
}

func NewPaymentHandler(svc PaymentService, redirects RedirectValidator) *PaymentHandler {
	return &PaymentHandler{svc: svc, redirects: redirects}
}

// RegisterPaymentRoutes mounts checkout, webhook, transaction and redirect
// endpoints. Checkout goes through the per-IP limiter; the webhook is
// authenticated by the gateway API key header instead of a session.
func RegisterPaymentRoutes(g *router.Group, h *PaymentHandler, a *auth.Authenticator, limiter *xhttp.IPRateLimiter) {
	checkout := a.Require(h.Checkout)
	if limiter != nil {
		checkout = limiter.Limit(checkout)
	}
	g.POST("/payments/checkout", checkout)
	g.POST("/payments/webhook", h.Webhook)
	g.GET("/payments/transactions", a.Require(h.ListTransactions))
	g.GET("/payments/transactions/{id}", a.Require(h.GetTransaction))
	g.GET("/payments/redirect/{kind}", a.Optional(h.Redirect))
}

func (h *PaymentHandler) Checkout(ctx *xhttp.RequestCtx) {
	var req model.CheckoutRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
		return
	}
	opts := services.CheckoutOptions{
		Origin:  string(ctx.Request.Header.Peek("Origin")),
		Referer: string(ctx.Request.Header.Referer()),
	}
	res, err := h.svc.Checkout(ctx, auth.SessionFrom(ctx), req, opts)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusCreated, res)
}

func (h *PaymentHandler) Webhook(ctx *xhttp.RequestCtx) {
	apiKey := string(ctx.Request.Header.Peek(gateway.HeaderAPIKey))
	if apiKey == "" {
		writeError(ctx, xhttp.StatusUnauthorized, "invalid_api_key", "missing "+gateway.HeaderAPIKey+" header")
		return
	}
	var payload gateway.Payment
	if err := readJSON(ctx, &payload); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", "invalid json")
		return
	}
	txn, err := h.svc.HandleWebhook(ctx, apiKey, payload)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

func (h *PaymentHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var statuses []model.TransactionStatus
	for _, raw := range csv(query(ctx, "status")) {
		s := model.TransactionStatus(strings.ToLower(raw))
		switch s {
		case model.TransactionPending, model.TransactionCompleted, model.TransactionFailed, model.TransactionWithdrawn:
			statuses = append(statuses, s)
		default:
			writeError(ctx, xhttp.StatusBadRequest, "validation", "unknown transaction status "+raw)
			return
		}
	}
	limit, offset := paging(ctx)

	page, err := h.svc.ListTransactions(ctx, auth.SessionFrom(ctx), statuses, limit, offset)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, listResponse{Items: page.Items, Total: page.Total})
}

func (h *PaymentHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	id, ok := pathUUID(ctx, "id")
	if !ok {
		return
	}
	txn, err := h.svc.GetTransaction(ctx, auth.SessionFrom(ctx), id)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, txn)
}

// Redirect answers whether a payment return page may render. A denied
// request gets 303 to the fallback route with the reason in the body.
func (h *PaymentHandler) Redirect(ctx *xhttp.RequestCtx) {
	raw, _ := ctx.UserValue("kind").(string)
	kind, err := services.ParseRedirectKind(raw)
	if err != nil {
		writeServiceError(ctx, err)
		return
	}
	sessionID := query(ctx, "session_id")
	if sessionID == "" {
		sessionID = query(ctx, "invoice_id")
	}
	d := h.redirects.Validate(ctx, kind, services.RedirectParams{
		SessionID:     sessionID,
		BookingID:     query(ctx, "booking_id"),
		TransactionID: query(ctx, "transaction_id"),
		Gym:           query(ctx, "gym"),
		Plan:          query(ctx, "plan"),
	})
	if !d.Allowed {
		ctx.Response.Header.Set("Location", d.RedirectTo)
		writeJSON(ctx, xhttp.StatusSeeOther, d)
		return
	}
	writeJSON(ctx, xhttp.StatusOK, d)
}

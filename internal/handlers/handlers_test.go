package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/healthythako/booking-service/internal/auth"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
	"github.com/healthythako/booking-service/test/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

type testAPI struct {
	router        *xhttp.Router
	bookings      *MockBookingService
	payments      *MockPaymentService
	redirects     *MockRedirectValidator
	notifications *MockNotificationService
}

func newTestAPI(limiter *xhttp.IPRateLimiter) *testAPI {
	api := &testAPI{
		router:        xhttp.CreateDefaultRouter(),
		bookings:      new(MockBookingService),
		payments:      new(MockPaymentService),
		redirects:     new(MockRedirectValidator),
		notifications: new(MockNotificationService),
	}
	a := auth.New(helpers.TestJWTSecret, helpers.TestJWTIssuer)
	g := api.router.Group("/api/v1")
	RegisterBookingRoutes(g, NewBookingHandler(api.bookings), a)
	RegisterPaymentRoutes(g, NewPaymentHandler(api.payments, api.redirects), a, limiter)
	RegisterNotificationRoutes(g, NewNotificationHandler(api.notifications), a)
	return api
}

type request struct {
	method  string
	uri     string
	token   string
	body    any
	headers map[string]string
}

func (api *testAPI) do(r request) *fasthttp.RequestCtx {
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(r.method)
	ctx.Request.SetRequestURI(r.uri)
	if r.token != "" {
		ctx.Request.Header.Set("Authorization", "Bearer "+r.token)
	}
	for k, v := range r.headers {
		ctx.Request.Header.Set(k, v)
	}
	switch b := r.body.(type) {
	case nil:
	case string:
		ctx.Request.SetBodyString(b)
	default:
		raw, _ := json.Marshal(b)
		ctx.Request.SetBody(raw)
	}
	api.router.Handler(ctx)
	return ctx
}

func decodeError(t *testing.T, ctx *fasthttp.RequestCtx) errorResponse {
	t.Helper()
	var res errorResponse
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
	return res
}

func sessionOf(s *model.Session) any {
	return mock.MatchedBy(func(got *model.Session) bool { return got != nil && got.UserID == s.UserID })
}

func TestBookingHandler_Create(t *testing.T) {
	client := helpers.NewSession(model.RoleClient)
	token := helpers.IssueToken(t, client)

	t.Run("created", func(t *testing.T) {
		api := newTestAPI(nil)
		provider := uuid.New()
		want := &model.Booking{ID: uuid.New(), ClientID: client.UserID, ProviderID: provider, Status: model.BookingPending}
		api.bookings.On("Create", mock.Anything, sessionOf(client), mock.MatchedBy(func(r model.BookingCreateRequest) bool {
			return r.ProviderID == provider && r.Date == "2025-06-01"
		})).Return(want, nil)

		ctx := api.do(request{method: "POST", uri: "/api/v1/bookings", token: token, body: map[string]any{
			"provider_id": provider, "provider_type": "trainer", "date": "2025-06-01", "time": "10:00",
			"session_mode": "online", "amount": "1000",
		}})

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var got model.Booking
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, model.BookingPending, got.Status)
		api.bookings.AssertExpectations(t)
	})

	t.Run("no token", func(t *testing.T) {
		api := newTestAPI(nil)
		ctx := api.do(request{method: "POST", uri: "/api/v1/bookings", body: map[string]any{}})
		assert.Equal(t, 401, ctx.Response.StatusCode())
		api.bookings.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("invalid json", func(t *testing.T) {
		api := newTestAPI(nil)
		ctx := api.do(request{method: "POST", uri: "/api/v1/bookings", token: token, body: "{nope"})
		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Equal(t, "validation", decodeError(t, ctx).Code)
	})

	t.Run("validation error", func(t *testing.T) {
		api := newTestAPI(nil)
		api.bookings.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("%w: amount must be positive", model.ErrValidation))
		ctx := api.do(request{method: "POST", uri: "/api/v1/bookings", token: token, body: map[string]any{}})
		assert.Equal(t, 400, ctx.Response.StatusCode())
		assert.Contains(t, decodeError(t, ctx).Error, "amount must be positive")
	})
}

func TestBookingHandler_ErrorMapping(t *testing.T) {
	client := helpers.NewSession(model.RoleClient)
	token := helpers.IssueToken(t, client)
	id := uuid.New()

	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"forbidden", services.ErrForbidden, 403, "forbidden"},
		{"not found", services.ErrNotFound, 404, "not_found"},
		{"transition", model.ValidateTransition(model.BookingCancelled, model.BookingCancelled), 409, "invalid_transition"},
		{"concurrent", services.ErrConcurrentUpdate, 409, "conflict"},
		{"unauthenticated", services.ErrUnauthenticated, 401, "unauthenticated"},
		{"unexpected", errors.New("db down"), 500, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newTestAPI(nil)
			api.bookings.On("Cancel", mock.Anything, sessionOf(client), id, "").Return(nil, tc.err)

			ctx := api.do(request{method: "POST", uri: "/api/v1/bookings/" + id.String() + "/cancel", token: token})

			assert.Equal(t, tc.status, ctx.Response.StatusCode())
			assert.Equal(t, tc.code, decodeError(t, ctx).Code)
		})
	}
}

func TestBookingHandler_Cancel(t *testing.T) {
	client := helpers.NewSession(model.RoleClient)
	token := helpers.IssueToken(t, client)
	api := newTestAPI(nil)
	id := uuid.New()

	api.bookings.On("Cancel", mock.Anything, sessionOf(client), id, "sick").
		Return(&model.Booking{ID: id, Status: model.BookingCancelled}, nil)

	ctx := api.do(request{method: "POST", uri: "/api/v1/bookings/" + id.String() + "/cancel", token: token, body: map[string]string{"reason": "sick"}})

	assert.Equal(t, 200, ctx.Response.StatusCode())
	var got model.Booking
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
	assert.Equal(t, model.BookingCancelled, got.Status)
}

func TestBookingHandler_BadPathID(t *testing.T) {
	api := newTestAPI(nil)
	token := helpers.IssueToken(t, helpers.NewSession(model.RoleClient))

	ctx := api.do(request{method: "GET", uri: "/api/v1/bookings/42", token: token})

	assert.Equal(t, 400, ctx.Response.StatusCode())
	api.bookings.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}

func TestBookingHandler_List(t *testing.T) {
	provider := helpers.NewSession(model.RoleTrainer)
	token := helpers.IssueToken(t, provider)

	t.Run("status filter with legacy alias", func(t *testing.T) {
		api := newTestAPI(nil)
		api.bookings.On("List", mock.Anything, sessionOf(provider),
			[]model.BookingStatus{model.BookingPending, model.BookingConfirmed}, 10, 5).
			Return(&services.BookingPage{Items: []*model.Booking{{ID: uuid.New()}}, Total: 11}, nil)

		ctx := api.do(request{method: "GET", uri: "/api/v1/bookings?status=pending,accepted&limit=10&offset=5", token: token})

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var got struct {
			Items []model.Booking `json:"items"`
			Total int64           `json:"total"`
		}
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Len(t, got.Items, 1)
		assert.Equal(t, int64(11), got.Total)
	})

	t.Run("unknown status", func(t *testing.T) {
		api := newTestAPI(nil)
		ctx := api.do(request{method: "GET", uri: "/api/v1/bookings?status=done", token: token})
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestBookingHandler_UpdateStatusAndReview(t *testing.T) {
	provider := helpers.NewSession(model.RoleGymOwner)
	id := uuid.New()

	api := newTestAPI(nil)
	api.bookings.On("UpdateStatus", mock.Anything, sessionOf(provider), id, model.BookingStatusUpdate{Status: "confirmed"}).
		Return(&model.Booking{ID: id, Status: model.BookingConfirmed}, nil)

	ctx := api.do(request{method: "PUT", uri: "/api/v1/bookings/" + id.String() + "/status",
		token: helpers.IssueToken(t, provider), body: map[string]string{"status": "confirmed"}})
	assert.Equal(t, 200, ctx.Response.StatusCode())

	client := helpers.NewSession(model.RoleClient)
	api.bookings.On("Review", mock.Anything, sessionOf(client), id, model.ReviewCreateRequest{Rating: 5, Comment: "great"}).
		Return(nil, services.ErrNotReviewable)

	ctx = api.do(request{method: "POST", uri: "/api/v1/bookings/" + id.String() + "/review",
		token: helpers.IssueToken(t, client), body: map[string]any{"rating": 5, "comment": "great"}})
	assert.Equal(t, 409, ctx.Response.StatusCode())
	api.bookings.AssertExpectations(t)
}

func TestPaymentHandler_Checkout(t *testing.T) {
	client := helpers.NewSession(model.RoleClient)
	token := helpers.IssueToken(t, client)

	t.Run("passes origin and referer", func(t *testing.T) {
		api := newTestAPI(nil)
		res := &model.CheckoutResult{TransactionID: uuid.New(), PaymentURL: "https://pay.example/abc", InvoiceID: "inv-1"}
		api.payments.On("Checkout", mock.Anything, sessionOf(client), mock.Anything,
			services.CheckoutOptions{Origin: "https://app.example", Referer: "https://app.example/plans"}).
			Return(res, nil)

		ctx := api.do(request{method: "POST", uri: "/api/v1/payments/checkout", token: token,
			body:    map[string]any{"amount": "500", "currency": "BDT", "customer_email": "a@b.com"},
			headers: map[string]string{"Origin": "https://app.example", "Referer": "https://app.example/plans"}})

		assert.Equal(t, 201, ctx.Response.StatusCode())
		var got model.CheckoutResult
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Equal(t, "inv-1", got.InvoiceID)
		assert.NotEmpty(t, got.PaymentURL)
	})

	t.Run("gateway failure is 502", func(t *testing.T) {
		api := newTestAPI(nil)
		api.payments.On("Checkout", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &gateway.GatewayError{StatusCode: 500, Message: "upstream"})
		ctx := api.do(request{method: "POST", uri: "/api/v1/payments/checkout", token: token, body: map[string]any{"amount": "500"}})
		assert.Equal(t, 502, ctx.Response.StatusCode())
		assert.Equal(t, "gateway", decodeError(t, ctx).Code)
	})

	t.Run("missing configuration is 500", func(t *testing.T) {
		api := newTestAPI(nil)
		api.payments.On("Checkout", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, gateway.ErrConfiguration)
		ctx := api.do(request{method: "POST", uri: "/api/v1/payments/checkout", token: token, body: map[string]any{"amount": "500"}})
		assert.Equal(t, 500, ctx.Response.StatusCode())
		assert.Equal(t, "configuration", decodeError(t, ctx).Code)
	})

	t.Run("rate limited", func(t *testing.T) {
		api := newTestAPI(xhttp.NewIPRateLimiter(1, 1))
		api.payments.On("Checkout", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&model.CheckoutResult{}, nil)
		first := api.do(request{method: "POST", uri: "/api/v1/payments/checkout", token: token, body: map[string]any{"amount": "500"}})
		second := api.do(request{method: "POST", uri: "/api/v1/payments/checkout", token: token, body: map[string]any{"amount": "500"}})
		assert.Equal(t, 201, first.Response.StatusCode())
		assert.Equal(t, 429, second.Response.StatusCode())
	})
}

func TestPaymentHandler_Webhook(t *testing.T) {
	t.Run("missing key", func(t *testing.T) {
		api := newTestAPI(nil)
		ctx := api.do(request{method: "POST", uri: "/api/v1/payments/webhook", body: map[string]string{"invoice_id": "inv-1"}})
		assert.Equal(t, 401, ctx.Response.StatusCode())
		api.payments.AssertNotCalled(t, "HandleWebhook", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("wrong key", func(t *testing.T) {
		api := newTestAPI(nil)
		api.payments.On("HandleWebhook", mock.Anything, "wrong", mock.Anything).Return(nil, services.ErrUnauthorizedWebhook)
		ctx := api.do(request{method: "POST", uri: "/api/v1/payments/webhook",
			body: map[string]string{"invoice_id": "inv-1"}, headers: map[string]string{gateway.HeaderAPIKey: "wrong"}})
		assert.Equal(t, 401, ctx.Response.StatusCode())
		assert.Equal(t, "invalid_api_key", decodeError(t, ctx).Code)
	})

	t.Run("completed", func(t *testing.T) {
		api := newTestAPI(nil)
		api.payments.On("HandleWebhook", mock.Anything, "secret", mock.MatchedBy(func(p gateway.Payment) bool {
			return p.InvoiceID == "inv-1" && p.Status == gateway.PaymentCompleted
		})).Return(&model.Transaction{ID: uuid.New(), Status: model.TransactionCompleted}, nil)

		ctx := api.do(request{method: "POST", uri: "/api/v1/payments/webhook",
			body:    map[string]string{"invoice_id": "inv-1", "status": "COMPLETED"},
			headers: map[string]string{gateway.HeaderAPIKey: "secret"}})

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var got model.Transaction
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Equal(t, model.TransactionCompleted, got.Status)
	})
}

func TestPaymentHandler_Transactions(t *testing.T) {
	client := helpers.NewSession(model.RoleClient)
	token := helpers.IssueToken(t, client)
	api := newTestAPI(nil)

	api.payments.On("ListTransactions", mock.Anything, sessionOf(client), []model.TransactionStatus{model.TransactionPending}, 0, 0).
		Return(&services.TransactionPage{Items: []*model.Transaction{}, Total: 0}, nil)
	ctx := api.do(request{method: "GET", uri: "/api/v1/payments/transactions?status=PENDING", token: token})
	assert.Equal(t, 200, ctx.Response.StatusCode())

	ctx = api.do(request{method: "GET", uri: "/api/v1/payments/transactions?status=refunded", token: token})
	assert.Equal(t, 400, ctx.Response.StatusCode())

	id := uuid.New()
	api.payments.On("GetTransaction", mock.Anything, sessionOf(client), id).Return(nil, services.ErrNotFound)
	ctx = api.do(request{method: "GET", uri: "/api/v1/payments/transactions/" + id.String(), token: token})
	assert.Equal(t, 404, ctx.Response.StatusCode())
}

func TestPaymentHandler_Redirect(t *testing.T) {
	t.Run("allowed", func(t *testing.T) {
		api := newTestAPI(nil)
		bookingID := uuid.NewString()
		api.redirects.On("Validate", mock.Anything, services.RedirectSuccess, services.RedirectParams{SessionID: "inv-9", BookingID: bookingID}).
			Return(services.Decision{Allowed: true, Kind: services.RedirectSuccess, BookingID: bookingID})

		ctx := api.do(request{method: "GET", uri: "/api/v1/payments/redirect/success?invoice_id=inv-9&booking_id=" + bookingID})

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var d services.Decision
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &d))
		assert.True(t, d.Allowed)
		assert.Equal(t, bookingID, d.BookingID)
	})

	t.Run("denied redirects home", func(t *testing.T) {
		api := newTestAPI(nil)
		api.redirects.On("Validate", mock.Anything, services.RedirectSuccess, services.RedirectParams{}).
			Return(services.Decision{Kind: services.RedirectSuccess, RedirectTo: "/", Reason: "Invalid payment session"})

		ctx := api.do(request{method: "GET", uri: "/api/v1/payments/redirect/success"})

		assert.Equal(t, 303, ctx.Response.StatusCode())
		assert.Equal(t, "/", string(ctx.Response.Header.Peek("Location")))
		var d services.Decision
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &d))
		assert.Equal(t, "Invalid payment session", d.Reason)
	})

	t.Run("cancel alias", func(t *testing.T) {
		api := newTestAPI(nil)
		api.redirects.On("Validate", mock.Anything, services.RedirectCancelled, mock.Anything).
			Return(services.Decision{Allowed: true, Kind: services.RedirectCancelled})
		ctx := api.do(request{method: "GET", uri: "/api/v1/payments/redirect/canceled"})
		assert.Equal(t, 200, ctx.Response.StatusCode())
	})

	t.Run("unknown kind", func(t *testing.T) {
		api := newTestAPI(nil)
		ctx := api.do(request{method: "GET", uri: "/api/v1/payments/redirect/maybe"})
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})
}

func TestNotificationHandler(t *testing.T) {
	user := helpers.NewSession(model.RoleClient)
	token := helpers.IssueToken(t, user)

	t.Run("list unread", func(t *testing.T) {
		api := newTestAPI(nil)
		api.notifications.On("List", mock.Anything, sessionOf(user), true, mock.MatchedBy(func(s any) bool {
			return s != nil
		}), 20).Return(&services.NotificationPage{UnreadCount: 3}, nil)

		ctx := api.do(request{method: "GET", uri: "/api/v1/notifications?unread=true&limit=20&since=2025-06-01T00:00:00Z", token: token})

		assert.Equal(t, 200, ctx.Response.StatusCode())
		var page services.NotificationPage
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &page))
		assert.Equal(t, int64(3), page.UnreadCount)
	})

	t.Run("bad since", func(t *testing.T) {
		api := newTestAPI(nil)
		ctx := api.do(request{method: "GET", uri: "/api/v1/notifications?since=yesterday", token: token})
		assert.Equal(t, 400, ctx.Response.StatusCode())
	})

	t.Run("mark read and read-all", func(t *testing.T) {
		api := newTestAPI(nil)
		id := uuid.New()
		api.notifications.On("MarkRead", mock.Anything, sessionOf(user), id).Return(nil)
		api.notifications.On("MarkAllRead", mock.Anything, sessionOf(user)).Return(int64(4), nil)

		ctx := api.do(request{method: "POST", uri: "/api/v1/notifications/" + id.String() + "/read", token: token})
		assert.Equal(t, 200, ctx.Response.StatusCode())

		ctx = api.do(request{method: "POST", uri: "/api/v1/notifications/read-all", token: token})
		assert.Equal(t, 200, ctx.Response.StatusCode())
		var got map[string]int64
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &got))
		assert.Equal(t, int64(4), got["updated"])
		api.notifications.AssertExpectations(t)
	})
}

func TestHealthHandler(t *testing.T) {
	r := xhttp.CreateDefaultRouter()
	healthy := true
	RegisterHealthRoutes(r.Group("/api/v1"), NewHealthHandler(
		HealthCheck{Name: "database", Check: func(context.Context) error { return nil }},
		HealthCheck{Name: "config", Check: func(context.Context) error {
			if healthy {
				return nil
			}
			return errors.New("missing GATEWAY_API_KEY")
		}},
	).Report("gateway", func() any { return map[string]int{"total_requests": 2} }))

	get := func() (*fasthttp.RequestCtx, healthResponse) {
		ctx := &fasthttp.RequestCtx{}
		ctx.Request.Header.SetMethod("GET")
		ctx.Request.SetRequestURI("/api/v1/health")
		r.Handler(ctx)
		var res healthResponse
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &res))
		return ctx, res
	}

	ctx, res := get()
	assert.Equal(t, 200, ctx.Response.StatusCode())
	assert.Equal(t, "ok", res.Status)
	assert.NotNil(t, res.Reports["gateway"])

	healthy = false
	ctx, res = get()
	assert.Equal(t, 503, ctx.Response.StatusCode())
	assert.Equal(t, "missing GATEWAY_API_KEY", res.Checks["config"])
}

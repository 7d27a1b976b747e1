package e2e

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/healthythako/booking-service/internal/auth"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/handlers"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/queue"
	"github.com/healthythako/booking-service/internal/repository"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
	"github.com/healthythako/booking-service/pkg/pg"
	"github.com/healthythako/booking-service/pkg/redis"
	"github.com/healthythako/booking-service/test/helpers"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

const (
	gatewayKey = "test-api-key"
	appOrigin  = "https://app.healthythako.test"
)

// fakeUddoktaPay answers checkout-v2 and verify-payment from memory.
type fakeUddoktaPay struct {
	mu       sync.Mutex
	server   *httptest.Server
	invoices map[string]*gateway.Payment
	failing  bool
	seq      int
}

func newFakeUddoktaPay(t *testing.T) *fakeUddoktaPay {
	f := &fakeUddoktaPay{invoices: map[string]*gateway.Payment{}}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/checkout-v2", f.checkout)
	mux.HandleFunc("/api/verify-payment", f.verify)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeUddoktaPay) checkout(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(gateway.HeaderAPIKey) != gatewayKey {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Unauthorized Action"})
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "upstream unavailable"})
		return
	}
	var req gateway.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	f.seq++
	id := fmt.Sprintf("INV%05d", f.seq)
	f.invoices[id] = &gateway.Payment{
		FullName:  req.FullName,
		Email:     req.Email,
		Amount:    req.Amount,
		InvoiceID: id,
		Metadata:  req.Metadata,
		Status:    gateway.PaymentPending,
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      true,
		"message":     "Payment Url",
		"payment_url": f.server.URL + "/pay/" + id,
	})
}

func (f *fakeUddoktaPay) verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InvoiceID string `json:"invoice_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	f.mu.Lock()
	p, ok := f.invoices[req.InvoiceID]
	var out gateway.Payment
	if ok {
		out = *p
	}
	f.mu.Unlock()
	if !ok {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": false, "message": "Invoice not found"})
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (f *fakeUddoktaPay) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

// settle marks an invoice paid (or failed) and returns the webhook body the
// gateway would send.
func (f *fakeUddoktaPay) settle(t *testing.T, invoiceID string, status gateway.PaymentStatus) gateway.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.invoices[invoiceID]
	require.True(t, ok, "unknown invoice %s", invoiceID)
	p.Status = status
	p.PaymentMethod = "bkash"
	p.TransactionID = "TRX" + invoiceID
	p.Fee = p.Amount.Mul(decimal.RequireFromString("0.015"))
	p.ChargedAmount = p.Amount.Add(p.Fee)
	p.Date = time.Now().Format("2006-01-02 15:04:05")
	return *p
}

type testEnv struct {
	DB            *pg.DB
	Redis         *miniredis.Miniredis
	Adapter       redis.RedisAdapter
	Queue         *queue.Queue
	Upstream      *fakeUddoktaPay
	Notifications *services.NotificationService
	Bookings      *services.BookingService
	Payments      *services.PaymentService
	Router        *xhttp.Router
	handler       xhttp.RequestHandler
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db := helpers.SetupTestDB(t)
	mr, adapter := helpers.SetupTestRedis(t)

	q, err := queue.NewQueue(adapter, queue.QueueConfig{
		Name:              "notifications",
		ConsumerGroup:     "notification-push",
		ConsumerName:      "api",
		MaxRetries:        3,
		VisibilityTimeout: time.Second,
		PollInterval:      10 * time.Millisecond,
		BatchSize:         10,
		MaxLen:            1000,
		EnableDLQ:         true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = q.Stop(time.Second) })

	upstream := newFakeUddoktaPay(t)

	bookingRepo := repository.NewBookingRepository(db)
	transactionRepo := repository.NewTransactionRepository(db)
	notifications := services.NewNotificationService(repository.NewNotificationRepository(db), q)
	bookings := services.NewBookingService(bookingRepo, repository.NewReviewRepository(db), notifications,
		services.NewBookingCache(adapter, time.Minute))
	payments := services.NewPaymentService(transactionRepo, bookingRepo,
		gateway.NewClient(gateway.Config{BaseURL: upstream.server.URL + "/api", APIKey: gatewayKey, Timeout: 5 * time.Second}),
		notifications, services.PaymentConfig{
			Currency:       "BDT",
			CommissionRate: decimal.RequireFromString("0.10"),
			URLs: gateway.URLConfig{
				AppBaseURL:     "https://healthythako.test",
				SuccessPath:    "/payment-redirect/success",
				CancelPath:     "/payment-redirect/cancelled",
				DeepLinkScheme: "healthythako",
			},
		})

	a := auth.New(helpers.TestJWTSecret, helpers.TestJWTIssuer)
	r := xhttp.CreateDefaultRouter()
	g := r.Group("/api/v1")
	handlers.RegisterHealthRoutes(g, handlers.NewHealthHandler(handlers.HealthCheck{Name: "postgres", Check: db.Ping}))
	handlers.RegisterBookingRoutes(g, handlers.NewBookingHandler(bookings), a)
	handlers.RegisterPaymentRoutes(g, handlers.NewPaymentHandler(payments,
		services.NewRedirectValidator(bookingRepo, transactionRepo)), a, nil)
	handlers.RegisterNotificationRoutes(g, handlers.NewNotificationHandler(notifications), a)

	return &testEnv{
		DB:            db,
		Redis:         mr,
		Adapter:       adapter,
		Queue:         q,
		Upstream:      upstream,
		Notifications: notifications,
		Bookings:      bookings,
		Payments:      payments,
		Router:        r,
		handler:       xhttp.RequestIDMiddleware(r.Handler),
	}
}

type call struct {
	method  string
	path    string
	session *model.Session
	body    any
	headers map[string]string
}

type result struct {
	Status int
	Body   []byte
	Header *fasthttp.ResponseHeader
}

func (r result) decode(t *testing.T, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(r.Body, v), string(r.Body))
}

func (env *testEnv) do(t *testing.T, c call) result {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(c.method)
	ctx.Request.SetRequestURI("/api/v1" + c.path)
	if c.session != nil {
		ctx.Request.Header.Set("Authorization", "Bearer "+helpers.IssueToken(t, c.session))
	}
	for k, v := range c.headers {
		ctx.Request.Header.Set(k, v)
	}
	if c.body != nil {
		raw, err := json.Marshal(c.body)
		require.NoError(t, err)
		ctx.Request.SetBody(raw)
	}
	env.handler(ctx)

	body := make([]byte, len(ctx.Response.Body()))
	copy(body, ctx.Response.Body())
	hdr := &fasthttp.ResponseHeader{}
	ctx.Response.Header.CopyTo(hdr)
	return result{Status: ctx.Response.StatusCode(), Body: body, Header: hdr}
}

type notificationList struct {
	Items       []model.Notification `json:"items"`
	UnreadCount int64                `json:"unread_count"`
}

func (env *testEnv) notificationsFor(t *testing.T, s *model.Session) notificationList {
	t.Helper()
	res := env.do(t, call{method: "GET", path: "/notifications", session: s})
	require.Equal(t, http.StatusOK, res.Status, string(res.Body))
	var out notificationList
	res.decode(t, &out)
	return out
}

func titles(list notificationList) []string {
	out := make([]string, 0, len(list.Items))
	for _, n := range list.Items {
		out = append(out, n.Title)
	}
	return out
}

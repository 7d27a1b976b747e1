package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

const headerAPIKey = "RT-UDDOKTAPAY-API-KEY"

type PaymentStatus string

const (
	StatusCompleted PaymentStatus = "COMPLETED"
	StatusPending   PaymentStatus = "PENDING"
	StatusError     PaymentStatus = "ERROR"
)

type CheckoutRequest struct {
	FullName    string          `json:"full_name"`
	Email       string          `json:"email" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Metadata    map[string]any  `json:"metadata"`
	RedirectURL string          `json:"redirect_url" binding:"required"`
	ReturnType  string          `json:"return_type"`
	CancelURL   string          `json:"cancel_url" binding:"required"`
	WebhookURL  string          `json:"webhook_url"`
}

// Invoice mirrors the verify-payment response body.
type Invoice struct {
	FullName      string          `json:"full_name"`
	Email         string          `json:"email"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	ChargedAmount decimal.Decimal `json:"charged_amount"`
	InvoiceID     string          `json:"invoice_id"`
	Metadata      map[string]any  `json:"metadata"`
	PaymentMethod string          `json:"payment_method"`
	SenderNumber  string          `json:"sender_number"`
	TransactionID string          `json:"transaction_id"`
	Date          string          `json:"date"`
	Status        PaymentStatus   `json:"status"`

	redirectURL string
	cancelURL   string
	webhookURL  string
}

// MockGateway keeps invoices in memory and settles them when the hosted
// payment page is visited.
type MockGateway struct {
	mu          sync.RWMutex
	apiKey      string
	publicURL   string
	successRate float64
	invoices    map[string]*Invoice
	rng         *rand.Rand
	webhook     *fasthttp.Client
}

func NewMockGateway(apiKey, publicURL string, successRate float64) *MockGateway {
	return &MockGateway{
		apiKey:      apiKey,
		publicURL:   strings.TrimRight(publicURL, "/"),
		successRate: successRate,
		invoices:    make(map[string]*Invoice),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		webhook:     &fasthttp.Client{ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second},
	}
}

func (m *MockGateway) requireKey(c *gin.Context) {
	if c.GetHeader(headerAPIKey) != m.apiKey {
		log.Warn().Str("path", c.Request.URL.Path).Msg("rejected request with bad api key")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": false, "message": "Unauthorized Action"})
		return
	}
	c.Next()
}

func (m *MockGateway) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}
	if !req.Amount.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": "amount must be positive"})
		return
	}

	inv := &Invoice{
		FullName:    req.FullName,
		Email:       req.Email,
		Amount:      req.Amount,
		InvoiceID:   strings.ReplaceAll(uuid.NewString(), "-", "")[:20],
		Metadata:    req.Metadata,
		Status:      StatusPending,
		redirectURL: req.RedirectURL,
		cancelURL:   req.CancelURL,
		webhookURL:  req.WebhookURL,
	}
	m.mu.Lock()
	m.invoices[inv.InvoiceID] = inv
	m.mu.Unlock()

	log.Info().
		Str("invoice_id", inv.InvoiceID).
		Str("email", req.Email).
		Str("amount", req.Amount.String()).
		Msg("checkout session created")

	c.JSON(http.StatusOK, gin.H{
		"status":      true,
		"message":     "Payment Url",
		"payment_url": m.publicURL + "/payment/" + inv.InvoiceID,
	})
}

func (m *MockGateway) Verify(c *gin.Context) {
	var req struct {
		InvoiceID string `json:"invoice_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": false, "message": err.Error()})
		return
	}
	m.mu.RLock()
	inv, ok := m.invoices[req.InvoiceID]
	var out Invoice
	if ok {
		out = *inv
	}
	m.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": false, "message": "Invoice not found"})
		return
	}
	c.JSON(http.StatusOK, out)
}

// Pay simulates the customer completing (or abandoning) the hosted page.
// ?outcome=cancel sends the browser to the cancel URL without settling.
func (m *MockGateway) Pay(c *gin.Context) {
	id := c.Param("invoice_id")
	m.mu.Lock()
	inv, ok := m.invoices[id]
	if !ok {
		m.mu.Unlock()
		c.JSON(http.StatusNotFound, gin.H{"status": false, "message": "Invoice not found"})
		return
	}
	if c.Query("outcome") == "cancel" {
		target := inv.cancelURL
		m.mu.Unlock()
		c.Redirect(http.StatusFound, target)
		return
	}
	if inv.Status == StatusPending {
		m.settle(inv)
	}
	snapshot := *inv
	m.mu.Unlock()

	if snapshot.webhookURL != "" {
		go m.sendWebhook(snapshot)
	}
	c.Redirect(http.StatusFound, withInvoice(snapshot.redirectURL, snapshot.InvoiceID))
}

// settle must be called with mu held.
func (m *MockGateway) settle(inv *Invoice) {
	inv.Date = time.Now().Format("2006-01-02 15:04:05")
	inv.PaymentMethod = "bkash"
	inv.SenderNumber = "01700000000"
	inv.TransactionID = strings.ToUpper(uuid.NewString()[:10])
	inv.Fee = inv.Amount.Mul(decimal.RequireFromString("0.015")).Round(2)
	inv.ChargedAmount = inv.Amount.Add(inv.Fee)
	if m.rng.Float64() < m.successRate {
		inv.Status = StatusCompleted
		log.Info().Str("invoice_id", inv.InvoiceID).Msg("payment completed")
		return
	}
	inv.Status = StatusError
	log.Warn().Str("invoice_id", inv.InvoiceID).Msg("payment failed")
}

func (m *MockGateway) sendWebhook(inv Invoice) {
	body, _ := json.Marshal(inv)
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(inv.webhookURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set(headerAPIKey, m.apiKey)
	req.SetBody(body)

	if err := m.webhook.DoTimeout(req, resp, 10*time.Second); err != nil {
		log.Error().Err(err).Str("invoice_id", inv.InvoiceID).Msg("webhook delivery failed")
		return
	}
	log.Info().
		Str("invoice_id", inv.InvoiceID).
		Int("status", resp.StatusCode()).
		Msg("webhook delivered")
}

func (m *MockGateway) HealthCheck(c *gin.Context) {
	m.mu.RLock()
	n := len(m.invoices)
	rate := m.successRate
	m.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "invoices": n, "success_rate": rate})
}

func (m *MockGateway) UpdateConfig(c *gin.Context) {
	var cfg struct {
		SuccessRate *float64 `json:"success_rate"`
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}
	m.mu.Lock()
	if cfg.SuccessRate != nil && *cfg.SuccessRate >= 0 && *cfg.SuccessRate <= 1 {
		m.successRate = *cfg.SuccessRate
		log.Info().Float64("rate", *cfg.SuccessRate).Msg("updated success rate")
	}
	rate := m.successRate
	m.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"success_rate": rate})
}

func withInvoice(raw, invoiceID string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("invoice_id", invoiceID)
	u.RawQuery = q.Encode()
	return u.String()
}

func SetupRouter(m *MockGateway) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request processed")
	})

	api := router.Group("/api", m.requireKey)
	{
		api.POST("/checkout-v2", m.Checkout)
		api.POST("/verify-payment", m.Verify)
	}
	router.GET("/payment/:invoice_id", m.Pay)
	router.PUT("/config", m.UpdateConfig)
	router.GET("/health", m.HealthCheck)
	return router
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	port := getEnv("PORT", "8081")
	apiKey := getEnv("GATEWAY_API_KEY", "mock-api-key")
	publicURL := getEnv("PUBLIC_URL", "http://localhost:"+port)
	successRate := getEnvFloat("SUCCESS_RATE", 1)

	log.Info().
		Str("port", port).
		Str("public_url", publicURL).
		Float64("success_rate", successRate).
		Msg("starting mock payment gateway")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      SetupRouter(NewMockGateway(apiKey, publicURL, successRate)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}
	log.Info().Msg("server exited")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var f float64
		if _, err := fmt.Sscanf(value, "%f", &f); err == nil {
			return f
		}
	}
	return defaultValue
}

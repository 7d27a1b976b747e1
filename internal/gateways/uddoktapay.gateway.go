package gateway

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/healthythako/booking-service/pkg/logger"
	"github.com/healthythako/booking-service/pkg/prom"
	"github.com/shopspring/decimal"
	"github.com/valyala/fasthttp"
)

const HeaderAPIKey = "RT-UDDOKTAPAY-API-KEY"

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentError     PaymentStatus = "ERROR"
)

type Config struct {
	BaseURL    string
	APIKey     string
	WebhookURL string
	Timeout    time.Duration
	MaxConns   int
}

// CheckoutRequest is the body of POST /checkout-v2.
type CheckoutRequest struct {
	FullName    string          `json:"full_name"`
	Email       string          `json:"email"`
	Amount      decimal.Decimal `json:"amount"`
	Metadata    map[string]any  `json:"metadata"`
	RedirectURL string          `json:"redirect_url"`
	ReturnType  string          `json:"return_type"`
	CancelURL   string          `json:"cancel_url"`
	WebhookURL  string          `json:"webhook_url,omitempty"`
}

type CheckoutSession struct {
	PaymentURL string `json:"payment_url"`
	InvoiceID  string `json:"invoice_id"`
}

// Payment is the gateway's record of a payment. verify-payment answers
// with it and webhook callbacks carry the same shape.
type Payment struct {
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
}

// MetadataString reads a string value the checkout put into metadata.
func (p *Payment) MetadataString(key string) string {
	if v, ok := p.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// Status is only trusted when present; the payment_url decides success.
type checkoutResponse struct {
	Status     *bool  `json:"status"`
	Message    string `json:"message"`
	PaymentURL string `json:"payment_url"`
	InvoiceID  string `json:"invoice_id"`
}

type errorBody struct {
	Status  *bool  `json:"status"`
	Message string `json:"message"`
}

type Client struct {
	config  Config
	client  *fasthttp.Client
	metrics *ProviderMetrics
}

func NewClient(config Config) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.MaxConns <= 0 {
		config.MaxConns = 64
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config: config,
		client: &fasthttp.Client{
			Name:                "healthythako-booking",
			MaxConnsPerHost:     config.MaxConns,
			ReadTimeout:         config.Timeout,
			WriteTimeout:        config.Timeout,
			MaxIdleConnDuration: 60 * time.Second,
		},
		metrics: NewProviderMetrics(),
	}
}

func (c *Client) configured() error {
	if c.config.BaseURL == "" {
		return fmt.Errorf("%w: GATEWAY_BASE_URL is empty", ErrConfiguration)
	}
	if c.config.APIKey == "" {
		return fmt.Errorf("%w: GATEWAY_API_KEY is empty", ErrConfiguration)
	}
	return nil
}

// CreateCheckout opens a hosted checkout session. It is not retried: a
// failed call is reported and the user starts over.
func (c *Client) CreateCheckout(ctx context.Context, req *CheckoutRequest) (*CheckoutSession, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	if req.ReturnType == "" {
		req.ReturnType = "GET"
	}
	if req.WebhookURL == "" {
		req.WebhookURL = c.config.WebhookURL
	}
	if req.Metadata == nil {
		req.Metadata = map[string]any{}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	raw, err := c.call(ctx, "checkout", "/checkout-v2", body)
	if err != nil {
		return nil, err
	}

	var resp checkoutResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &GatewayError{Message: "unreadable checkout response"}
	}
	if resp.Status != nil && !*resp.Status {
		msg := resp.Message
		if msg == "" {
			msg = "checkout rejected"
		}
		return nil, &GatewayError{Message: msg}
	}
	if resp.PaymentURL == "" {
		return nil, &GatewayError{Message: "response has no payment_url"}
	}

	session := &CheckoutSession{PaymentURL: resp.PaymentURL, InvoiceID: resp.InvoiceID}
	if session.InvoiceID == "" {
		session.InvoiceID = invoiceFromURL(resp.PaymentURL)
	}
	logger.Info("checkout session created", "invoice_id", session.InvoiceID, "amount", req.Amount.String())
	return session, nil
}

// VerifyPayment asks the gateway for the authoritative state of an invoice.
func (c *Client) VerifyPayment(ctx context.Context, invoiceID string) (*Payment, error) {
	if err := c.configured(); err != nil {
		return nil, err
	}
	body, _ := json.Marshal(map[string]string{"invoice_id": invoiceID})

	raw, err := c.call(ctx, "verify", "/verify-payment", body)
	if err != nil {
		return nil, err
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err == nil && eb.Status != nil && !*eb.Status {
		return nil, &GatewayError{Message: eb.Message}
	}

	var p Payment
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &GatewayError{Message: "unreadable verify response"}
	}
	if p.InvoiceID == "" {
		p.InvoiceID = invoiceID
	}
	return &p, nil
}

// ValidateWebhook compares the callback's API key header with ours.
func (c *Client) ValidateWebhook(apiKey string) bool {
	if c.config.APIKey == "" || apiKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(apiKey), []byte(c.config.APIKey)) == 1
}

func (c *Client) Stats() Stats {
	return c.metrics.Snapshot()
}

func (c *Client) call(ctx context.Context, operation, path string, body []byte) ([]byte, error) {
	start := time.Now()
	raw, err := c.doRequest(ctx, fasthttp.MethodPost, path, body)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		c.metrics.RecordFailure()
		logger.Warn("gateway request failed", "operation", operation, "error", err, "latency_ms", elapsed.Milliseconds())
	} else {
		c.metrics.RecordSuccess(elapsed.Milliseconds())
	}
	prom.ObserveGatewayLatency(operation, outcome, elapsed.Seconds())
	return raw, err
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.config.BaseURL + path)
	req.Header.SetMethod(method)
	req.Header.SetContentType("application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(HeaderAPIKey, c.config.APIKey)
	if body != nil {
		req.SetBody(body)
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.config.Timeout)
	}

	if err := c.client.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("%w: request failed: %v", ErrGateway, err)
	}

	statusCode := resp.StatusCode()
	if statusCode < 200 || statusCode >= 300 {
		return nil, &GatewayError{StatusCode: statusCode, Message: upstreamMessage(resp.Body())}
	}

	result := make([]byte, len(resp.Body()))
	copy(result, resp.Body())
	return result, nil
}

func upstreamMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && eb.Message != "" {
		return eb.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 256 {
		msg = msg[:256]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}

func invoiceFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	last := path.Base(strings.TrimRight(u.Path, "/"))
	if last == "." || last == "/" {
		return ""
	}
	return last
}

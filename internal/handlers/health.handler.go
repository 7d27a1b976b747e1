package handlers

import (
	"context"
	"time"

	"github.com/fasthttp/router"
	xhttp "github.com/healthythako/booking-service/pkg/http"
)

// HealthCheck is one readiness probe, for example a database ping or the
// payment configuration check.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	checks  []HealthCheck
	reports map[string]func() any
	timeout time.Duration
}

type healthResponse struct {
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
	Reports map[string]any    `json:"reports,omitempty"`
}

func RegisterHealthRoutes(e *router.Group, h *HealthHandler) {
	e.GET("/health", h.GetHealth)
}

func NewHealthHandler(checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, reports: map[string]func() any{}, timeout: 2 * time.Second}
}

// Report adds informational data to the response. It never affects the status.
func (h *HealthHandler) Report(name string, fn func() any) *HealthHandler {
	h.reports[name] = fn
	return h
}

// GetHealth runs every check and answers 503 when any of them fails.
func (h *HealthHandler) GetHealth(ctx *xhttp.RequestCtx) {
	c, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	res := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := xhttp.StatusOK
	for _, chk := range h.checks {
		if err := chk.Check(c); err != nil {
			res.Checks[chk.Name] = err.Error()
			res.Status = "degraded"
			status = xhttp.StatusServiceUnavailable
			continue
		}
		res.Checks[chk.Name] = "ok"
	}
	if len(h.reports) > 0 {
		res.Reports = make(map[string]any, len(h.reports))
		for name, fn := range h.reports {
			res.Reports[name] = fn()
		}
	}
	writeJSON(ctx, status, res)
}

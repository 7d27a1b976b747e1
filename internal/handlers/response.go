package handlers

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gateway "github.com/healthythako/booking-service/internal/gateways"
	"github.com/healthythako/booking-service/internal/model"
	"github.com/healthythako/booking-service/internal/services"
	xhttp "github.com/healthythako/booking-service/pkg/http"
	"github.com/healthythako/booking-service/pkg/logger"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type listResponse struct {
	Items any   `json:"items"`
	Total int64 `json:"total"`
}

func readJSON(ctx *xhttp.RequestCtx, dst any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}
	return json.Unmarshal(body, dst)
}

func writeJSON(ctx *xhttp.RequestCtx, status int, v any) {
	b, _ := json.Marshal(v)
	ctx.Response.Header.Set("Content-Type", "application/json; charset=utf-8")
	ctx.Response.SetStatusCode(status)
	ctx.Response.SetBodyRaw(b)
}

func writeError(ctx *xhttp.RequestCtx, status int, code, msg string) {
	writeJSON(ctx, status, errorResponse{Error: msg, Code: code})
}

// writeServiceError maps service, model and gateway errors onto a status
// and a stable machine-readable code.
func writeServiceError(ctx *xhttp.RequestCtx, err error) {
	var te *model.TransitionError
	switch {
	case errors.Is(err, services.ErrUnauthenticated):
		writeError(ctx, xhttp.StatusUnauthorized, "unauthenticated", err.Error())
	case errors.Is(err, services.ErrUnauthorizedWebhook):
		writeError(ctx, xhttp.StatusUnauthorized, "invalid_api_key", "invalid api key")
	case errors.As(err, &te):
		writeError(ctx, xhttp.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, model.ErrValidation):
		writeError(ctx, xhttp.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, services.ErrForbidden):
		writeError(ctx, xhttp.StatusForbidden, "forbidden", err.Error())
	case errors.Is(err, services.ErrNotFound):
		writeError(ctx, xhttp.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, model.ErrInvalidTransition):
		writeError(ctx, xhttp.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, services.ErrConflict):
		writeError(ctx, xhttp.StatusConflict, "conflict", err.Error())
	case errors.Is(err, gateway.ErrConfiguration):
		logger.Error("payment gateway misconfigured", "error", err, "request_id", xhttp.RequestID(ctx))
		writeError(ctx, xhttp.StatusInternalServerError, "configuration", err.Error())
	case errors.Is(err, gateway.ErrGateway):
		writeError(ctx, xhttp.StatusBadGateway, "gateway", err.Error())
	default:
		logger.Error("request failed", "error", err, "path", string(ctx.Path()), "request_id", xhttp.RequestID(ctx))
		writeError(ctx, xhttp.StatusInternalServerError, "internal", xhttp.StatusText(xhttp.StatusInternalServerError))
	}
}

func query(ctx *xhttp.RequestCtx, key string) string {
	return string(ctx.QueryArgs().Peek(key))
}

func pathUUID(ctx *xhttp.RequestCtx, name string) (uuid.UUID, bool) {
	raw, _ := ctx.UserValue(name).(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "validation", name+" must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

// paging reads limit and offset, ignoring values that do not parse.
func paging(ctx *xhttp.RequestCtx) (limit, offset int) {
	if v := query(ctx, "limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := query(ctx, "offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}

func csv(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseTime(s string) (time.Time, error) {
	// RFC3339 or YYYY-MM-DD
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

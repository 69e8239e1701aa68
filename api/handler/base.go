package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/api/transport"
	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/pkg/httpcontext"
	appLogger "github.com/fastygo/volunteers/pkg/logger"
)

const authErrorLabel = "Authentication Error"

type baseHandler struct {
	adapter *httpcontext.Adapter
	logger  *zap.Logger
}

func newBaseHandler(adapter *httpcontext.Adapter, logger *zap.Logger) baseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return baseHandler{adapter: adapter, logger: logger}
}

func (h baseHandler) requestContext(ctx *fasthttp.RequestCtx) (context.Context, context.CancelFunc) {
	if h.adapter != nil {
		return h.adapter.Attach(ctx)
	}
	return context.WithCancel(context.Background())
}

func (h baseHandler) respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	respondJSON(ctx, status, payload)
}

func (h baseHandler) respondError(ctx *fasthttp.RequestCtx, stdCtx context.Context, err error) {
	writeError(ctx, appLogger.WithRequestID(stdCtx, h.logger), err)
}

// pathID reads the {id} route parameter. Anything but a positive integer
// is treated as an unknown resource.
func (h baseHandler) pathID(ctx *fasthttp.RequestCtx, notFound *domain.Error) (int64, error) {
	raw, _ := ctx.UserValue("id").(string)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, notFound
	}
	return id, nil
}

// ErrorWriter renders err through the shared error translator. It is used
// by the router fallbacks and the auth middleware.
func ErrorWriter(logger *zap.Logger) func(*fasthttp.RequestCtx, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx *fasthttp.RequestCtx, err error) {
		writeError(ctx, logger.With(zap.String("request_id", httpcontext.RequestID(ctx))), err)
	}
}

func writeError(ctx *fasthttp.RequestCtx, logger *zap.Logger, err error) {
	status, code, message := mapError(err)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	case status == http.StatusUnprocessableEntity:
		logger.Error("request unprocessable", zap.Error(err))
	default:
		logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	respondJSON(ctx, status, transport.NewError(code, message))
}

// mapError translates an error into the response status, the envelope's
// error member and its message.
func mapError(err error) (int, interface{}, string) {
	var authErr *domain.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized, authErrorLabel, authErr.Error()
	}

	status := http.StatusInternalServerError
	switch {
	case domain.IsDomainError(err, domain.ErrCodeBadRequest):
		status = http.StatusBadRequest
	case domain.IsDomainError(err, domain.ErrCodeNotFound):
		status = http.StatusNotFound
	case domain.IsDomainError(err, domain.ErrCodeMethodNotAllowed):
		status = http.StatusMethodNotAllowed
	case domain.IsDomainError(err, domain.ErrCodeUnprocessable):
		status = http.StatusUnprocessableEntity
	}
	return status, status, statusMessage(status)
}

func statusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "Bad Request"
	case http.StatusNotFound:
		return "Resource Not Found"
	case http.StatusMethodNotAllowed:
		return "Method Not Allowed"
	case http.StatusUnprocessableEntity:
		return "Unprocessable"
	default:
		return "Internal Server Error"
	}
}

func respondJSON(ctx *fasthttp.RequestCtx, status int, payload interface{}) {
	ctx.Response.Header.SetContentType("application/json")
	ctx.SetStatusCode(status)
	body, err := json.Marshal(payload)
	if err != nil {
		ctx.SetStatusCode(http.StatusInternalServerError)
		body = []byte(`{"success":false,"error":500,"message":"Internal Server Error"}`)
	}
	ctx.SetBody(body)
}

package handler

import (
	"net/http"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/api/transport"
	"github.com/fastygo/volunteers/internal/infrastructure/monitor"
	"github.com/fastygo/volunteers/pkg/httpcontext"
)

type HealthHandler struct {
	baseHandler
	monitor *monitor.Monitor
}

func NewHealthHandler(mon *monitor.Monitor, adapter *httpcontext.Adapter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		baseHandler: newBaseHandler(adapter, logger),
		monitor:     mon,
	}
}

// @Summary Index
// @Router / [get]
func (h *HealthHandler) Index(ctx *fasthttp.RequestCtx) {
	httpcontext.RequestID(ctx)
	h.respondJSON(ctx, http.StatusOK, transport.StatusResponse{Success: true})
}

// @Summary Health check
// @Tags health
// @Router /health [get]
func (h *HealthHandler) Check(ctx *fasthttp.RequestCtx) {
	httpcontext.RequestID(ctx)
	if h.monitor == nil {
		h.respondJSON(ctx, http.StatusOK, transport.HealthResponse{Success: true, Healthy: true, Services: map[string]bool{}})
		return
	}

	status := h.monitor.GetStatus()
	payload := transport.HealthResponse{
		Success:  status.Healthy,
		Healthy:  status.Healthy,
		Services: status.Services,
	}
	if !status.LastCheck.IsZero() {
		payload.LastCheck = status.LastCheck.UTC().Format(time.RFC3339)
	}

	if status.Healthy {
		h.respondJSON(ctx, http.StatusOK, payload)
		return
	}
	h.respondJSON(ctx, http.StatusServiceUnavailable, payload)
}

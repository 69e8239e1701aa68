package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/api/transport"
	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/pkg/httpcontext"
	appLogger "github.com/fastygo/volunteers/pkg/logger"
	volunteerUC "github.com/fastygo/volunteers/usecase/volunteer"
)

type VolunteerHandler struct {
	baseHandler
	uc *volunteerUC.UseCase
}

func NewVolunteerHandler(uc *volunteerUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *VolunteerHandler {
	return &VolunteerHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

func (h *VolunteerHandler) GetVolunteers(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	volunteers, err := h.uc.ListVolunteers(stdCtx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.VolunteersResponse{Success: true, Volunteers: volunteers})
}

func (h *VolunteerHandler) SearchVolunteers(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	volunteers, err := h.uc.SearchVolunteers(stdCtx, string(ctx.QueryArgs().Peek("term")))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.VolunteersResponse{Success: true, Volunteers: volunteers})
}

func (h *VolunteerHandler) GetVolunteer(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, err := h.pathID(ctx, domain.ErrVolunteerNotFound)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	volunteer, err := h.uc.GetVolunteer(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.VolunteerResponse{Success: true, Volunteer: volunteer})
}

func (h *VolunteerHandler) CreateVolunteer(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	patch, err := transport.DecodeVolunteer(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	created, err := h.uc.CreateVolunteer(stdCtx, patch)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	appLogger.WithRequestID(stdCtx, h.logger).Info("volunteer created", zap.Int64("volunteer_id", created.ID))
	h.respondJSON(ctx, http.StatusOK, transport.VolunteerResponse{Success: true, Volunteer: created})
}

func (h *VolunteerHandler) UpdateVolunteer(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	patch, err := transport.DecodeVolunteer(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	id, err := h.pathID(ctx, domain.ErrVolunteerNotFound)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	updated, err := h.uc.UpdateVolunteer(stdCtx, id, patch)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.VolunteerResponse{Success: true, Volunteer: updated})
}

func (h *VolunteerHandler) DeleteVolunteer(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, err := h.pathID(ctx, domain.ErrVolunteerNotFound)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	deleted, err := h.uc.DeleteVolunteer(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	appLogger.WithRequestID(stdCtx, h.logger).Info("volunteer deleted", zap.Int64("volunteer_id", deleted))
	h.respondJSON(ctx, http.StatusOK, transport.DeletedResponse{Success: true, Deleted: deleted})
}

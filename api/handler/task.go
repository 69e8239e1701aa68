package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/volunteers/api/transport"
	"github.com/fastygo/volunteers/domain"
	"github.com/fastygo/volunteers/pkg/httpcontext"
	appLogger "github.com/fastygo/volunteers/pkg/logger"
	taskUC "github.com/fastygo/volunteers/usecase/task"
)

type TaskHandler struct {
	baseHandler
	uc *taskUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary List tasks
// @Tags tasks
// @Router /tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.TasksResponse{Success: true, Tasks: tasks})
}

// @Summary Search tasks by title
// @Tags tasks
// @Router /tasks/search [get]
func (h *TaskHandler) SearchTasks(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	term := string(ctx.QueryArgs().Peek("term"))
	tasks, err := h.uc.SearchTasks(stdCtx, term)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.TasksResponse{Success: true, Tasks: tasks})
}

// @Summary Get task
// @Tags tasks
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, err := h.pathID(ctx, domain.ErrTaskNotFound)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.TaskResponse{Success: true, Task: task})
}

// @Summary Create task
// @Tags tasks
// @Router /tasks/create [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	patch, err := transport.DecodeTask(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	created, err := h.uc.CreateTask(stdCtx, patch)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	appLogger.WithRequestID(stdCtx, h.logger).Info("task created", zap.Int64("task_id", created.ID))
	h.respondJSON(ctx, http.StatusOK, transport.TaskResponse{Success: true, Task: created})
}

// @Summary Update task
// @Tags tasks
// @Router /tasks/{id} [patch]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	patch, err := transport.DecodeTask(ctx.PostBody())
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	id, err := h.pathID(ctx, domain.ErrTaskNotFound)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	updated, err := h.uc.UpdateTask(stdCtx, id, patch)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.TaskResponse{Success: true, Task: updated})
}

// @Summary Delete task
// @Tags tasks
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id, err := h.pathID(ctx, domain.ErrTaskNotFound)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	deleted, err := h.uc.DeleteTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	appLogger.WithRequestID(stdCtx, h.logger).Info("task deleted", zap.Int64("task_id", deleted))
	h.respondJSON(ctx, http.StatusOK, transport.DeletedResponse{Success: true, Deleted: deleted})
}

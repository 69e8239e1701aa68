package router

import (
	"fmt"

	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/volunteers/api/handler"
	"github.com/fastygo/volunteers/domain"
)

type Handlers struct {
	Task      *apiHandler.TaskHandler
	Volunteer *apiHandler.VolunteerHandler
	Health    *apiHandler.HealthHandler
}

// Guard wraps a handler so it only runs when the request carries permission.
type Guard func(permission string) func(fasthttp.RequestHandler) fasthttp.RequestHandler

var (
	errNotFound         = domain.NewError(domain.ErrCodeNotFound, "route not found")
	errMethodNotAllowed = domain.NewError(domain.ErrCodeMethodNotAllowed, "method not allowed")
)

func New(handlers Handlers, require Guard, logger *zap.Logger) *router.Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	writeError := apiHandler.ErrorWriter(logger)

	r := router.New()
	r.RedirectTrailingSlash = false
	r.HandleMethodNotAllowed = true
	r.NotFound = func(ctx *fasthttp.RequestCtx) { writeError(ctx, errNotFound) }
	r.MethodNotAllowed = func(ctx *fasthttp.RequestCtx) { writeError(ctx, errMethodNotAllowed) }
	r.PanicHandler = func(ctx *fasthttp.RequestCtx, rcv interface{}) {
		writeError(ctx, fmt.Errorf("panic: %v", rcv))
	}

	r.GET("/", handlers.Health.Index)
	r.GET("/health", handlers.Health.Check)

	// Tasks: reads are public.
	r.GET("/tasks", handlers.Task.GetTasks)
	r.GET("/tasks/search", handlers.Task.SearchTasks)
	r.GET("/tasks/{id}", handlers.Task.GetTask)
	r.POST("/tasks/create", require("post:task")(handlers.Task.CreateTask))
	r.PATCH("/tasks/{id}", require("patch:task")(handlers.Task.UpdateTask))
	r.DELETE("/tasks/{id}", require("delete:task")(handlers.Task.DeleteTask))

	// Volunteers: every route is protected.
	r.GET("/volunteers", require("get:volunteer")(handlers.Volunteer.GetVolunteers))
	r.GET("/volunteers/search", require("get:volunteer")(handlers.Volunteer.SearchVolunteers))
	r.GET("/volunteers/{id}", require("get:volunteer")(handlers.Volunteer.GetVolunteer))
	r.POST("/volunteers/create", require("post:volunteer")(handlers.Volunteer.CreateVolunteer))
	r.PATCH("/volunteers/{id}", require("patch:volunteer")(handlers.Volunteer.UpdateVolunteer))
	r.DELETE("/volunteers/{id}", require("delete:volunteer")(handlers.Volunteer.DeleteVolunteer))

	return r
}

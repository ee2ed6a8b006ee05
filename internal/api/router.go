package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/taskflow/tms/internal/api/handler"
	"github.com/taskflow/tms/internal/api/middleware"
	"github.com/taskflow/tms/internal/core/authz"
	"github.com/taskflow/tms/internal/infrastructure/http/handlers"
)

// Deps carries everything the router wires into routes.
type Deps struct {
	Log      zerolog.Logger
	Tokens   middleware.TokenParser
	Engine   middleware.Authorizer
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Tasks    *handler.TaskHandler
	Comments *handler.CommentHandler
	Checks   map[string]handlers.Check
	// Registerer receives the HTTP metrics. Defaults to the global registry.
	Registerer prometheus.Registerer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	reg := d.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "tms",
		Registerer: reg,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || strings.HasPrefix(c.Path(), "/health")
		},
	}))

	// --- Operational endpoints (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(d.Checks).Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	gate := func(action authz.Action) echo.MiddlewareFunc {
		return middleware.RBAC(d.Engine, action)
	}

	api := e.Group("/api")

	// --- Public routes ---
	api.POST("/users/register", d.Users.Register, gate(authz.ActionRegisterUser))
	api.POST("/auth/token", d.Auth.Token, gate(authz.ActionIssueToken))

	secured := api.Group("", middleware.Authenticate(d.Tokens))

	// --- Users ---
	secured.GET("/users", d.Users.List, gate(authz.ActionListUsers))
	secured.PUT("/users/me/password", d.Users.ChangePassword, gate(authz.ActionChangePassword))
	secured.GET("/users/:id", d.Users.Get, gate(authz.ActionGetUser))
	secured.PUT("/users/:id/admin", d.Users.GrantAdmin, gate(authz.ActionManageRoles))
	secured.DELETE("/users/:id/admin", d.Users.RevokeAdmin, gate(authz.ActionManageRoles))

	// --- Tasks ---
	secured.GET("/tasks", d.Tasks.List, gate(authz.ActionListTasks))
	secured.POST("/tasks", d.Tasks.Create, gate(authz.ActionCreateTask))
	secured.GET("/tasks/author/:authorId", d.Tasks.ListByAuthor, gate(authz.ActionListByAuthor))
	secured.GET("/tasks/assignee/:assigneeId", d.Tasks.ListByAssignee, gate(authz.ActionListByAssignee))
	secured.GET("/tasks/:id", d.Tasks.Get, gate(authz.ActionGetTask))
	secured.PUT("/tasks/:id", d.Tasks.Update, gate(authz.ActionUpdateTask))
	secured.PATCH("/tasks/:id/status", d.Tasks.ChangeStatus, gate(authz.ActionChangeStatus))
	secured.DELETE("/tasks/:id", d.Tasks.Delete, gate(authz.ActionDeleteTask))
	secured.GET("/tasks/:id/history", d.Tasks.History, gate(authz.ActionTaskHistory))

	// --- Comments ---
	secured.POST("/tasks/:id/comments", d.Comments.Add, gate(authz.ActionAddComment))
	secured.GET("/tasks/:id/comments", d.Comments.List, gate(authz.ActionListComments))
	secured.DELETE("/tasks/:id/comments/:commentId", d.Comments.Delete, gate(authz.ActionDeleteComment))

	return e
}

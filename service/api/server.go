// Package api exposes the approval engine over HTTP. Callers are
// authenticated upstream; the acting user arrives in the X-User-ID header.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/viant/signoff/service/engine"
	"go.uber.org/zap"
)

// HeaderUserID carries the authenticated user id.
const HeaderUserID = "X-User-ID"

// Server holds the dependencies of the HTTP handlers.
type Server struct {
	engine  *engine.Service
	metrics http.Handler
	logger  *zap.Logger
}

// Handler returns an echo instance with every route registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(s.logger)
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	s.Register(e)
	return e
}

// Register adds the routes to e.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.Health)
	if s.metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.metrics))
	}
	v1 := e.Group("/v1")
	v1.POST("/approvals", s.Submit)
	v1.GET("/approvals/:id", s.GetInstance)
	v1.GET("/approvals/:id/tasks", s.InstanceTasks)
	v1.POST("/approvals/:id/withdraw", s.Withdraw)
	v1.POST("/approvals/:id/cancel", s.Cancel)
	v1.GET("/tasks", s.ListTasks)
	v1.POST("/tasks/:id/actions", s.Act)
	v1.GET("/flows", s.ListFlows)
}

// NewServer creates a Server; metrics may be nil.
func NewServer(approvals *engine.Service, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{engine: approvals, metrics: metrics, logger: logger.Named("api")}
}

// Package http provides the HTTP API for mealpland.
package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/nourishlabs/mealpland/internal/orchestrator"
)

// WorkflowExecutor is the orchestration surface the API exposes.
// Satisfied by orchestrator.Orchestrator.
type WorkflowExecutor interface {
	ExecuteUnifiedWorkflow(ctx context.Context, userID, userInput string, numMeals int) (*orchestrator.Result, error)
}

// Server provides HTTP endpoints for mealpland.
type Server struct {
	echo     *echo.Echo
	executor WorkflowExecutor
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(executor WorkflowExecutor, logger *zap.Logger, cfg *Config) (*Server, error) {
	if executor == nil {
		return nil, fmt.Errorf("workflow executor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8080,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		executor: executor,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	api := s.echo.Group("/api")
	api.POST("/meal-plan", s.handleMealPlan)
}

// MealPlanRequest is the request body for POST /api/meal-plan.
type MealPlanRequest struct {
	UserID    string `json:"user_id"`
	UserInput string `json:"user_input"`
	SessionID string `json:"session_id,omitempty"`
	NumMeals  int    `json:"num_meals,omitempty"`
}

// MealPlanResponse is the response body for POST /api/meal-plan.
type MealPlanResponse struct {
	UserID         string `json:"user_id"`
	SessionID      string `json:"session_id"`
	Response       string `json:"response"`
	ProfileUpdated bool   `json:"profile_updated"`
	Status         string `json:"status"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "healthy", Service: "mealpland"})
}

func (s *Server) handleMealPlan(c echo.Context) error {
	var req MealPlanRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid meal-plan request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.UserID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id field is required")
	}
	if strings.TrimSpace(req.UserInput) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_input field is required")
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("session_%s_%d", req.UserID, time.Now().Unix())
	}

	result, err := s.executor.ExecuteUnifiedWorkflow(c.Request().Context(), req.UserID, req.UserInput, req.NumMeals)
	if err != nil {
		s.logger.Error("unified workflow failed",
			zap.String("user_id", req.UserID),
			zap.Error(err),
		)
		return echo.NewHTTPError(http.StatusInternalServerError, "meal planning failed")
	}

	return c.JSON(http.StatusOK, MealPlanResponse{
		UserID:         result.UserID,
		SessionID:      sessionID,
		Response:       result.MealOptions,
		ProfileUpdated: result.ProfileUpdated,
		Status:         result.Status,
	})
}

// Echo exposes the underlying router so the daemon can attach extra
// handlers such as promhttp.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}

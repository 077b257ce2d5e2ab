// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, Echo instance,
// metrics registry) and wires the plugins together.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/eventboard/eventboard/internal/apperror"
	"github.com/eventboard/eventboard/internal/config"
	"github.com/eventboard/eventboard/internal/middleware"
	"github.com/eventboard/eventboard/internal/plugins/events"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	Config *config.Config

	// DB is the MariaDB connection pool shared by all repositories.
	DB *sql.DB

	// Redis backs the rate limiter.
	Redis *redis.Client

	Echo *echo.Echo

	// Registry collects the Go runtime, process and HTTP metrics.
	Registry *prometheus.Registry

	// Events is set by RegisterRoutes; the daily job drives it.
	Events events.EventService

	metrics *middleware.Metrics
}

// ErrorResponse is the JSON body of every error.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Errors  any    `json:"errors,omitempty"`
}

// New creates an App and configures Echo with global middleware and the
// JSON error handler.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) *App {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Forwarding headers are trusted only from these ranges.
	middleware.TrustedProxies(e, []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"fd00::/8",
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{
		Config:   cfg,
		DB:       db,
		Redis:    rdb,
		Echo:     e,
		Registry: reg,
		metrics:  middleware.NewMetrics(reg),
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler
	return app
}

// setupMiddleware registers global middleware. Recovery is outermost so it
// sees panics from everything else; Metrics wraps RequestLogger so both
// see the status the error handler wrote.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(a.metrics.Middleware())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.SecurityHeaders(a.Config.IsProduction()))
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{a.Config.BaseURL},
	}))
}

// errorHandler is the only place error responses are written. AppErrors
// keep their code and message; Echo's own errors (404/405 from the
// router) keep their code; anything else is a 500 with a generic message
// and the detail goes to the log only.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	resp := ErrorResponse{
		Status:  apperror.SafeCode(err),
		Message: apperror.SafeMessage(err),
	}

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		resp.Errors = appErr.Errors
		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
			)
		}

	case errors.As(err, &echoErr):
		resp.Status = echoErr.Code
		resp.Message = http.StatusText(echoErr.Code)
		if msg, ok := echoErr.Message.(string); ok && msg != "" {
			resp.Message = msg
		}

	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("method", c.Request().Method),
			slog.String("path", c.Request().URL.Path),
		)
	}

	// Never tell a client which authentication check failed.
	if resp.Status == http.StatusUnauthorized && appErr == nil {
		resp.Message = "Unauthorized access"
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(resp.Status)
	} else {
		err = c.JSON(resp.Status, resp)
	}
	if err != nil {
		slog.Error("writing error response", slog.Any("error", err))
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting eventboard server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}

// Shutdown stops accepting connections and drains in-flight requests.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

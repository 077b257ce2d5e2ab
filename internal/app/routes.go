package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/eventboard/eventboard/internal/middleware"
	"github.com/eventboard/eventboard/internal/plugins/admin"
	"github.com/eventboard/eventboard/internal/plugins/audit"
	"github.com/eventboard/eventboard/internal/plugins/auth"
	"github.com/eventboard/eventboard/internal/plugins/events"
	"github.com/eventboard/eventboard/internal/plugins/media"
	"github.com/eventboard/eventboard/internal/plugins/smtp"
)

// formOverhead is the body allowance for form fields next to the image.
const formOverhead = 1 << 20

// RegisterRoutes builds every plugin and mounts its routes. This is the
// single place where plugins are wired to each other.
func (a *App) RegisterRoutes() {
	e := a.Echo
	cfg := a.Config

	e.GET("/healthz", a.healthz)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))

	// --- Infrastructure shared by plugins ---
	mailer := smtp.NewMailService(smtp.Settings{
		Host:        cfg.Mail.Host,
		Port:        cfg.Mail.Port,
		Username:    cfg.Mail.Username,
		Password:    cfg.Mail.Password,
		FromAddress: cfg.Mail.FromAddress,
		FromName:    cfg.Mail.FromName,
		Encryption:  cfg.Mail.Encryption,
	})
	images := media.NewImageStore(cfg.Upload.Path, cfg.Upload.MaxSize)

	// --- Auth ---
	users := auth.NewUserRepository(a.DB)
	tokens := auth.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.TokenTTL)
	authService := auth.NewAuthService(
		users,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		auth.NewTOTPVerifier(cfg.Auth.JWTIssuer),
		mailer,
		cfg.Auth.ResetTokenTTL,
	)
	requireAuth := auth.RequireAuth(tokens, users)
	requireAdmin := auth.RequireAdmin(users)
	var counters redis.Cmdable
	if a.Redis != nil {
		counters = a.Redis
	}
	authLimit := middleware.RateLimit(counters, "ratelimit:auth", cfg.Auth.LoginRateLimit, time.Minute)
	auth.RegisterRoutes(e, auth.NewHandler(authService), requireAuth, authLimit)

	// --- Events ---
	a.Events = events.NewEventService(events.NewEventRepository(a.DB), images)
	bodyLimit := media.BodyLimit(cfg.Upload.MaxSize + formOverhead)
	events.RegisterRoutes(e, events.NewHandler(a.Events), requireAuth, bodyLimit)
	media.RegisterRoutes(e, images)

	// --- Admin ---
	auditService := audit.NewAuditService(audit.NewAuditRepository(a.DB))
	admin.RegisterRoutes(e, admin.NewHandler(a.Events, auditService), requireAuth, requireAdmin)
}

// healthz reports whether MariaDB and Redis answer.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK
	if a.DB == nil || a.DB.PingContext(ctx) != nil {
		status["database"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if a.Redis == nil || a.Redis.Ping(ctx).Err() != nil {
		status["redis"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if code != http.StatusOK {
		status["status"] = "degraded"
	}
	return c.JSON(code, status)
}

package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the /user routes. Credential endpoints go through
// rateLimit to slow brute-force and credential stuffing; requireAuth guards
// the endpoints that act on the caller's own account.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth, rateLimit echo.MiddlewareFunc) {
	g := e.Group("/user")

	// Public routes -- no auth required.
	g.POST("/register", h.Register, rateLimit)
	g.POST("/login", h.Login, rateLimit)
	g.POST("/adminLogin", h.AdminLogin, rateLimit)
	g.POST("/forgotPassword", h.ForgotPassword, rateLimit)
	g.POST("/resetPassword", h.ResetPassword, rateLimit)

	// Authenticated routes.
	g.POST("/updatePassword", h.UpdatePassword, requireAuth)
	g.POST("/logout", h.Logout, requireAuth)
}

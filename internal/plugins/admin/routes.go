package admin

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the /admin group. requireAuth verifies the session
// token and requireAdmin re-checks the admin flag on the stored account.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth, requireAdmin echo.MiddlewareFunc) {
	g := e.Group("/admin", requireAuth, requireAdmin)

	g.GET("/listEvents", h.ListEvents)
	g.PATCH("/events/:id/status", h.SetStatus)
	g.GET("/reports", h.Reports)
	g.GET("/activity", h.Activity)
}

package events

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the /events routes. Every route requires a signed-in
// user; bodyLimit caps form uploads before they are parsed.
func RegisterRoutes(e *echo.Echo, h *Handler, requireAuth, bodyLimit echo.MiddlewareFunc) {
	g := e.Group("/events", requireAuth)

	g.POST("/createEvents", h.Create, bodyLimit)
	g.GET("/getEvents", h.List)
	g.PUT("/updateEvents/:id", h.Update, bodyLimit)
	g.DELETE("/deleteEvents/:id", h.Delete)

	g.POST("/:id/like", h.Like)
	g.POST("/:id/dislike", h.Dislike)
}

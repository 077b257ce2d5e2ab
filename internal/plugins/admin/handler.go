// Package admin provides the moderation and reporting endpoints. Every
// route requires a signed-in user whose account carries the admin flag.
// Status changes are written to the audit log, which the activity route
// reads back.
package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
	"github.com/eventboard/eventboard/internal/plugins/audit"
	"github.com/eventboard/eventboard/internal/plugins/auth"
	"github.com/eventboard/eventboard/internal/plugins/events"
	"github.com/eventboard/eventboard/internal/validate"
)

// Handler handles admin HTTP requests.
type Handler struct {
	events events.EventService
	audit  audit.AuditService
}

// NewHandler creates a new admin handler.
func NewHandler(eventService events.EventService, auditService audit.AuditService) *Handler {
	return &Handler{events: eventService, audit: auditService}
}

// ListEvents returns one page of all events, hidden ones included
// (GET /admin/listEvents).
func (h *Handler) ListEvents(c echo.Context) error {
	filter, err := events.BindSearch(c)
	if err != nil {
		return err
	}
	filter.VisibleOnly = false

	page, err := h.events.Search(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// SetStatus shows or hides an event (PATCH /admin/events/:id/status).
func (h *Handler) SetStatus(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return apperror.NewBadRequest("Invalid event ID")
	}

	var req StatusRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	event, err := h.events.SetStatus(ctx, id, req.Status)
	if err != nil {
		return err
	}

	entry := &audit.Entry{
		ActorID: auth.GetUserID(c),
		Action:  audit.ActionEventStatusChanged,
		EventID: &event.ID,
		Details: map[string]any{"status": req.Status},
	}
	if err := h.audit.Log(ctx, entry); err != nil {
		slog.Warn("status change not audited",
			slog.Int64("event_id", event.ID),
			slog.Any("error", err),
		)
	}

	return c.JSON(http.StatusOK, events.EventResponse{Event: event})
}

// Reports counts paid and unpaid events created in a date range
// (GET /admin/reports?startDate=YYYY-MM-DD&endDate=YYYY-MM-DD).
func (h *Handler) Reports(c echo.Context) error {
	var req ReportRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	// Both strings passed the datetime rule above.
	from, _ := time.Parse(time.DateOnly, req.StartDate)
	to, _ := time.Parse(time.DateOnly, req.EndDate)

	rep, err := h.events.Report(c.Request().Context(), from, to)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ReportResponse{Reports: rep})
}

// Activity returns one page of the moderation audit log
// (GET /admin/activity?page=N).
func (h *Handler) Activity(c echo.Context) error {
	var req audit.ActivityRequest
	if err := validate.Bind(c, &req); err != nil {
		return err
	}

	page, err := h.audit.Activity(c.Request().Context(), req.Page)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

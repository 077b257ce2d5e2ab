package admin

import "github.com/eventboard/eventboard/internal/plugins/events"

// StatusRequest is the body of PATCH /admin/events/:id/status.
type StatusRequest struct {
	Status string `json:"status" form:"status" validate:"required,oneof=active inactive"`
}

// ReportRequest is the query of GET /admin/reports. Both days are inclusive.
type ReportRequest struct {
	StartDate string `query:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate   string `query:"endDate" validate:"required,datetime=2006-01-02"`
}

// ReportResponse wraps the paid/unpaid counts.
type ReportResponse struct {
	Reports *events.Report `json:"reports"`
}

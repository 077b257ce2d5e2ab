// Package audit records moderation actions taken by administrators and
// serves them back as a paginated activity feed. Writes are best-effort:
// a failed audit insert is logged and never fails the action it describes.
package audit

import "time"

// Action types recorded in the audit log.
const (
	ActionEventStatusChanged = "event.status_changed"
)

// perPage is the number of entries in one page of the activity feed.
const perPage = 50

// Entry is one row of the audit log.
type Entry struct {
	ID      int64          `json:"id"`
	ActorID int64          `json:"actorId"`
	Action  string         `json:"action"`
	EventID *int64         `json:"eventId,omitempty"`
	Details map[string]any `json:"details,omitempty"`
	Created time.Time      `json:"createdAt"`

	// ActorEmail is joined from users; empty when the account is gone.
	ActorEmail string `json:"actorEmail"`
}

// ActivityPage is one page of the activity feed, newest first.
type ActivityPage struct {
	Entries    []Entry `json:"entries"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	TotalPages int     `json:"totalPages"`
}

// ActivityRequest is the query of GET /admin/activity.
type ActivityRequest struct {
	Page int `query:"page" validate:"omitempty,gte=1"`
}

// Package events manages event listings: creation with an image, partial
// updates, deletion, paginated search, like/dislike voting, and the
// moderation and reporting queries used by the admin plugin and the daily
// job.
package events

import (
	"time"

	"github.com/eventboard/eventboard/internal/plugins/media"
)

// Event is a listed event. EventImage and ImageThumbnail are public URLs
// under /uploads.
type Event struct {
	ID               int64      `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	Email            string     `json:"email"`
	Phone            string     `json:"phone"`
	Address          string     `json:"address"`
	City             string     `json:"city"`
	OrganizerDetails string     `json:"organizerDetails"`
	PaidStatus       bool       `json:"paidStatus"`
	DisplayStatus    bool       `json:"displayStatus"`
	EventImage       string     `json:"eventImage"`
	ImageThumbnail   *string    `json:"imageThumbnail,omitempty"`
	EventDate        *time.Time `json:"eventDate,omitempty"`
	LikeCount        int        `json:"likeCount"`
	DislikeCount     int        `json:"dislikeCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// VoteKind is the kind of a vote on an event.
type VoteKind string

// Vote kinds. A user may hold one vote of each kind per event.
const (
	VoteLike    VoteKind = "like"
	VoteDislike VoteKind = "dislike"
)

// Pagination defaults.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// dateLayout is the wire format of dates in query strings and forms.
const dateLayout = "2006-01-02"

// --- Request DTOs (bound from HTTP requests) ---

// EventFields are the optional event attributes shared by create and
// update. Pointers distinguish "not sent" from "sent empty" so an update
// only touches what the client supplied. Booleans arrive as form strings.
type EventFields struct {
	Description      *string `form:"description" validate:"omitnil,max=5000"`
	Email            *string `form:"email" validate:"omitnil,max=255,emailorblank"`
	Phone            *string `form:"phone" validate:"omitnil,max=50"`
	Address          *string `form:"address" validate:"omitnil,max=500"`
	City             *string `form:"city" validate:"omitnil,max=100"`
	OrganizerDetails *string `form:"organizerDetails" validate:"omitnil,max=2000"`
	PaidStatus       *string `form:"paidStatus" validate:"omitnil,boolean"`
	DisplayStatus    *string `form:"displayStatus" validate:"omitnil,boolean"`
	EventDate        *string `form:"eventDate" validate:"omitnil,dateorblank"`
}

// CreateEventRequest is the form of POST /events/createEvents.
type CreateEventRequest struct {
	Title *string `form:"title" validate:"required,min=1,max=255"`
	EventFields
}

// UpdateEventRequest is the form of PUT /events/updateEvents/:id.
type UpdateEventRequest struct {
	Title *string `form:"title" validate:"omitnil,min=1,max=255"`
	EventFields
}

// SearchRequest is the query of GET /events/getEvents and the admin listing.
type SearchRequest struct {
	Page       int    `query:"page" validate:"omitempty,gte=1"`
	Limit      int    `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Search     string `query:"search" validate:"max=100"`
	FilterDate string `query:"filterDate" validate:"omitempty,datetime=2006-01-02"`
	FilterCity string `query:"filterCity" validate:"max=100"`
}

// --- Service Input DTOs (passed from handler to service) ---

// EventInput carries parsed, sanitized fields. A nil field was not
// supplied; a non-nil field overwrites, including false and "".
type EventInput struct {
	Title            *string
	Description      *string
	Email            *string
	Phone            *string
	Address          *string
	City             *string
	OrganizerDetails *string
	PaidStatus       *bool
	DisplayStatus    *bool
	EventDate        *time.Time

	// ClearEventDate is set when the client sent an empty eventDate.
	ClearEventDate bool

	Image *media.UploadInput
}

// SearchFilter is a normalized search query.
type SearchFilter struct {
	Page        int
	Limit       int
	Search      string
	FilterDate  *time.Time
	FilterCity  string
	VisibleOnly bool
}

// Offset returns the row offset of the filter's page.
func (f SearchFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// --- Responses ---

// EventResponse wraps a single event.
type EventResponse struct {
	Event *Event `json:"event"`
}

// EventPage is one page of search results.
type EventPage struct {
	Events     []Event `json:"events"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	TotalPages int     `json:"totalPages"`
}

// VoteResult reports the counters after a vote.
type VoteResult struct {
	Message      string `json:"message"`
	LikeCount    int    `json:"likeCount"`
	DislikeCount int    `json:"dislikeCount"`
}

// Report counts paid and unpaid events created in a date range.
type Report struct {
	PaidEvents   int `json:"paidEvents"`
	UnpaidEvents int `json:"unpaidEvents"`
}

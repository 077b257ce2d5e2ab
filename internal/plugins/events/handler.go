package events

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
	"github.com/eventboard/eventboard/internal/plugins/auth"
	"github.com/eventboard/eventboard/internal/plugins/media"
	"github.com/eventboard/eventboard/internal/sanitize"
	"github.com/eventboard/eventboard/internal/validate"
)

// imageField is the multipart field carrying the event image.
const imageField = "eventImage"

// Handler handles HTTP requests for events.
type Handler struct {
	service EventService
}

// NewHandler creates a new events handler.
func NewHandler(service EventService) *Handler {
	return &Handler{service: service}
}

// Create adds an event (POST /events/createEvents). The body is a
// multipart form with a required eventImage file.
func (h *Handler) Create(c echo.Context) error {
	if err := media.ParseForm(c); err != nil {
		return err
	}

	form := c.Request().PostForm
	req := CreateEventRequest{
		Title:       sanitize.TextPtr(formValue(form, "title")),
		EventFields: readFields(form),
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	input, err := toInput(req.Title, req.EventFields)
	if err != nil {
		return err
	}
	if input.Title == nil || *input.Title == "" {
		return apperror.NewValidation([]apperror.FieldError{{Field: "title", Message: "title is required"}})
	}
	if input.Image, err = media.ReadUpload(c, imageField, true); err != nil {
		return err
	}

	event, err := h.service.Create(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, EventResponse{Event: event})
}

// Update changes the supplied fields of an event
// (PUT /events/updateEvents/:id). A new eventImage replaces the old one.
func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := media.ParseForm(c); err != nil {
		return err
	}

	form := c.Request().PostForm
	req := UpdateEventRequest{
		Title:       sanitize.TextPtr(formValue(form, "title")),
		EventFields: readFields(form),
	}
	if err := validate.Struct(req); err != nil {
		return err
	}

	input, err := toInput(req.Title, req.EventFields)
	if err != nil {
		return err
	}
	if input.Title != nil && *input.Title == "" {
		return apperror.NewValidation([]apperror.FieldError{{Field: "title", Message: "title must not be empty"}})
	}
	if input.Image, err = media.ReadUpload(c, imageField, false); err != nil {
		return err
	}

	event, err := h.service.Update(c.Request().Context(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, EventResponse{Event: event})
}

// Delete removes an event (DELETE /events/deleteEvents/:id).
func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// List returns one page of visible events (GET /events/getEvents).
func (h *Handler) List(c echo.Context) error {
	filter, err := BindSearch(c)
	if err != nil {
		return err
	}
	filter.VisibleOnly = true

	page, err := h.service.Search(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

// Like records a like (POST /events/:id/like).
func (h *Handler) Like(c echo.Context) error {
	return h.vote(c, VoteLike)
}

// Dislike records a dislike (POST /events/:id/dislike).
func (h *Handler) Dislike(c echo.Context) error {
	return h.vote(c, VoteDislike)
}

func (h *Handler) vote(c echo.Context, kind VoteKind) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}

	result, err := h.service.Vote(c.Request().Context(), auth.GetUserID(c), id, kind)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, result)
}

// BindSearch binds and validates the search query string. The admin
// listing shares it.
func BindSearch(c echo.Context) (SearchFilter, error) {
	var req SearchRequest
	if err := validate.Bind(c, &req); err != nil {
		return SearchFilter{}, err
	}

	filter := SearchFilter{
		Page:       req.Page,
		Limit:      req.Limit,
		Search:     req.Search,
		FilterCity: req.FilterCity,
	}
	if req.FilterDate != "" {
		d, err := time.Parse(dateLayout, req.FilterDate)
		if err != nil {
			return SearchFilter{}, apperror.NewBadRequest("Invalid filterDate")
		}
		filter.FilterDate = &d
	}
	return filter, nil
}

// --- Helpers ---

// parseID reads the :id path parameter.
func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, apperror.NewBadRequest("Invalid event ID")
	}
	return id, nil
}

// formValue returns the first value of key, or nil when the key was not
// sent at all.
func formValue(form url.Values, key string) *string {
	vals, ok := form[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}

// readFields reads the optional fields with text already sanitized, so the
// length rules check what will be stored.
func readFields(form url.Values) EventFields {
	return EventFields{
		Description:      sanitize.HTMLPtr(formValue(form, "description")),
		Email:            sanitize.TextPtr(formValue(form, "email")),
		Phone:            sanitize.TextPtr(formValue(form, "phone")),
		Address:          sanitize.TextPtr(formValue(form, "address")),
		City:             sanitize.TextPtr(formValue(form, "city")),
		OrganizerDetails: sanitize.TextPtr(formValue(form, "organizerDetails")),
		PaidStatus:       formValue(form, "paidStatus"),
		DisplayStatus:    formValue(form, "displayStatus"),
		EventDate:        formValue(form, "eventDate"),
	}
}

// toInput converts validated form strings into typed input.
func toInput(title *string, f EventFields) (EventInput, error) {
	in := EventInput{
		Title:            title,
		Description:      f.Description,
		Email:            f.Email,
		Phone:            f.Phone,
		Address:          f.Address,
		City:             f.City,
		OrganizerDetails: f.OrganizerDetails,
	}

	var err error
	if in.PaidStatus, err = parseBool("paidStatus", f.PaidStatus); err != nil {
		return in, err
	}
	if in.DisplayStatus, err = parseBool("displayStatus", f.DisplayStatus); err != nil {
		return in, err
	}

	if f.EventDate != nil {
		if *f.EventDate == "" {
			in.ClearEventDate = true
		} else {
			d, err := time.Parse(dateLayout, *f.EventDate)
			if err != nil {
				return in, apperror.NewValidation([]apperror.FieldError{{Field: "eventDate", Message: "eventDate must be a date (YYYY-MM-DD)"}})
			}
			in.EventDate = &d
		}
	}
	return in, nil
}

func parseBool(field string, v *string) (*bool, error) {
	if v == nil {
		return nil, nil
	}
	b, err := strconv.ParseBool(*v)
	if err != nil {
		return nil, apperror.NewValidation([]apperror.FieldError{{Field: field, Message: field + " must be true or false"}})
	}
	return &b, nil
}

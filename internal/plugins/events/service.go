package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/eventboard/eventboard/internal/apperror"
	"github.com/eventboard/eventboard/internal/plugins/media"
)

// EventService defines the business logic contract for events.
type EventService interface {
	Create(ctx context.Context, input EventInput) (*Event, error)
	Update(ctx context.Context, id int64, input EventInput) (*Event, error)
	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter SearchFilter) (*EventPage, error)
	Vote(ctx context.Context, userID, eventID int64, kind VoteKind) (*VoteResult, error)

	// Admin.
	SetStatus(ctx context.Context, id int64, status string) (*Event, error)
	Report(ctx context.Context, from, to time.Time) (*Report, error)

	// Scheduled.
	CreateDaily(ctx context.Context, day time.Time) (*Event, error)
	ActivateForDate(ctx context.Context, day time.Time) (int64, error)
}

// eventService implements EventService.
type eventService struct {
	repo   EventRepository
	images media.ImageStore
	now    func() time.Time
}

// NewEventService creates a new event service.
func NewEventService(repo EventRepository, images media.ImageStore) EventService {
	return &eventService{repo: repo, images: images, now: time.Now}
}

// Create stores the image and then the event. If the insert fails the
// stored image is removed again.
func (s *eventService) Create(ctx context.Context, input EventInput) (*Event, error) {
	if input.Title == nil || *input.Title == "" {
		return nil, apperror.NewValidation([]apperror.FieldError{{Field: "title", Message: "title is required"}})
	}
	if input.Image == nil {
		return nil, apperror.NewUpload("eventImage is required")
	}

	img, err := s.images.Save(ctx, *input.Image)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := &Event{DisplayStatus: true, CreatedAt: now, UpdatedAt: now}
	apply(event, input)
	event.EventImage = img.URL
	event.ImageThumbnail = img.ThumbnailURL

	if err := s.repo.Create(ctx, event); err != nil {
		s.images.Remove(imageURLs(img.URL, img.ThumbnailURL)...)
		return nil, apperror.NewInternal(fmt.Errorf("creating event: %w", err))
	}

	slog.Info("event created",
		slog.Int64("event_id", event.ID),
		slog.String("title", event.Title),
	)
	return event, nil
}

// Update overwrites only the supplied fields. A new image replaces the old
// one, whose files are removed after the row is saved.
func (s *eventService) Update(ctx context.Context, id int64, input EventInput) (*Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "finding event")
	}

	apply(event, input)

	var stale []string
	if input.Image != nil {
		img, err := s.images.Save(ctx, *input.Image)
		if err != nil {
			return nil, err
		}
		stale = imageURLs(event.EventImage, event.ImageThumbnail)
		event.EventImage = img.URL
		event.ImageThumbnail = img.ThumbnailURL
	}
	event.UpdatedAt = s.now().UTC()

	if err := s.repo.Update(ctx, event); err != nil {
		if input.Image != nil {
			s.images.Remove(imageURLs(event.EventImage, event.ImageThumbnail)...)
		}
		return nil, notFoundOrInternal(err, "updating event")
	}
	s.images.Remove(stale...)

	slog.Info("event updated", slog.Int64("event_id", event.ID))
	return event, nil
}

// Delete removes the row and then, best-effort, its image files.
func (s *eventService) Delete(ctx context.Context, id int64) error {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFoundOrInternal(err, "finding event")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err, "deleting event")
	}
	s.images.Remove(imageURLs(event.EventImage, event.ImageThumbnail)...)

	slog.Info("event deleted", slog.Int64("event_id", id))
	return nil
}

// Search normalizes paging and returns one page of results.
func (s *eventService) Search(ctx context.Context, filter SearchFilter) (*EventPage, error) {
	if filter.Page < 1 {
		filter.Page = DefaultPage
	}
	if filter.Limit < 1 {
		filter.Limit = DefaultLimit
	}
	if filter.Limit > MaxLimit {
		filter.Limit = MaxLimit
	}

	events, total, err := s.repo.Search(ctx, filter)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("searching events: %w", err))
	}
	if events == nil {
		events = []Event{}
	}

	return &EventPage{
		Events:     events,
		Total:      total,
		Page:       filter.Page,
		TotalPages: (total + filter.Limit - 1) / filter.Limit,
	}, nil
}

// Vote records a like or dislike. Repeating the same kind is a Conflict;
// holding both kinds at once is allowed.
func (s *eventService) Vote(ctx context.Context, userID, eventID int64, kind VoteKind) (*VoteResult, error) {
	if kind != VoteLike && kind != VoteDislike {
		return nil, apperror.NewBadRequest("Invalid vote type")
	}

	if _, err := s.repo.FindByID(ctx, eventID); err != nil {
		return nil, notFoundOrInternal(err, "finding event")
	}

	voted, err := s.repo.HasVote(ctx, userID, eventID, kind)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("checking vote: %w", err))
	}
	if voted {
		return nil, apperror.NewConflict(fmt.Sprintf("You have already %sd this event", kind))
	}

	if err := s.repo.AddVote(ctx, userID, eventID, kind); err != nil {
		if apperror.IsConflict(err) || apperror.IsNotFound(err) {
			return nil, err
		}
		return nil, apperror.NewInternal(fmt.Errorf("adding vote: %w", err))
	}

	event, err := s.repo.FindByID(ctx, eventID)
	if err != nil {
		return nil, notFoundOrInternal(err, "reloading event")
	}

	slog.Info("event voted",
		slog.Int64("event_id", eventID),
		slog.Int64("user_id", userID),
		slog.String("kind", string(kind)),
	)
	return &VoteResult{
		Message:      fmt.Sprintf("Event %sd", kind),
		LikeCount:    event.LikeCount,
		DislikeCount: event.DislikeCount,
	}, nil
}

// Admin status values.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// SetStatus maps "active"/"inactive" onto the display flag.
func (s *eventService) SetStatus(ctx context.Context, id int64, status string) (*Event, error) {
	var visible bool
	switch status {
	case StatusActive:
		visible = true
	case StatusInactive:
		visible = false
	default:
		return nil, apperror.NewBadRequest("Invalid status")
	}

	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err, "finding event")
	}

	if err := s.repo.SetDisplayStatus(ctx, id, visible); err != nil {
		return nil, notFoundOrInternal(err, "setting display status")
	}
	event.DisplayStatus = visible

	slog.Info("event status changed",
		slog.Int64("event_id", id),
		slog.String("status", status),
	)
	return event, nil
}

// Report counts paid and unpaid events created between from and to,
// both days inclusive.
func (s *eventService) Report(ctx context.Context, from, to time.Time) (*Report, error) {
	if to.Before(from) {
		return nil, apperror.NewBadRequest("endDate must not be before startDate")
	}

	rep, err := s.repo.CountByPaidStatus(ctx, from, to.AddDate(0, 0, 1))
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("building report: %w", err))
	}
	return rep, nil
}

// Daily event defaults.
const (
	dailyTitle       = "Daily Scheduled Event"
	dailyDescription = "This event was created automatically at 12 PM IST"
	dailyCity        = "New Delhi"
)

// CreateDaily inserts the automatically generated event for day. It has no
// upload, so EventImage stays empty.
func (s *eventService) CreateDaily(ctx context.Context, day time.Time) (*Event, error) {
	now := s.now().UTC()
	date := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	event := &Event{
		Title:         dailyTitle,
		Description:   dailyDescription,
		City:          dailyCity,
		PaidStatus:    false,
		DisplayStatus: true,
		EventDate:     &date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("creating daily event: %w", err)
	}
	return event, nil
}

// ActivateForDate shows every hidden event dated day.
func (s *eventService) ActivateForDate(ctx context.Context, day time.Time) (int64, error) {
	n, err := s.repo.ActivateForDate(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("activating events: %w", err)
	}
	return n, nil
}

// --- Helpers ---

// apply copies every supplied field of input onto e.
func apply(e *Event, in EventInput) {
	setString(&e.Title, in.Title)
	setString(&e.Description, in.Description)
	setString(&e.Email, in.Email)
	setString(&e.Phone, in.Phone)
	setString(&e.Address, in.Address)
	setString(&e.City, in.City)
	setString(&e.OrganizerDetails, in.OrganizerDetails)
	if in.PaidStatus != nil {
		e.PaidStatus = *in.PaidStatus
	}
	if in.DisplayStatus != nil {
		e.DisplayStatus = *in.DisplayStatus
	}
	if in.EventDate != nil {
		d := *in.EventDate
		e.EventDate = &d
	} else if in.ClearEventDate {
		e.EventDate = nil
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func imageURLs(url string, thumb *string) []string {
	urls := []string{url}
	if thumb != nil {
		urls = append(urls, *thumb)
	}
	return urls
}

func notFoundOrInternal(err error, action string) error {
	if apperror.IsNotFound(err) {
		return err
	}
	return apperror.NewInternal(fmt.Errorf("%s: %w", action, err))
}

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
	"github.com/eventboard/eventboard/internal/plugins/audit"
	"github.com/eventboard/eventboard/internal/plugins/auth"
	"github.com/eventboard/eventboard/internal/plugins/events"
)

// mockEventService implements the parts of events.EventService the admin
// handler uses.
type mockEventService struct {
	events.EventService
	searchFn    func(ctx context.Context, f events.SearchFilter) (*events.EventPage, error)
	setStatusFn func(ctx context.Context, id int64, status string) (*events.Event, error)
	reportFn    func(ctx context.Context, from, to time.Time) (*events.Report, error)
}

func (m *mockEventService) Search(ctx context.Context, f events.SearchFilter) (*events.EventPage, error) {
	return m.searchFn(ctx, f)
}

func (m *mockEventService) SetStatus(ctx context.Context, id int64, status string) (*events.Event, error) {
	return m.setStatusFn(ctx, id, status)
}

func (m *mockEventService) Report(ctx context.Context, from, to time.Time) (*events.Report, error) {
	return m.reportFn(ctx, from, to)
}

// mockAuditService records logged entries.
type mockAuditService struct {
	logged     []*audit.Entry
	logErr     error
	activityFn func(ctx context.Context, page int) (*audit.ActivityPage, error)
}

func (m *mockAuditService) Log(_ context.Context, entry *audit.Entry) error {
	m.logged = append(m.logged, entry)
	return m.logErr
}

func (m *mockAuditService) Activity(ctx context.Context, page int) (*audit.ActivityPage, error) {
	return m.activityFn(ctx, page)
}

func newTestHandler(svc events.EventService) (*Handler, *mockAuditService) {
	au := &mockAuditService{}
	return NewHandler(svc, au), au
}

func assertAppError(t *testing.T, err error, expectedCode int) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Code != expectedCode {
		t.Errorf("expected status %d, got %d (message: %s)", expectedCode, appErr.Code, appErr.Message)
	}
}

func TestListEvents_IncludesHidden(t *testing.T) {
	var got events.SearchFilter
	svc := &mockEventService{
		searchFn: func(_ context.Context, f events.SearchFilter) (*events.EventPage, error) {
			got = f
			return &events.EventPage{Events: []events.Event{}, Page: 1}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/listEvents?page=3&filterCity=pune", nil)
	rec := httptest.NewRecorder()
	h, _ := newTestHandler(svc)
	if err := h.ListEvents(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.VisibleOnly {
		t.Error("admin listing must include hidden events")
	}
	if got.Page != 3 || got.FilterCity != "pune" {
		t.Errorf("unexpected filter %+v", got)
	}
}

func TestSetStatus(t *testing.T) {
	var gotID int64
	var gotStatus string
	svc := &mockEventService{
		setStatusFn: func(_ context.Context, id int64, status string) (*events.Event, error) {
			gotID, gotStatus = id, status
			return &events.Event{ID: id, DisplayStatus: false}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/admin/events/4/status", strings.NewReader(`{"status":"inactive"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("4")
	auth.SetIdentity(c, &auth.Identity{ID: 1, IsAdmin: true})

	h, au := newTestHandler(svc)
	if err := h.SetStatus(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != 4 || gotStatus != "inactive" {
		t.Errorf("expected (4, inactive), got (%d, %s)", gotID, gotStatus)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	if len(au.logged) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(au.logged))
	}
	entry := au.logged[0]
	if entry.ActorID != 1 || entry.Action != audit.ActionEventStatusChanged {
		t.Errorf("unexpected audit entry %+v", entry)
	}
	if entry.EventID == nil || *entry.EventID != 4 || entry.Details["status"] != "inactive" {
		t.Errorf("audit entry does not describe the change: %+v", entry)
	}
}

func TestSetStatus_AuditFailureDoesNotFail(t *testing.T) {
	svc := &mockEventService{
		setStatusFn: func(_ context.Context, id int64, _ string) (*events.Event, error) {
			return &events.Event{ID: id, DisplayStatus: true}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/admin/events/4/status", strings.NewReader(`{"status":"active"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("4")
	auth.SetIdentity(c, &auth.Identity{ID: 1, IsAdmin: true})

	h, au := newTestHandler(svc)
	au.logErr = apperror.NewInternal(errors.New("db down"))
	if err := h.SetStatus(c); err != nil {
		t.Fatalf("audit failure must not fail the request: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestSetStatus_NotFoundIsNotAudited(t *testing.T) {
	svc := &mockEventService{
		setStatusFn: func(context.Context, int64, string) (*events.Event, error) {
			return nil, apperror.NewNotFound("Event not found")
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/admin/events/9/status", strings.NewReader(`{"status":"active"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("9")

	h, au := newTestHandler(svc)
	assertAppError(t, h.SetStatus(c), 404)
	if len(au.logged) != 0 {
		t.Errorf("expected no audit entry, got %d", len(au.logged))
	}
}

func TestSetStatus_InvalidStatus(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/admin/events/4/status", strings.NewReader(`{"status":"archived"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("4")

	h, _ := newTestHandler(&mockEventService{})
	assertAppError(t, h.SetStatus(c), 400)
}

func TestReports(t *testing.T) {
	var gotFrom, gotTo time.Time
	svc := &mockEventService{
		reportFn: func(_ context.Context, from, to time.Time) (*events.Report, error) {
			gotFrom, gotTo = from, to
			return &events.Report{PaidEvents: 3, UnpaidEvents: 7}, nil
		},
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/reports?startDate=2026-01-01&endDate=2026-01-31", nil)
	rec := httptest.NewRecorder()
	h, _ := newTestHandler(svc)
	if err := h.Reports(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotFrom.Format(time.DateOnly) != "2026-01-01" || gotTo.Format(time.DateOnly) != "2026-01-31" {
		t.Errorf("unexpected range %v..%v", gotFrom, gotTo)
	}

	var body struct {
		Reports events.Report `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Reports.PaidEvents != 3 || body.Reports.UnpaidEvents != 7 {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestReports_MissingDates(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/reports?startDate=2026-01-01", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	h, _ := newTestHandler(&mockEventService{})
	assertAppError(t, h.Reports(c), 400)
}

func TestActivity(t *testing.T) {
	h, au := newTestHandler(&mockEventService{})
	var gotPage int
	au.activityFn = func(_ context.Context, page int) (*audit.ActivityPage, error) {
		gotPage = page
		return &audit.ActivityPage{Entries: []audit.Entry{{ID: 1, Action: audit.ActionEventStatusChanged}}, Total: 1, Page: page, TotalPages: 1}, nil
	}

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/activity?page=2", nil)
	rec := httptest.NewRecorder()
	if err := h.Activity(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPage != 2 {
		t.Errorf("expected page 2, got %d", gotPage)
	}
	if !strings.Contains(rec.Body.String(), `"action":"event.status_changed"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestActivity_InvalidPage(t *testing.T) {
	h, _ := newTestHandler(&mockEventService{})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/admin/activity?page=-1", nil)
	assertAppError(t, h.Activity(e.NewContext(req, httptest.NewRecorder())), 400)
}

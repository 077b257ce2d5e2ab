package events

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// mockService implements EventService and records the last input.
type mockService struct {
	EventService
	lastInput  EventInput
	lastID     int64
	lastFilter SearchFilter
	lastKind   VoteKind
}

func (m *mockService) Create(_ context.Context, in EventInput) (*Event, error) {
	m.lastInput = in
	return &Event{ID: 1, Title: *in.Title}, nil
}

func (m *mockService) Update(_ context.Context, id int64, in EventInput) (*Event, error) {
	m.lastID, m.lastInput = id, in
	return &Event{ID: id}, nil
}

func (m *mockService) Search(_ context.Context, f SearchFilter) (*EventPage, error) {
	m.lastFilter = f
	return &EventPage{Events: []Event{}, Page: 1}, nil
}

func (m *mockService) Vote(_ context.Context, _, eventID int64, kind VoteKind) (*VoteResult, error) {
	m.lastID, m.lastKind = eventID, kind
	return &VoteResult{Message: "Event " + string(kind) + "d", LikeCount: 1}, nil
}

func multipartBody(t *testing.T, fields map[string]string, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if withImage {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="eventImage"; filename="poster.jpg"`)
		h.Set("Content-Type", "image/jpeg")
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte{0xFF, 0xD8, 0xFF, 0xE0})
	}
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandlerCreate(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{
		"title":       " <b>Jazz Night</b> ",
		"description": `<p>Live</p><script>x()</script>`,
		"paidStatus":  "false",
		"eventDate":   "2026-11-01",
	}, true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events/createEvents", body)
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	svc := &mockService{}
	if err := NewHandler(svc).Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	in := svc.lastInput
	if in.Title == nil || *in.Title != "Jazz Night" {
		t.Errorf("expected sanitized title, got %v", in.Title)
	}
	if in.Description == nil || strings.Contains(*in.Description, "script") {
		t.Errorf("expected sanitized description, got %v", in.Description)
	}
	if in.PaidStatus == nil || *in.PaidStatus {
		t.Error("expected explicit paidStatus=false")
	}
	if in.DisplayStatus != nil {
		t.Error("unsent displayStatus must stay nil")
	}
	if in.EventDate == nil || !in.EventDate.Equal(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected event date %v", in.EventDate)
	}
	if in.Image == nil || in.Image.MimeType != "image/jpeg" || len(in.Image.Data) != 4 {
		t.Errorf("unexpected image %+v", in.Image)
	}
}

func TestHandlerCreate_StoresPlainText(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{
		"title": "Rock & Roll Night",
		"city":  "O'Fallon",
	}, true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events/createEvents", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := e.NewContext(req, httptest.NewRecorder())

	svc := &mockService{}
	if err := NewHandler(svc).Create(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := *svc.lastInput.Title; got != "Rock & Roll Night" {
		t.Errorf("title stored as %q", got)
	}
	if got := *svc.lastInput.City; got != "O'Fallon" {
		t.Errorf("city stored as %q", got)
	}

	// The search pattern built from what the user typed must match.
	pattern := containsPattern("rock & roll")
	stored := strings.ToLower(*svc.lastInput.Title)
	if !strings.Contains(stored, strings.Trim(pattern, "%")) {
		t.Errorf("pattern %q cannot match stored title %q", pattern, stored)
	}
}

func TestHandlerCreate_TitleLengthCheckedAfterSanitizing(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"255 ampersands", strings.Repeat("&", 255), false},
		{"markup around 255 chars", "<b>" + strings.Repeat("a", 255) + "</b>", false},
		{"256 chars", strings.Repeat("a", 256), true},
		{"only markup", "<b></b>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := multipartBody(t, map[string]string{"title": tt.title}, true)
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/events/createEvents", body)
			req.Header.Set(echo.HeaderContentType, ct)
			c := e.NewContext(req, httptest.NewRecorder())

			svc := &mockService{}
			err := NewHandler(svc).Create(c)
			if tt.wantErr {
				assertAppError(t, err, http.StatusBadRequest)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n := len([]rune(*svc.lastInput.Title)); n > 255 {
				t.Errorf("stored title has %d chars", n)
			}
		})
	}
}

func TestHandlerCreate_RequiresImage(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"title": "Jazz Night"}, false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events/createEvents", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := e.NewContext(req, httptest.NewRecorder())

	assertAppError(t, NewHandler(&mockService{}).Create(c), 400)
}

func TestHandlerCreate_RequiresTitle(t *testing.T) {
	body, ct := multipartBody(t, map[string]string{"city": "Pune"}, true)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events/createEvents", body)
	req.Header.Set(echo.HeaderContentType, ct)
	c := e.NewContext(req, httptest.NewRecorder())

	assertAppError(t, NewHandler(&mockService{}).Create(c), 400)
}

func TestHandlerUpdate_Urlencoded(t *testing.T) {
	form := url.Values{"displayStatus": {"0"}, "email": {""}, "eventDate": {""}}

	e := echo.New()
	req := httptest.NewRequest(http.MethodPut, "/events/updateEvents/5", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	svc := &mockService{}
	if err := NewHandler(svc).Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.lastID != 5 {
		t.Errorf("expected id 5, got %d", svc.lastID)
	}
	in := svc.lastInput
	if in.DisplayStatus == nil || *in.DisplayStatus {
		t.Error("expected displayStatus=false")
	}
	if in.Email == nil || *in.Email != "" {
		t.Error("expected email cleared")
	}
	if !in.ClearEventDate || in.EventDate != nil {
		t.Error("expected eventDate cleared")
	}
	if in.Title != nil || in.City != nil || in.Image != nil {
		t.Error("unsent fields must stay nil")
	}
}

func TestHandlerUpdate_InvalidFields(t *testing.T) {
	tests := []struct {
		name string
		id   string
		form url.Values
	}{
		{"bad id", "abc", url.Values{}},
		{"bad email", "5", url.Values{"email": {"not-an-email"}}},
		{"bad bool", "5", url.Values{"paidStatus": {"maybe"}}},
		{"bad date", "5", url.Values{"eventDate": {"01/11/2026"}}},
		{"empty title", "5", url.Values{"title": {""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(tt.form.Encode()))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
			c := e.NewContext(req, httptest.NewRecorder())
			c.SetParamNames("id")
			c.SetParamValues(tt.id)

			assertAppError(t, NewHandler(&mockService{}).Update(c), 400)
		})
	}
}

func TestHandlerList(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/events/getEvents?page=2&limit=5&search=jazz&filterDate=2026-10-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	svc := &mockService{}
	if err := NewHandler(svc).List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f := svc.lastFilter
	if f.Page != 2 || f.Limit != 5 || f.Search != "jazz" || !f.VisibleOnly {
		t.Errorf("unexpected filter %+v", f)
	}
	if f.FilterDate == nil || f.FilterDate.Format(dateLayout) != "2026-10-01" {
		t.Errorf("unexpected filterDate %v", f.FilterDate)
	}
}

func TestHandlerList_LimitTooLarge(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/events/getEvents?limit=500", nil)
	c := e.NewContext(req, httptest.NewRecorder())

	assertAppError(t, NewHandler(&mockService{}).List(c), 400)
}

func TestHandlerDislike(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/events/9/dislike", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("9")

	svc := &mockService{}
	if err := NewHandler(svc).Dislike(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || svc.lastID != 9 || svc.lastKind != VoteDislike {
		t.Errorf("unexpected vote: code=%d id=%d kind=%s", rec.Code, svc.lastID, svc.lastKind)
	}
}

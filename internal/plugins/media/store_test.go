package media

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T) *imageStore {
	return &imageStore{
		root:    t.TempDir(),
		maxSize: 5 << 20,
		now:     func() time.Time { return time.Date(2025, 4, 9, 0, 0, 0, 0, time.UTC) },
	}
}

func assertUploadError(t *testing.T, err error) {
	t.Helper()
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *apperror.AppError, got %T: %v", err, err)
	}
	if appErr.Type != apperror.TypeUpload || appErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 upload_error, got %d %s", appErr.Code, appErr.Type)
	}
}

func TestSave_PNGWithThumbnail(t *testing.T) {
	s := newTestStore(t)
	data := pngBytes(t, 1200, 600)

	img, err := s.Save(context.Background(), UploadInput{MimeType: "image/png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(img.URL, "/uploads/2025/04/") || !strings.HasSuffix(img.URL, ".png") {
		t.Errorf("unexpected url %q", img.URL)
	}
	if _, err := os.Stat(diskPath(s.root, img.URL)); err != nil {
		t.Errorf("original not on disk: %v", err)
	}
	if img.ThumbnailURL == nil {
		t.Fatal("expected a thumbnail for a large image")
	}

	f, err := os.Open(diskPath(s.root, *img.ThumbnailURL))
	if err != nil {
		t.Fatalf("thumbnail not on disk: %v", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decoding thumbnail: %v", err)
	}
	if cfg.Width != thumbnailMaxDim || cfg.Height != 200 {
		t.Errorf("expected %dx200 thumbnail, got %dx%d", thumbnailMaxDim, cfg.Width, cfg.Height)
	}
}

func TestSave_SmallImageHasNoThumbnail(t *testing.T) {
	s := newTestStore(t)
	data := pngBytes(t, 50, 50)

	img, err := s.Save(context.Background(), UploadInput{MimeType: "image/png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.ThumbnailURL != nil {
		t.Errorf("did not expect a thumbnail, got %q", *img.ThumbnailURL)
	}
}

// oversizedPNG returns a tiny PNG whose header declares w x h pixels.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	data := pngBytes(t, 1, 1)
	// IHDR data starts after the 8 byte signature, 4 byte length and type.
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestGenerateThumbnail_RejectsHugeDimensions(t *testing.T) {
	data := oversizedPNG(t, 50000, 50000)

	_, err := generateThumbnail(data, t.TempDir(), "x", ".png", thumbnailMaxDim)
	if !errors.Is(err, errTooManyPixels) {
		t.Fatalf("expected errTooManyPixels, got %v", err)
	}
}

func TestSave_HugeDimensionsKeepsOriginalOnly(t *testing.T) {
	s := newTestStore(t)
	data := oversizedPNG(t, 50000, 50000)

	img, err := s.Save(context.Background(), UploadInput{MimeType: "image/png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if img.ThumbnailURL != nil {
		t.Errorf("did not expect a thumbnail, got %q", *img.ThumbnailURL)
	}
	if _, err := os.Stat(diskPath(s.root, img.URL)); err != nil {
		t.Errorf("original not on disk: %v", err)
	}
}

func TestSave_Rejections(t *testing.T) {
	s := newTestStore(t)
	s.maxSize = 1024
	small := pngBytes(t, 4, 4)

	tests := []struct {
		name  string
		input UploadInput
	}{
		{"unsupported type", UploadInput{MimeType: "application/pdf", Size: 10, Data: []byte("%PDF-1.4")}},
		{"webp not allowed", UploadInput{MimeType: "image/webp", Size: 12, Data: []byte("RIFF0000WEBP")}},
		{"spoofed content", UploadInput{MimeType: "image/jpeg", Size: int64(len(small)), Data: small}},
		{"too large", UploadInput{MimeType: "image/png", Size: 2048, Data: small}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Save(context.Background(), tt.input)
			assertUploadError(t, err)
		})
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	data := pngBytes(t, 10, 10)
	img, err := s.Save(context.Background(), UploadInput{MimeType: "image/png", Size: int64(len(data)), Data: data})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	s.Remove(img.URL)
	if _, err := os.Stat(diskPath(s.root, img.URL)); !os.IsNotExist(err) {
		t.Error("expected file to be removed")
	}

	// Already gone and foreign URLs are silently ignored.
	s.Remove(img.URL, "https://elsewhere.example/x.png", "")
}

func TestDiskPath_StaysInsideRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "srv", "uploads")
	tests := []struct {
		url  string
		want string
	}{
		{"/uploads/2025/04/a.png", filepath.Join(root, "2025", "04", "a.png")},
		{"/uploads/../../etc/passwd", filepath.Join(root, "etc", "passwd")},
		{"/uploads/", ""},
		{"/static/a.png", ""},
	}
	for _, tt := range tests {
		if got := diskPath(root, tt.url); got != tt.want {
			t.Errorf("diskPath(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func multipartRequest(t *testing.T, field, mimeType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	_ = w.WriteField("title", "Spring Fair")
	if field != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="poster.png"`)
		h.Set("Content-Type", mimeType)
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("creating part: %v", err)
		}
		_, _ = part.Write(data)
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/events/createEvents", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestReadUpload(t *testing.T) {
	e := echo.New()
	data := pngBytes(t, 8, 8)
	c := e.NewContext(multipartRequest(t, "eventImage", "image/png", data), httptest.NewRecorder())

	if err := ParseForm(c); err != nil {
		t.Fatalf("parse: %v", err)
	}
	in, err := ReadUpload(c, "eventImage", true)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if in.MimeType != "image/png" || !bytes.Equal(in.Data, data) || in.OriginalName != "poster.png" {
		t.Errorf("unexpected upload %+v", in)
	}
	if c.FormValue("title") != "Spring Fair" {
		t.Error("form values should still be readable")
	}
}

func TestReadUpload_Missing(t *testing.T) {
	e := echo.New()

	c := e.NewContext(multipartRequest(t, "", "", nil), httptest.NewRecorder())
	if err := ParseForm(c); err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, err := ReadUpload(c, "eventImage", true)
	assertUploadError(t, err)

	in, err := ReadUpload(c, "eventImage", false)
	if err != nil || in != nil {
		t.Errorf("optional missing file should be (nil, nil), got %v, %v", in, err)
	}
}

func TestBodyLimit(t *testing.T) {
	e := echo.New()
	req := multipartRequest(t, "eventImage", "image/png", make([]byte, 4096))
	c := e.NewContext(req, httptest.NewRecorder())

	err := BodyLimit(1024)(func(c echo.Context) error {
		t.Error("handler must not run")
		return nil
	})(c)
	assertUploadError(t, err)
}

package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	// Register the GIF decoder for image.Decode.
	_ "image/gif"

	"github.com/google/uuid"
	"golang.org/x/image/draw"

	"github.com/eventboard/eventboard/internal/apperror"
)

// thumbnailMaxDim bounds the longer side of generated thumbnails.
const thumbnailMaxDim = 400

// thumbnailMaxPixels is the largest source image that is decoded for a
// thumbnail. The header is checked first, so a small file declaring huge
// dimensions is never decoded.
const thumbnailMaxPixels = 40_000_000

// errTooManyPixels marks a source image over thumbnailMaxPixels.
var errTooManyPixels = errors.New("image dimensions exceed thumbnail budget")

// ImageStore saves and removes event images.
type ImageStore interface {
	Save(ctx context.Context, input UploadInput) (*Image, error)
	Remove(urls ...string)
	Root() string
}

// imageStore implements ImageStore on the local filesystem.
type imageStore struct {
	root    string // Root directory for file storage.
	maxSize int64  // Maximum file size in bytes.
	now     func() time.Time
}

// NewImageStore creates a store writing below root.
func NewImageStore(root string, maxSize int64) ImageStore {
	return &imageStore{root: root, maxSize: maxSize, now: time.Now}
}

// Root returns the directory images are stored in.
func (s *imageStore) Root() string {
	return s.root
}

// Save validates and writes an image, plus a thumbnail where possible.
// Rejections are upload errors; disk failures are internal errors.
func (s *imageStore) Save(ctx context.Context, input UploadInput) (*Image, error) {
	if !AllowedMimeTypes[input.MimeType] {
		return nil, apperror.NewUpload("Only JPEG, PNG and GIF images are allowed")
	}
	if input.Size > s.maxSize || int64(len(input.Data)) > s.maxSize {
		return nil, apperror.NewUpload(fmt.Sprintf("File too large; maximum size is %d MB", s.maxSize/(1024*1024)))
	}

	// Reject non-image content sent with a spoofed Content-Type.
	if !validateMagicBytes(input.Data, input.MimeType) {
		return nil, apperror.NewUpload("File content does not match its declared type")
	}

	id := uuid.NewString()
	subdir := s.now().UTC().Format("2006/01")
	dir := filepath.Join(s.root, filepath.FromSlash(subdir))
	ext := MimeToExtension[input.MimeType]

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("creating upload directory: %w", err))
	}

	filename := id + ext
	if err := os.WriteFile(filepath.Join(dir, filename), input.Data, 0644); err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("writing image: %w", err))
	}

	img := &Image{
		URL:      URLPrefix + subdir + "/" + filename,
		MimeType: input.MimeType,
		Size:     int64(len(input.Data)),
	}

	// Animated GIFs would lose their frames, so they keep the original only.
	if input.MimeType != "image/gif" {
		thumb, err := generateThumbnail(input.Data, dir, id, ext, thumbnailMaxDim)
		if err != nil {
			slog.Warn("thumbnail generation failed",
				slog.String("file", filename),
				slog.Any("error", err),
			)
		} else if thumb != "" {
			url := URLPrefix + subdir + "/" + thumb
			img.ThumbnailURL = &url
		}
	}

	slog.Info("image stored",
		slog.String("url", img.URL),
		slog.String("mime_type", input.MimeType),
		slog.Int64("size", img.Size),
	)
	return img, nil
}

// Remove deletes stored files by URL. A missing file is not an error and
// other failures are only logged: the caller's record change already
// happened and must not be undone by a stale file.
func (s *imageStore) Remove(urls ...string) {
	for _, url := range urls {
		path := diskPath(s.root, url)
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to remove image",
				slog.String("url", url),
				slog.Any("error", err),
			)
		}
	}
}

// diskPath maps a public URL to a file below root, refusing anything that
// would escape it.
func diskPath(root, url string) string {
	rel := relativePath(url)
	if rel == "" {
		return ""
	}
	clean := filepath.Clean("/" + filepath.FromSlash(rel))
	if clean == string(filepath.Separator) {
		return ""
	}
	return filepath.Join(root, strings.TrimPrefix(clean, string(filepath.Separator)))
}

// generateThumbnail writes a resized copy of an image and returns its file
// name, or "" when the image is already small enough.
func generateThumbnail(data []byte, dir, id, ext string, maxDim int) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("reading image header: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > thumbnailMaxPixels {
		return "", fmt.Errorf("%dx%d: %w", cfg.Width, cfg.Height, errTooManyPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= maxDim && h <= maxDim {
		return "", nil
	}

	// Keep the aspect ratio.
	newW, newH := maxDim, maxDim
	if w > h {
		newH = h * maxDim / w
	} else {
		newW = w * maxDim / h
	}

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)

	thumbFilename := fmt.Sprintf("%s_thumb%s", id, ext)
	thumbPath := filepath.Join(dir, thumbFilename)

	f, err := os.Create(thumbPath)
	if err != nil {
		return "", fmt.Errorf("creating thumbnail file: %w", err)
	}
	defer f.Close()

	if ext == ".png" {
		err = png.Encode(f, dst)
	} else {
		err = jpeg.Encode(f, dst, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		os.Remove(thumbPath)
		return "", fmt.Errorf("encoding thumbnail: %w", err)
	}

	return thumbFilename, nil
}

// validateMagicBytes checks that the file content's magic bytes match the
// declared MIME type.
func validateMagicBytes(data []byte, declaredMIME string) bool {
	if len(data) < 4 {
		return false
	}
	switch declaredMIME {
	case "image/jpeg":
		return data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF
	case "image/png":
		return len(data) >= 8 &&
			data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 &&
			data[4] == 0x0D && data[5] == 0x0A && data[6] == 0x1A && data[7] == 0x0A
	case "image/gif":
		return len(data) >= 6 && string(data[:3]) == "GIF"
	default:
		return false
	}
}

// Package media stores uploaded event images on the local filesystem and
// serves them back under /uploads. JPEG and PNG uploads get a resized
// thumbnail next to the original. Files live in a date-based directory
// structure with UUID names.
package media

import (
	"strings"
)

// URLPrefix is the public path under which stored images are served.
const URLPrefix = "/uploads/"

// Image is a stored upload. Paths are public URLs (URLPrefix + relative
// path on disk) so they can be returned to clients as-is.
type Image struct {
	URL          string
	ThumbnailURL *string
	MimeType     string
	Size         int64
}

// UploadInput holds a file read from a multipart request.
type UploadInput struct {
	OriginalName string
	MimeType     string
	Size         int64
	Data         []byte
}

// --- MIME Type Validation ---

// AllowedMimeTypes defines which MIME types are accepted for upload.
var AllowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// MimeToExtension maps MIME types to file extensions.
var MimeToExtension = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// relativePath turns a public URL back into a path below the upload root.
// URLs outside URLPrefix yield "".
func relativePath(url string) string {
	rel, ok := strings.CutPrefix(url, URLPrefix)
	if !ok {
		return ""
	}
	return rel
}

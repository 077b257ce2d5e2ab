package media

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
)

// RegisterRoutes serves stored images publicly under URLPrefix.
func RegisterRoutes(e *echo.Echo, store ImageStore) {
	root := store.Root()
	e.GET(URLPrefix+"*", func(c echo.Context) error {
		path := diskPath(root, URLPrefix+c.Param("*"))
		if path == "" {
			return apperror.NewNotFound("File not found")
		}
		// UUID-based filenames never change.
		c.Response().Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		return c.File(path)
	})
}

// BodyLimit rejects request bodies larger than maxBytes. Applied before the
// handler reads the body into memory. Oversized bodies are upload errors.
func BodyLimit(maxBytes int64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().ContentLength > maxBytes {
				return apperror.NewUpload(fmt.Sprintf("File too large; maximum size is %d MB", maxBytes/(1024*1024)))
			}
			c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, maxBytes)
			return next(c)
		}
	}
}

package media

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eventboard/eventboard/internal/apperror"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before the rest spills to temp files.
const multipartMemory = 8 << 20

// ParseForm parses a urlencoded or multipart body so that form values and
// files can be read. Body-size overruns become upload errors.
func ParseForm(c echo.Context) error {
	req := c.Request()
	ct := req.Header.Get(echo.HeaderContentType)

	var err error
	if strings.HasPrefix(ct, echo.MIMEMultipartForm) {
		err = req.ParseMultipartForm(multipartMemory)
	} else {
		err = req.ParseForm()
	}
	if err == nil {
		return nil
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperror.NewUpload(fmt.Sprintf("File too large; maximum size is %d MB", tooLarge.Limit/(1024*1024)))
	}
	return apperror.NewBadRequest("Bad request")
}

// ReadUpload reads the file in field from an already parsed request. When
// no file was sent it returns (nil, nil) unless required is set.
func ReadUpload(c echo.Context, field string, required bool) (*UploadInput, error) {
	form := c.Request().MultipartForm
	if form == nil || len(form.File[field]) == 0 {
		if required {
			return nil, apperror.NewUpload(field + " is required")
		}
		return nil, nil
	}

	header := form.File[field][0]
	src, err := header.Open()
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("opening upload: %w", err))
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("reading upload: %w", err))
	}

	return &UploadInput{
		OriginalName: header.Filename,
		MimeType:     header.Header.Get(echo.HeaderContentType),
		Size:         header.Size,
		Data:         data,
	}, nil
}

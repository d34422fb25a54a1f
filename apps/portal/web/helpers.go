package web

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/schoolhub/core"
	"github.com/trezcool/schoolhub/core/sheet"
)

const maxAvatarSize = 5 << 20

var errNotImage = core.NewValidationError(errors.New("please upload an image (PNG, JPEG, GIF or WebP) of at most 5MB"))

// reqCtx is the context of the request, carrying the backend session of the user.
func reqCtx(ctx echo.Context) context.Context {
	return ctx.Request().Context()
}

// spreadsheet sends the workbook written by write as a download named filename.
func spreadsheet(ctx echo.Context, filename string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return ctx.Blob(http.StatusOK, sheet.ContentType, buf.Bytes())
}

// imageExts maps the sniffed content types accepted for uploads to their file extension.
var imageExts = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// upload stores the image posted as field under dir and returns its public URL.
// The declared content type and filename are ignored: the type is sniffed from the content.
func (s *Server) upload(ctx echo.Context, field, dir string) (string, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return "", errBadUpload
	}
	if fh.Size > maxAvatarSize {
		return "", errNotImage
	}

	f, err := fh.Open()
	if err != nil {
		return "", errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", errors.Wrap(err, "reading upload")
	}
	head = head[:n]
	ct := http.DetectContentType(head)
	ext, ok := imageExts[ct]
	if !ok {
		return "", errNotImage
	}

	key := path.Join(dir, uuid.NewString()+ext)
	url, err := s.deps.Blob.Put(reqCtx(ctx), key, io.MultiReader(bytes.NewReader(head), f), ct)
	return url, errors.Wrap(err, "storing upload")
}

// openUpload opens the file posted as field.
func openUpload(ctx echo.Context, field string) (io.ReadCloser, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, errBadUpload
	}
	f, err := fh.Open()
	return f, errors.Wrap(err, "opening upload")
}

package handler

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/marketplace/storefront/internal/core/domain"
)

const maxUploadBytes = 10 << 20

// formFile reads an optional file field. A missing field yields nil.
func formFile(c echo.Context, name string) (*domain.Upload, error) {
	form, err := multipartForm(c)
	if err != nil {
		return nil, err
	}
	files := form.File[name]
	if len(files) == 0 {
		return nil, nil
	}
	u, err := readUpload(files[0])
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// formFiles reads every file sent under name.
func formFiles(c echo.Context, name string) ([]domain.Upload, error) {
	form, err := multipartForm(c)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Upload, 0, len(form.File[name]))
	for _, fh := range form.File[name] {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

func multipartForm(c echo.Context) (*multipart.Form, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "expected multipart/form-data")
	}
	return form, nil
}

func readUpload(fh *multipart.FileHeader) (domain.Upload, error) {
	if fh.Size > maxUploadBytes {
		return domain.Upload{}, echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("%s exceeds %d MB", fh.Filename, maxUploadBytes>>20))
	}
	f, err := fh.Open()
	if err != nil {
		return domain.Upload{}, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return domain.Upload{}, fmt.Errorf("read upload %s: %w", fh.Filename, err)
	}
	return domain.Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

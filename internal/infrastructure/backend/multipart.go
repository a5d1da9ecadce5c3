package backend

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/marketplace/storefront/internal/core/domain"
)

// multipartForm accumulates a multipart/form-data body. Errors are sticky and
// surface from request().
type multipartForm struct {
	buf     bytes.Buffer
	w       *multipart.Writer
	err     error
	summary map[string][]string
}

func newMultipart() *multipartForm {
	f := &multipartForm{summary: map[string][]string{}}
	f.w = multipart.NewWriter(&f.buf)
	return f
}

func (f *multipartForm) field(name, value string) {
	if f.err != nil {
		return
	}
	f.err = f.w.WriteField(name, value)
	f.summary[name] = append(f.summary[name], value)
}

func (f *multipartForm) file(name string, up domain.Upload) {
	if f.err != nil {
		return
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, name, up.Filename))
	ct := up.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := f.w.CreatePart(h)
	if err != nil {
		f.err = err
		return
	}
	if _, err := part.Write(up.Data); err != nil {
		f.err = err
		return
	}
	f.summary[name] = append(f.summary[name], fmt.Sprintf("%s (%d bytes)", up.Filename, len(up.Data)))
}

// emptyFile keeps parallel file arrays aligned when one entry has no file.
func (f *multipartForm) emptyFile(name string) {
	f.file(name, domain.Upload{Filename: "", ContentType: "application/octet-stream"})
}

func (f *multipartForm) request(method, path string) (request, error) {
	if f.err == nil {
		f.err = f.w.Close()
	}
	if f.err != nil {
		return request{}, fmt.Errorf("backend: build multipart body: %w", f.err)
	}
	return request{
		method:      method,
		path:        path,
		body:        bytes.NewReader(f.buf.Bytes()),
		contentType: f.w.FormDataContentType(),
		trace:       f.summary,
	}, nil
}

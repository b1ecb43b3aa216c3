package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/octobees/payadvice/internal/web"
)

const testSessionSecret = "handler-test-secret-0123456789ab"

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	renderer, err := web.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	e := echo.New()
	e.Renderer = renderer
	return e
}

// multipartRequest builds a POST / upload. An empty filename sends the field
// as a plain value, the way browsers submit an empty file input.
func multipartRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if filename == "" {
		if err := w.WriteField(field, ""); err != nil {
			t.Fatalf("write field: %v", err)
		}
	} else {
		part, err := w.CreateFormFile(field, filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(content); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

// followFlashes replays the cookies of rec and pops the queued flashes.
func followFlashes(e *echo.Echo, flashes *web.Flashes, rec *httptest.ResponseRecorder) []web.Flash {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range rec.Result().Cookies() {
		req.AddCookie(ck)
	}
	return flashes.Pop(e.NewContext(req, httptest.NewRecorder()))
}

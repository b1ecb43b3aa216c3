package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
)

// APIResponse describes the standard envelope returned by the JSON endpoints.
type APIResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Success sends a successful response using the shared envelope format.
func Success(c echo.Context, status int, message string, data any) error {
	if status == 0 {
		status = http.StatusOK
	}
	return c.JSON(status, APIResponse{
		Status:    "success",
		Message:   message,
		Data:      data,
		RequestID: middlewarepkg.RequestIDFromContext(c),
	})
}

// Error sends an error response using the shared envelope format.
func Error(c echo.Context, status int, message string) error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, APIResponse{
		Status:    "error",
		Message:   message,
		RequestID: middlewarepkg.RequestIDFromContext(c),
	})
}

type errorPage struct {
	pageData
	Code      int
	Message   string
	RequestID string
}

// ErrorHandler renders errors that escape a handler: the envelope for API
// callers, the error page for browsers. Internal details of 5xx errors are
// logged, not shown.
func ErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
		if code >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("request_id", middlewarepkg.RequestIDFromContext(c)),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err),
			)
			message = http.StatusText(code)
		}

		var werr error
		switch {
		case c.Request().Method == http.MethodHead:
			werr = c.NoContent(code)
		case middlewarepkg.WantsJSON(c.Request()) || c.Echo().Renderer == nil:
			werr = Error(c, code, message)
		default:
			werr = c.Render(code, "error.html", errorPage{
				pageData:  pageData{Title: http.StatusText(code)},
				Code:      code,
				Message:   message,
				RequestID: middlewarepkg.RequestIDFromContext(c),
			})
		}
		if werr != nil {
			log.Warn("writing error response failed", zap.Error(werr))
		}
	}
}

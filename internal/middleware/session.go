package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	authpkg "github.com/octobees/payadvice/internal/auth"
)

// SessionCookie holds the operator JWT.
const SessionCookie = "payadvice_session"

// Session validates the operator token from the session cookie or a bearer
// header and stores the operator in the request context. Browsers without a
// valid session are redirected to loginPath; API callers get 401.
func Session(manager *authpkg.JWTManager, loginPath string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFromRequest(c.Request())
			if token == "" {
				return unauthorized(c, loginPath, "missing session")
			}

			claims, err := manager.ParseToken(token)
			if err != nil {
				return unauthorized(c, loginPath, "invalid session")
			}

			c.Set(ContextKeyUsername, claims.Username)
			c.Set(ContextKeyUserRole, claims.Role)

			return next(c)
		}
	}
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get(echo.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func unauthorized(c echo.Context, loginPath, message string) error {
	if WantsJSON(c.Request()) || loginPath == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "error", "message": message})
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

// WantsJSON reports whether the caller is a script rather than a browser page load.
func WantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON) ||
		strings.HasPrefix(r.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON)
}

package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole rejects sessions whose role differs from role. It runs after
// Session, so a missing role means the session middleware was skipped.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			value, _ := c.Get(ContextKeyUserRole).(string)
			if value == role {
				return next(c)
			}

			message := "insufficient permissions"
			if value == "" {
				message = "missing role"
			}
			if WantsJSON(c.Request()) {
				return c.JSON(http.StatusForbidden, map[string]string{"status": "error", "message": message})
			}
			return echo.NewHTTPError(http.StatusForbidden, "Your account cannot use the upload form.")
		}
	}
}

package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/octobees/payadvice/internal/dto"
	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
	"github.com/octobees/payadvice/internal/service"
	"github.com/octobees/payadvice/internal/web"
)

// AuthHandler exposes the operator login endpoints.
type AuthHandler struct {
	authService  *service.AuthService
	flashes      *web.Flashes
	secureCookie bool
	ttl          time.Duration
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(authService *service.AuthService, flashes *web.Flashes, ttl time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{authService: authService, flashes: flashes, ttl: ttl, secureCookie: secureCookie}
}

// LoginPage handles GET /login requests.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.Render(http.StatusOK, "login.html", pageData{Title: "Sign in", Flashes: h.flashes.Pop(c)})
}

// Login handles POST /login requests. Browsers get the session cookie and a
// redirect; JSON callers get the token in the response envelope.
func (h *AuthHandler) Login(c echo.Context) error {
	wantsJSON := middlewarepkg.WantsJSON(c.Request())

	var req dto.LoginRequest
	if err := c.Bind(&req); err != nil {
		if wantsJSON {
			return Error(c, http.StatusBadRequest, "invalid payload")
		}
		return h.loginFailed(c, "Invalid login form.")
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		if wantsJSON {
			return Error(c, http.StatusBadRequest, "username and password are required")
		}
		return h.loginFailed(c, "Username and password are required.")
	}

	token, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			if wantsJSON {
				return Error(c, http.StatusUnauthorized, "invalid credentials")
			}
			return h.loginFailed(c, "Invalid credentials.")
		}
		return Error(c, http.StatusInternalServerError, "unable to authenticate")
	}

	if wantsJSON {
		return Success(c, http.StatusOK, "login successful", dto.LoginResponse{AccessToken: token})
	}

	c.SetCookie(&http.Cookie{
		Name:     middlewarepkg.SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) loginFailed(c echo.Context, message string) error {
	_ = h.flashes.Add(c, web.Flash{Category: service.FlashDanger, Message: message})
	return c.Redirect(http.StatusSeeOther, "/login")
}

// Logout handles POST /logout requests.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middlewarepkg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusSeeOther, "/login")
}

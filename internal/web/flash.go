package web

import (
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
)

const (
	flashSession = "payadvice_flash"
	flashSep     = "\x1f"
)

// Flash is a one-shot message carried to the next page through a cookie.
type Flash struct {
	Category string
	Message  string
}

// Flashes stores flash messages in a signed cookie session.
type Flashes struct {
	store sessions.Store
}

// NewFlashes builds a cookie-backed flash store signed with secret.
func NewFlashes(secret string, secure bool) *Flashes {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Flashes{store: store}
}

// Add queues messages for the next request.
func (f *Flashes) Add(c echo.Context, flashes ...Flash) error {
	sess, err := f.store.Get(c.Request(), flashSession)
	if err != nil && sess == nil {
		return err
	}
	for _, fl := range flashes {
		sess.AddFlash(fl.Category + flashSep + fl.Message)
	}
	return sess.Save(c.Request(), c.Response())
}

// Pop returns and clears the queued messages. A tampered or expired cookie
// yields no messages.
func (f *Flashes) Pop(c echo.Context) []Flash {
	sess, err := f.store.Get(c.Request(), flashSession)
	if sess == nil {
		return nil
	}
	raw := sess.Flashes()
	if err != nil || len(raw) == 0 {
		return nil
	}
	_ = sess.Save(c.Request(), c.Response())

	out := make([]Flash, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		category, message, found := strings.Cut(s, flashSep)
		if !found {
			category, message = "info", s
		}
		out = append(out, Flash{Category: category, Message: message})
	}
	return out
}

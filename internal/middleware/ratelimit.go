package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/octobees/payadvice/internal/config"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// uploadLimiters keeps one token bucket per client address. Buckets idle for
// longer than ttl are dropped on the next lookup.
type uploadLimiters struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	every   rate.Limit
	burst   int
	ttl     time.Duration
	now     func() time.Time
}

func (l *uploadLimiters) allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for key, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.ttl {
			delete(l.clients, key)
		}
	}

	cl, ok := l.clients[client]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.clients[client] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// UploadRateLimiter limits uploads per client address. Every upload runs OCR,
// an LLM call and a CRM browser session, so a burst from one client would
// starve the others. Safe methods pass through so the form page stays
// reachable.
func UploadRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	if cfg.Requests <= 0 || cfg.Interval <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	perRequest := cfg.Interval / time.Duration(cfg.Requests)
	if perRequest <= 0 {
		perRequest = time.Second
	}

	limiters := &uploadLimiters{
		clients: map[string]*clientLimiter{},
		every:   rate.Every(perRequest),
		burst:   cfg.Requests,
		ttl:     2 * cfg.Interval,
		now:     time.Now,
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			switch c.Request().Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				return next(c)
			}

			if !limiters.allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", retryAfter(perRequest))
				if WantsJSON(c.Request()) {
					return c.JSON(http.StatusTooManyRequests, map[string]string{"status": "error", "message": "upload rate limit exceeded"})
				}
				return echo.NewHTTPError(http.StatusTooManyRequests, "Too many uploads. Please wait before trying again.")
			}

			return next(c)
		}
	}
}

func retryAfter(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/payadvice/internal/auth"
	"github.com/octobees/payadvice/internal/config"
	"github.com/octobees/payadvice/internal/handler"
	"github.com/octobees/payadvice/internal/metrics"
	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth   *handler.AuthHandler
	Web    *handler.WebHandler
	Search *handler.SearchHandler
}

// Options controls optional route groups.
type Options struct {
	// AuthEnabled puts the web form behind the operator session.
	AuthEnabled bool
	Metrics     *metrics.Metrics
}

// Register wires all HTTP routes for the web service.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers, opts Options) {
	registerHealth(e, opts.Metrics)

	if opts.AuthEnabled {
		e.GET("/login", handlers.Auth.LoginPage)
		e.POST("/login", handlers.Auth.Login)
		e.POST("/logout", handlers.Auth.Logout)
	}

	secured := e.Group("")
	if opts.AuthEnabled {
		secured.Use(middlewarepkg.Session(jwtManager, "/login"), middlewarepkg.RequireRole(auth.RoleOperator))
	}

	secured.GET("/", handlers.Web.Index)
	secured.POST("/", handlers.Web.Upload, middlewarepkg.UploadRateLimiter(cfg.Server.RateLimitUpload))
	secured.GET("/results/:id", handlers.Web.Results)
	secured.GET("/results/:id/export.xlsx", handlers.Web.ExportXLSX)
	secured.GET("/serve_pdf/:filename", handlers.Web.ServePDF)
	secured.POST("/generate_annotated_pdf", handlers.Web.GenerateAnnotatedPDF)

	if handlers.Search != nil {
		secured.POST("/search", handlers.Search.Search)
	}
}

// RegisterWorker wires the routes of the CRM worker service.
func RegisterWorker(e *echo.Echo, search *handler.SearchHandler, m *metrics.Metrics) {
	registerHealth(e, m)
	e.POST("/search", search.Search)
}

func registerHealth(e *echo.Echo, m *metrics.Metrics) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

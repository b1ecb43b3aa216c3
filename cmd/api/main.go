package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/octobees/payadvice/internal/annotate"
	"github.com/octobees/payadvice/internal/auth"
	"github.com/octobees/payadvice/internal/config"
	"github.com/octobees/payadvice/internal/crm"
	"github.com/octobees/payadvice/internal/crmworker"
	"github.com/octobees/payadvice/internal/database"
	"github.com/octobees/payadvice/internal/extract"
	"github.com/octobees/payadvice/internal/handler"
	"github.com/octobees/payadvice/internal/logger"
	"github.com/octobees/payadvice/internal/metrics"
	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
	"github.com/octobees/payadvice/internal/ocr"
	"github.com/octobees/payadvice/internal/repository"
	"github.com/octobees/payadvice/internal/router"
	"github.com/octobees/payadvice/internal/scheduler"
	"github.com/octobees/payadvice/internal/service"
	"github.com/octobees/payadvice/internal/storage"
	"github.com/octobees/payadvice/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog, err := logger.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	// Bounds connecting and migrating only. Long-lived clients get their own
	// context since some of them keep the one they were built with.
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var jobs repository.JobsRepository
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(startupCtx, cfg.DatabaseURL)
		if err != nil {
			zlog.Fatal("failed to connect database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(startupCtx, pool); err != nil {
			zlog.Fatal("failed to apply migrations", zap.Error(err))
		}
		jobs = repository.NewPGXJobsRepository(pool)
	} else {
		zlog.Warn("DATABASE_URL not set, job history is kept in memory")
		jobs = repository.NewMemoryJobsRepository()
	}

	store, err := storage.NewLocal(cfg.Server.UploadDir)
	if err != nil {
		zlog.Fatal("failed to prepare upload directory", zap.Error(err))
	}

	var archiver storage.Archiver
	if cfg.Storage.ArchiveBucket != "" {
		gcs, err := storage.NewGCSArchiver(context.Background(), cfg.Storage.ArchiveBucket, "annotated", zlog)
		if err != nil {
			zlog.Fatal("failed to connect archive bucket", zap.Error(err))
		}
		defer gcs.Close()
		archiver = gcs
	}

	engine, err := newOCREngine(cfg.OCR)
	if err != nil {
		zlog.Fatal("failed to set up ocr", zap.Error(err))
	}
	completer, err := extract.NewCompleter(context.Background(), cfg.LLM)
	if err != nil {
		zlog.Fatal("failed to set up llm provider", zap.Error(err))
	}

	var searcher crm.FeeSearcher
	if cfg.CRM.WorkerURL != "" {
		searcher = crmworker.NewClient(nil, cfg.CRM.WorkerURL, middlewarepkg.RequestIDFrom)
		zlog.Info("crm searches delegated to worker", zap.String("worker", cfg.CRM.WorkerURL))
	} else {
		if err := cfg.RequireCRMCredentials(); err != nil {
			zlog.Warn("crm credentials missing, searches will fail to log in", zap.Error(err))
		}
		searcher = crm.NewLocalSearcher(
			crm.ChromeFactory(crm.ChromeOptions{Headless: cfg.CRM.Headless}, zlog),
			crm.OptionsFromConfig(cfg.CRM),
			zlog,
		)
	}

	m := metrics.New()
	pipeline := service.NewPipelineService(service.PipelineDeps{
		Store:      store,
		Jobs:       jobs,
		Reader:     ocr.NewReader(engine, cfg.OCR.DPI, cfg.OCR.Concurrency, zlog),
		Extractor:  extract.NewExtractor(completer, zlog),
		Searcher:   searcher,
		Metrics:    m,
		CRMTimeout: cfg.CRM.SearchTimeout,
		Logger:     zlog,
	})
	annotations := service.NewAnnotationService(jobs, annotate.New(store, zlog), store, archiver, zlog)

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(cfg.Auth.OperatorUsername, cfg.Auth.OperatorPasswordHash, jwtManager)
	if !authService.Enabled() {
		zlog.Warn("OPERATOR_PASSWORD_HASH not set, the web form is not protected")
	}

	secureCookies := cfg.Env == "production"
	flashes := web.NewFlashes(cfg.Server.SessionSecret, secureCookies)
	renderer, err := web.NewRenderer()
	if err != nil {
		zlog.Fatal("failed to parse templates", zap.Error(err))
	}

	sweeper := scheduler.NewRetentionSweeper(store, cfg.Storage.Retention, cfg.Storage.SweepSchedule, zlog)
	if err := sweeper.Start(); err != nil {
		zlog.Fatal("failed to start retention sweeper", zap.Error(err))
	}
	defer sweeper.Stop()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.HTTPErrorHandler = handler.ErrorHandler(zlog)

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(zlog))
	e.Use(m.Middleware())
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, router.Handlers{
		Auth:   handler.NewAuthHandler(authService, flashes, jwtManager.TTL(), secureCookies),
		Web:    handler.NewWebHandler(pipeline, annotations, store, flashes, cfg.Server.MaxUploadMB, zlog),
		Search: handler.NewSearchHandler(searcher, zlog),
	}, router.Options{AuthEnabled: authService.Enabled(), Metrics: m})

	serve(e, ":"+cfg.Server.Port, zlog)
}

// newOCREngine builds the engine used for every upload for the life of the
// process.
func newOCREngine(cfg config.OCRConfig, opts ...option.ClientOption) (ocr.Engine, error) {
	if cfg.Engine == "tesseract" {
		return ocr.NewTesseractEngine(cfg.Language), nil
	}
	return ocr.NewVisionEngine(context.Background(), cfg.GoogleAPIKey, opts...)
}

func serve(e *echo.Echo, addr string, zlog *zap.Logger) {
	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("http server listening", zap.String("addr", addr))
		serverErr <- e.Start(addr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zlog.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

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

	"github.com/octobees/payadvice/internal/config"
	"github.com/octobees/payadvice/internal/crm"
	"github.com/octobees/payadvice/internal/handler"
	"github.com/octobees/payadvice/internal/logger"
	"github.com/octobees/payadvice/internal/metrics"
	middlewarepkg "github.com/octobees/payadvice/internal/middleware"
	"github.com/octobees/payadvice/internal/router"
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

	if err := cfg.RequireCRMCredentials(); err != nil {
		zlog.Fatal("crm worker cannot start", zap.Error(err))
	}

	searcher := crm.NewLocalSearcher(
		crm.ChromeFactory(crm.ChromeOptions{Headless: cfg.CRM.Headless}, zlog),
		crm.OptionsFromConfig(cfg.CRM),
		zlog,
	)
	m := metrics.New()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(zlog)

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(zlog))
	e.Use(m.Middleware())
	e.Use(echoMiddleware.Recover())

	router.RegisterWorker(e, handler.NewSearchHandler(searcher, zlog), m)

	addr := ":" + cfg.Server.Port
	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("crm worker listening", zap.String("addr", addr), zap.Bool("headless", cfg.CRM.Headless))
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

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/iconidentify/mediaslayer/internal/api"
	"github.com/iconidentify/mediaslayer/internal/api/handler"
	mw "github.com/iconidentify/mediaslayer/internal/api/middleware"
	"github.com/iconidentify/mediaslayer/internal/config"
	"github.com/iconidentify/mediaslayer/internal/domain"
	"github.com/iconidentify/mediaslayer/internal/repository"
	"github.com/iconidentify/mediaslayer/internal/service"
	"github.com/iconidentify/mediaslayer/internal/worker"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to config file")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("mediaslayer %s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting mediaslayer",
		"version", Version,
		"build_time", BuildTime,
	)

	// Load configuration
	if err := config.LoadDotEnv(*envFile); err != nil {
		logger.Error("failed to load env file", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	themes, err := cfg.UI.Themes()
	if err != nil {
		logger.Error("failed to load themes", "error", err)
		os.Exit(1)
	}

	// Initialize services
	eventSvc := service.NewEventService(service.EventServiceConfig{
		RingBufferSize: cfg.Events.RingBufferSize,
	}, logger)

	formSvc := service.NewFormService(
		repository.NewInMemoryFormRepository(),
		themes,
		cfg.Form.FormConfig(),
		eventSvc,
		logger,
	)

	// Initialize handlers
	formHandler := handler.NewFormHandler(formSvc, logger)
	eventHandler := handler.NewEventHandler(eventSvc, logger)
	healthHandler := handler.NewHealthHandler(formSvc, eventSvc)
	uiHandler := handler.NewUIHandler(themes, logger)

	// Setup router
	limiter := mw.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	router := api.NewRouter(formHandler, eventHandler, healthHandler, uiHandler, limiter, logger)

	// Start idle form sweeper
	sweeper := worker.NewSweeper(cfg.Sessions.SweeperConfig(), formSvc, logger)
	sweeper.Start()

	eventSvc.Emit(domain.NewEvent(domain.EventSeverityInfo, domain.EventCategorySystem, "server started").
		From("server").
		With(domain.EventMetadata{"version": Version, "theme": themes.Default().Name}))

	// Setup HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "addr", srv.Addr, "theme", themes.Default().Name)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	healthHandler.Drain()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// SSE streams end when their forms or the event service close, so close
	// those before waiting on the server.
	if err := sweeper.Stop(5 * time.Second); err != nil {
		logger.Error("sweeper shutdown error", "error", err)
	}
	if err := formSvc.Close(ctx); err != nil {
		logger.Error("form service shutdown error", "error", err)
	}
	eventSvc.Close()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

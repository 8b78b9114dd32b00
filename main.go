package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/highspring-tester/hat/internal/config"
	"github.com/highspring-tester/hat/internal/handlers"
	"github.com/highspring-tester/hat/internal/jobs"
	"github.com/highspring-tester/hat/internal/utils"
	"github.com/highspring-tester/hat/pkg"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(slogLogger)
	logger := utils.NewSlogLogger(slogLogger)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Initialize store (postgres or mongo, optional redis cache)
	store, err := pkg.OpenStore(cfg, slogLogger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	// Initialize services
	serviceManager, err := pkg.NewServiceManager(rootCtx, cfg, store, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}

	// Notification retry job
	scheduler, err := jobs.NewScheduler(serviceManager.Notifier(), cfg.NotificationRetrySchedule, slogLogger)
	if err != nil {
		log.Fatalf("Failed to initialize scheduler: %v", err)
	}
	scheduler.Start()

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, logger)
	handlers.NewHandlerManager(serviceManager, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           router,
		ReadTimeout:       cfg.Timeouts.Read,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Timeouts.Write,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment, "store", cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	scheduler.Stop(ctx)

	if err := serviceManager.Shutdown(ctx); err != nil {
		logger.Error("Failed to shutdown services", "error", err)
	}
	stopBackground()

	if err := store.Close(ctx); err != nil {
		logger.Error("Failed to close store", "error", err)
	}

	logger.Info("Server exited")
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dan9191/spending-insights/internal/categorize"
	"github.com/Dan9191/spending-insights/internal/config"
	"github.com/Dan9191/spending-insights/internal/digest"
	"github.com/Dan9191/spending-insights/internal/handler"
	"github.com/Dan9191/spending-insights/internal/ingest"
	"github.com/Dan9191/spending-insights/internal/repository"
	"github.com/Dan9191/spending-insights/internal/scheduler"
	"github.com/Dan9191/spending-insights/internal/service"
	"github.com/Dan9191/spending-insights/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize store
	store, err := repository.Open(cfg.StoreDriver, cfg.DBConn, logger)
	if err != nil {
		logger.Fatalf("Failed to open %s store: %v", cfg.StoreDriver, err)
	}
	defer store.Close()
	if err := store.Ping(context.Background()); err != nil {
		logger.Fatalf("Failed to ping store: %v", err)
	}

	// Initialize layers
	pipeline := ingest.NewPipeline(store, categorize.New(), logger)
	analytics := service.NewAnalytics(store, logger)
	h := handler.NewHandler(pipeline, analytics, store, cfg, logger)

	// Anomaly digest
	if cfg.DigestSchedule != "" {
		var mailer digest.Mailer
		if cfg.MailEnabled() {
			mailer = email.NewSender(cfg, logger)
		} else {
			logger.Warn("SMTP_HOST or DIGEST_TO not set, anomaly digests will only be logged")
		}
		sched := scheduler.New(time.UTC, logger)
		job := digest.NewJob(analytics, mailer, cfg.DigestZ, logger)
		if _, err := sched.Schedule("anomaly-digest", cfg.DigestSchedule, job.Run); err != nil {
			logger.Fatalf("Failed to schedule anomaly digest: %v", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler.NewRouter(h, cfg, logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting server on %s (store: %s)", addr, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		logger.Errorf("Server failed: %v", err)
	case sig := <-quit:
		logger.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
	}
}

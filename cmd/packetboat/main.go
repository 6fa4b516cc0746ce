package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"packetboat/internal/config"
	"packetboat/internal/handlers"
	"packetboat/internal/mailer"
	"packetboat/internal/metrics"
	"packetboat/internal/reporter"
	"packetboat/internal/storage"
	"packetboat/internal/worker"
	pkgconfig "packetboat/pkg/config"
	"packetboat/pkg/logging"
	"packetboat/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("packetboat")

	// Load environment variables
	pkgconfig.LoadEnv(logger)

	logger.WithFields(logging.Fields{
		"version": version.Version,
		"commit":  version.GetShortCommit(),
	}).Info("Starting Packetboat (Weekly Traffic Report Mailer)")

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	store, err := storage.NewS3Client(cfg.S3, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create object store client")
	}

	sender := mailer.New(mailer.Config{
		Hosts: cfg.SMTPHosts,
		Port:  cfg.SMTPPort,
		User:  cfg.SMTPUser,
		Pass:  cfg.SMTPPass,
		Mode:  cfg.SMTPMode,
		From:  cfg.MailFrom,
	}, logger)

	metricsCollector := metrics.New(nil)
	runner := reporter.New(cfg, store, sender, metricsCollector, logger)

	mode := pkgconfig.GetEnv("RUN_MODE", "once")
	switch mode {
	case "once":
		if _, err := runner.Run(context.Background(), reporter.RunOptions{}); err != nil {
			logger.WithError(err).Error("Report run failed")
			os.Exit(1)
		}
	case "serve":
		serve(cfg, runner, logger)
	default:
		logger.WithField("mode", mode).Fatal("RUN_MODE must be 'once' or 'serve'")
	}
}

func serve(cfg *config.Config, runner *reporter.Reporter, logger logging.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// === Background Workers ===
	scheduler := worker.NewScheduler(runner, cfg.RunWeekday, logger)
	go scheduler.Start(ctx)

	// === HTTP Server ===
	router := handlers.SetupRouter(handlers.New(runner, logger))
	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("HTTP server starting...")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown failed")
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pharmaguard/pgx-server/internal/api"
	"github.com/pharmaguard/pgx-server/internal/config"
	"github.com/pharmaguard/pgx-server/internal/explain"
	"github.com/pharmaguard/pgx-server/internal/feedback"
	"github.com/pharmaguard/pgx-server/internal/ml"
	"github.com/pharmaguard/pgx-server/internal/reference"
	"github.com/pharmaguard/pgx-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		logrus.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	store, err := reference.NewStore(&cfg.Reference, logger)
	if err != nil {
		logger.Fatalf("Failed to build reference store: %v", err)
	}

	predictor, err := ml.LoadDefault(&cfg.Model, &cfg.Cache, ml.SyntheticSource{}, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize classifier: %v", err)
	}

	var explainer service.Explainer
	if cfg.Explain.Enabled {
		explainer = explain.NewClient(cfg.Explain, logger)
	}

	var fbStore feedback.Store
	if cfg.Feedback.Enabled {
		sqlStore, err := feedback.NewSQLiteStore(cfg.Feedback.DBPath)
		if err != nil {
			logger.Fatalf("Failed to open feedback store: %v", err)
		}
		defer sqlStore.Close()
		fbStore = sqlStore
	}

	pipeline := service.NewPipeline(store, predictor, explainer, logger)
	server := api.NewServer(cfg, pipeline, store, predictor.State(), fbStore, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host":       cfg.Server.Host,
		"port":       cfg.Server.Port,
		"model_mode": predictor.State().Mode,
	}).Info("Starting PharmaGuard PGx server")

	if err := server.Start(ctx); err != nil {
		logger.Fatalf("Server failed: %v", err)
	}
	logger.Info("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/thyroid-dss-server/internal/api"
	"github.com/thyroid-dss-server/internal/casestore"
	"github.com/thyroid-dss-server/internal/config"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := newLogger(cfg.Logging.Level, cfg.Logging.Format)

	// Open case store
	var store casestore.Store
	switch cfg.Store.Backend {
	case "postgres":
		store, err = casestore.NewPostgresStoreFromURL(configManager.GetDatabaseConnectionString())
	default:
		store, err = casestore.NewSQLiteStore(cfg.Store.Path)
	}
	if err != nil {
		log.Fatalf("Failed to open case store: %v", err)
	}
	defer store.Close()

	logger.WithFields(logrus.Fields{
		"host":  cfg.Server.Host,
		"port":  cfg.Server.Port,
		"store": cfg.Store.Backend,
	}).Info("Starting thyroid DSS server")

	// Create server
	server, err := api.NewServer(logger, cfg, store)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	// Start server
	if err := server.Start(ctx); err != nil {
		log.Fatalf("Server failed: %v", err)
	}

	logger.Info("Server stopped")
}

func newLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	return logger
}

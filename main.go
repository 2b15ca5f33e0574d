package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"bookreview/internal/config"
	"bookreview/internal/database"
	"bookreview/internal/logger"
	"bookreview/internal/repositories"
	"bookreview/internal/services"
	"bookreview/internal/validation"
	"bookreview/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to load configuration")
	}
	logger.Configure(cfg.LogLevel, cfg.IsProduction())

	// --- Database ---
	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to open database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Log.WithError(err).Warn("Error closing database")
		}
	}()

	// --- Initialize RabbitMQ Client ---
	// Events are optional: without RABBITMQ_URL nothing is published.
	var publisher services.EventPublisher
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL})
		if err != nil {
			logger.Log.WithError(err).Fatal("Failed to initialize RabbitMQ client")
		}
		defer mqClient.Close()
		publisher = mqClient

		if err := mqClient.ConsumeEvents(rabbitmq.LogEvent); err != nil {
			logger.Log.WithError(err).Error("Failed to start RabbitMQ consumer")
		}
	} else {
		logger.Log.Info("RABBITMQ_URL is empty. Activity events are disabled.")
	}

	// --- Bootstrap admin ---
	bootstrap := services.NewAuthService(repositories.NewGORMUserRepository(db), validation.New(), cfg.Auth.JWTSecret, cfg.Auth.SessionTTL, nil)
	if err := bootstrap.EnsureAdmin(context.Background(), cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Log.WithError(err).Fatal("Failed to create admin user")
	}

	app, err := NewApp(cfg, db, publisher)
	if err != nil {
		logger.Log.WithError(err).Fatal("Failed to build application")
	}

	// --- Start HTTP Server ---
	logger.Log.WithField("port", cfg.Port).Info("Starting server")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.Port); err != nil {
			logger.Log.WithError(err).Fatal("Server failed to start")
		}
	}()

	<-quit
	logger.Log.Info("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		logger.Log.WithError(err).Error("Error during Fiber shutdown")
	}
	logger.Log.Info("Server gracefully stopped")
}

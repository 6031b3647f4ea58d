package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/config"
	"github.com/anime-shed/leaf-health-go/internal/container"
	"github.com/anime-shed/leaf-health-go/internal/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize dependency injection container
	c, err := container.NewContainer(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	loadCtx, cancelLoad := context.WithTimeout(context.Background(), cfg.ArtifactFetchTimeout)
	report := c.LoadModels(loadCtx)
	cancelLoad()
	if report.Loaded == 0 {
		logger.Warn("No models loaded; analysis requests will fail until a model is reloaded")
	}

	server := &http.Server{
		Addr:         cfg.ServerAddress(),
		Handler:      c.Handler(),
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"address":       cfg.ServerAddress(),
			"timeout":       cfg.RequestTimeout,
			"models_loaded": report.Loaded,
			"total_models":  report.Total,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
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
		logger.WithError(err).Error("Server forced to shutdown")
	}
	if err := c.Close(); err != nil {
		logger.WithError(err).Warn("Failed to release resources")
	}

	logger.Info("Server exited")
}

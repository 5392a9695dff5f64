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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nbyapp/nbyapp/internal/api"
	"github.com/nbyapp/nbyapp/internal/bootstrap"
	"github.com/nbyapp/nbyapp/internal/config"
	"github.com/nbyapp/nbyapp/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting nbyapp service", zap.String("addr", cfg.Addr()))

	ctx := context.Background()
	components, err := bootstrap.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}

	// Create SSE manager
	sseManager := api.NewSSEManager(components.Broadcaster)

	// Create handler
	handler := api.NewHandler(components.Generator, components.Store, sseManager, components.Metrics, logger)

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup router
	router := api.SetupRouter(handler, api.RouterConfig{
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})

	// No write timeout: status streams stay open for the whole generation
	srv := &http.Server{
		Addr:        cfg.Addr(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	// End open streams first so Shutdown does not wait on them
	sseManager.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	if err := components.Close(); err != nil {
		logger.Warn("Failed to close store", zap.Error(err))
	}

	logger.Info("Server stopped")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bastien98/dobby-backend-poc/internal/api"
	"github.com/bastien98/dobby-backend-poc/internal/api/handlers"
	"github.com/bastien98/dobby-backend-poc/internal/repository"
	"github.com/bastien98/dobby-backend-poc/internal/service"
	"github.com/bastien98/dobby-backend-poc/pkg/config"
	"github.com/bastien98/dobby-backend-poc/pkg/logger"
	"github.com/bastien98/dobby-backend-poc/pkg/postgres"
	"github.com/bastien98/dobby-backend-poc/pkg/s3storage"

	"go.uber.org/zap"
)

func main() {
	// Load configuration; missing capability credentials abort here.
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize global logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting dobby receipt service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		appLogger.Fatal("Failed to ensure schema", zap.Error(err))
	}

	// Initialize blob storage
	blobs, err := s3storage.New(&cfg.S3)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob storage", zap.Error(err))
	}
	if err := blobs.EnsureBucket(ctx); err != nil {
		appLogger.Fatal("Failed to ensure bucket", zap.Error(err))
	}

	// Initialize repository and services
	receiptRepo := repository.NewReceiptRepository(db, appLogger)

	visionService := service.NewVisionService(&cfg.OpenAI, appLogger)
	extractionService := service.NewExtractionService(visionService, appLogger)
	ingestService := service.NewIngestService(receiptRepo, blobs, extractionService, cfg.OpenAI.Timeout, appLogger)
	breakdownService := service.NewBreakdownService(receiptRepo, appLogger)

	// Initialize handlers and router
	receiptHandler := handlers.NewReceiptHandler(ingestService, breakdownService, appLogger)
	app := api.SetupRouter(receiptHandler)

	// Start server
	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

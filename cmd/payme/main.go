package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"payme-bot/internal/api"
	"payme-bot/internal/api/handlers"
	"payme-bot/internal/repository"
	"payme-bot/internal/service"
	"payme-bot/pkg/config"
	"payme-bot/pkg/logger"
	"payme-bot/pkg/postgres"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
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
	appLogger.Info("Starting PayMe service")

	// Initialize database
	ctx := context.Background()
	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	expenseRepo := repository.NewExpenseRepository(db, appLogger)
	taxonomyRepo := repository.NewTaxonomyRepository(db, appLogger)

	// Initialize services
	llmClient, err := service.NewGigaChatClient(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	defer llmClient.Close()

	extractService := service.NewExtractService(llmClient, cfg.GigaChat.ExtractTimeout, appLogger)
	mediaService := service.NewMediaService(llmClient, extractService, cfg.GigaChat.VisionTimeout, appLogger)
	speechService := service.NewSpeechService(&cfg.Speech, appLogger)
	archiveService := service.NewArchiveService(cfg.Dropbox, appLogger)

	userService := service.NewUserService(userRepo, appLogger)
	captureService := service.NewCaptureService(extractService, mediaService, speechService, expenseRepo, cfg.Upload.Dir, appLogger)
	classifyService := service.NewClassifyService(expenseRepo, taxonomyRepo, archiveService, appLogger)

	// Initialize handlers
	messageHandler := handlers.NewMessageHandler(captureService, userService, appLogger)
	triggerHandler := handlers.NewTriggerHandler(classifyService, captureService, userService, appLogger)
	taxonomyHandler := handlers.NewTaxonomyHandler(taxonomyRepo, userService, appLogger)
	userHandler := handlers.NewUserHandler(userService, appLogger)

	// Setup router
	app := api.SetupRouter(messageHandler, triggerHandler, taxonomyHandler, userHandler, cfg.Access, appLogger)

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

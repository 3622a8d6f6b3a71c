package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisor-service/internal/config"
	"advisor-service/internal/handler"
	"advisor-service/internal/llm"
	"advisor-service/internal/orchestrator"
	"advisor-service/internal/registry"
	"advisor-service/internal/service"
	"advisor-service/internal/session"
	"advisor-service/internal/storage"
	"advisor-service/internal/training"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Starting Advisor Service...")

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", zap.Error(err))
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Fatal("Failed to load config", zap.Error(err))
		}
		logger.Warn("Config file not found, using defaults", zap.String("path", configPath))
		cfg = config.Default()
	}

	ctx := context.Background()

	// Backends without credentials stay registered but unavailable
	router, err := llm.NewRouterFromConfig(ctx, cfg.Providers, llm.RouterConfig{
		Timeout: cfg.RequestTimeout,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize providers", zap.Error(err))
	}
	defer router.Close()

	reg, err := registry.NewModelRegistry(cfg.Descriptors())
	if err != nil {
		logger.Fatal("Invalid model registry", zap.Error(err))
	}
	catalogue, err := registry.NewChainCatalogue(cfg.Chains)
	if err != nil {
		logger.Fatal("Invalid chain catalogue", zap.Error(err))
	}

	engine, err := orchestrator.NewEngine(orchestrator.Options{
		Registry:  reg,
		Catalogue: catalogue,
		Invoker:   router,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize engine", zap.Error(err))
	}

	// Initialize training data store
	kv, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer kv.Close()

	store := training.NewStore(kv, cfg.Training.MaxEntries, logger)

	// Initialize service
	advisor, err := service.NewAdvisor(service.Options{
		Engine:    engine,
		Registry:  reg,
		Catalogue: catalogue,
		Sessions:  session.NewCache(cfg.Sessions.MaxOpen, cfg.Sessions.TTL, logger),
		Store:     store,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("Failed to initialize advisor", zap.Error(err))
	}

	// Initialize HTTP handler
	apiHandler := handler.NewHandler(advisor, logger)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	engineHTTP := gin.Default()

	// Add CORS middleware
	engineHTTP.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Register routes
	apiHandler.RegisterRoutes(engineHTTP)

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Server.Port)
	logger.Info("Server starting", zap.String("address", serverAddr))

	// Graceful shutdown
	srv := &http.Server{
		Addr:    serverAddr,
		Handler: engineHTTP,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	available := 0
	for _, p := range cfg.Providers {
		if router.Available(p.BackendID()) {
			available++
		}
	}
	logger.Info("Advisor Service is running",
		zap.String("port", cfg.Server.Port),
		zap.Int("providers", len(cfg.Providers)),
		zap.Int("available", available),
		zap.Int("chains", catalogue.Len()),
		zap.String("storage", string(cfg.Storage.Type)))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

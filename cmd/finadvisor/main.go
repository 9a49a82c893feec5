package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"finadvisor/internal/api"
	"finadvisor/internal/api/handlers"
	"finadvisor/internal/repository"
	"finadvisor/internal/service"
	"finadvisor/pkg/auth"
	"finadvisor/pkg/config"
	"finadvisor/pkg/logger"
	"finadvisor/pkg/postgres"

	"go.uber.org/zap"
)

// @title FinAdvisor API
// @version 1.0
// @description Personal finance service generating AI spending recommendations
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@finadvisor.app

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	appLogger.Info("Starting FinAdvisor service", zap.String("env", cfg.Server.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.NewPool(ctx, &cfg.Database, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := repository.NewUserRepository(db, appLogger)
	txRepo := repository.NewTransactionRepository(db, appLogger)
	recRepo := repository.NewRecommendationRepository(db, appLogger)

	// JWT manager
	jwtManager := auth.NewJWTManager(cfg.JWT.SecretKey, cfg.JWT.Expiration, cfg.JWT.RefreshExp)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, appLogger)

	llmService, err := service.NewLLMService(&cfg.GigaChat, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM service", zap.Error(err))
	}
	defer llmService.Close()

	advisorService := service.NewAdvisorService(llmService, appLogger)
	recService := service.NewRecommendationService(recRepo, txRepo, advisorService, &cfg.Recommendation, appLogger)

	// Expired records are purged in the background; readers never rely on it.
	go recService.RunExpirySweep(ctx, cfg.Recommendation.SweepInterval)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, appLogger)
	recHandler := handlers.NewRecommendationHandler(recService, &cfg.Server, appLogger)
	txHandler := handlers.NewTransactionHandler(txRepo, appLogger)

	app := api.SetupRouter(authHandler, recHandler, txHandler, jwtManager, appLogger)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	cancel()
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}

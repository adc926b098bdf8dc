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

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/actions"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/agent"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/api/handlers"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/config"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/database"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/health"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/middleware"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/migration"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/patients"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/registry"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/repository"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/services"
	"github.com/Ayash-Bera/clinical-trials-sorter/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	logger.Info("Starting clinical trials server...")

	if err := cfg.ValidateStorage(); err != nil {
		logger.WithError(err).Fatal("Storage configuration validation failed")
	}
	if err := cfg.ValidateRegistry(); err != nil {
		logger.WithError(err).Fatal("Registry configuration validation failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbManager, err := database.NewManager(&database.Config{
		DatabaseURL: cfg.Database.URL,
		RedisURL:    cfg.Redis.URL,
		LogLevel:    cfg.LogLevel,
	}, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize database manager")
	}
	defer dbManager.Close()

	if err := migration.NewRunner(dbManager.DB, logger).RunMigrations("migrations"); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}

	repoManager := repository.NewRepositoryManager(dbManager.DB)
	cache := database.NewCache(dbManager.Redis, logger)

	s3Client, err := patients.NewS3Client(ctx, cfg.Storage.Region, cfg.Storage.Endpoint)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize S3 client")
	}
	patientStore := patients.NewS3Store(s3Client, cfg.Storage.Bucket, cfg.Storage.PatientKey, logger)

	registryClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout, logger)
	trialService := services.NewTrialService(registryClient, cache, cfg.Cache.TrialTTL, logger)

	router := actions.NewRouter(
		patients.NewLookup(patientStore, logger),
		trialService,
		actions.Options{TrialCap: cfg.Registry.TrialCap},
		logger,
	)

	healthChecker := health.NewHealthChecker([]health.Probe{
		{Name: "postgresql", Check: func(ctx context.Context) error { return dbManager.PingDatabase() }},
		{Name: "redis", Check: func(ctx context.Context) error { return dbManager.PingRedis() }},
		{Name: "registry", Check: registryClient.Ping},
		{Name: "object_store", Check: patientStore.Ping},
	}, cache, repoManager.SystemHealth, logger)
	go healthChecker.PeriodicHealthCheck(ctx, time.Minute)

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.RequestLogger(logger))
	if cfg.Server.RateLimit > 0 {
		engine.Use(middleware.NewRateLimiter(ctx, cfg.Server.RateLimit).RateLimit())
	}

	healthHandler := handlers.NewHealthHandler(healthChecker, logger)
	actionHandler := handlers.NewActionHandler(router, repoManager.ActionInvocation, logger)

	engine.GET("/health", healthHandler.HandleHealth)

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.HandleDetailedHealth)
		v1.POST("/actions", actionHandler.HandleAction)
		v1.GET("/actions/stats", actionHandler.GetActionStats)
		v1.GET("/actions/recent", actionHandler.GetRecentActions)

		if err := cfg.ValidateAgent(); err != nil {
			logger.WithError(err).Warn("Agent not configured, chat endpoints disabled")
		} else {
			agentService := agent.NewService(agent.NewClient(cfg.Agent.URL, cfg.Agent.APIKey, logger), logger)
			chatHandler := handlers.NewChatHandler(agentService, repoManager.AgentSession, logger)
			v1.POST("/chat", chatHandler.HandleChat)
			v1.POST("/chat/end", chatHandler.HandleEndSession)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
	}

	logger.Info("Server exited")
}

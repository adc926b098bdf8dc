package main

import (
	"context"
	"log"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/actions"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/config"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/database"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/patients"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/registry"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/services"
	"github.com/Ayash-Bera/clinical-trials-sorter/pkg/utils"
	"github.com/aws/aws-lambda-go/lambda"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)

	if err := cfg.ValidateStorage(); err != nil {
		logger.WithError(err).Fatal("Storage configuration validation failed")
	}

	ctx := context.Background()

	s3Client, err := patients.NewS3Client(ctx, cfg.Storage.Region, cfg.Storage.Endpoint)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize S3 client")
	}
	patientStore := patients.NewS3Store(s3Client, cfg.Storage.Bucket, cfg.Storage.PatientKey, logger)

	registryClient := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout, logger)

	// The result cache is optional here; without Redis every search goes to the registry.
	var trialCache services.TrialCache
	if cfg.Redis.URL != "" {
		redisClient, err := database.NewRedisClient(cfg.Redis.URL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable, trial cache disabled")
		} else if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, trial cache disabled")
		} else {
			trialCache = database.NewCache(redisClient, logger)
		}
	}

	router := actions.NewRouter(
		patients.NewLookup(patientStore, logger),
		services.NewTrialService(registryClient, trialCache, cfg.Cache.TrialTTL, logger),
		actions.Options{TrialCap: cfg.Registry.TrialCap},
		logger,
	)

	lambda.Start(router.Route)
}

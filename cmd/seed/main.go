package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/Ayash-Bera/clinical-trials-sorter/internal/config"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/patients"
	"github.com/Ayash-Bera/clinical-trials-sorter/internal/seeder"
	"github.com/Ayash-Bera/clinical-trials-sorter/pkg/utils"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	file    = flag.String("file", "patientdata.json", "Patient dataset to upload")
	dryRun  = flag.Bool("dry-run", false, "Validate the dataset without uploading")
	verbose = flag.Bool("verbose", false, "Enable verbose logging")
	timeout = flag.Duration("timeout", 2*time.Minute, "Upload timeout")
)

func main() {
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	logger.Info("Starting patient dataset seeder...")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var store seeder.Saver
	if !*dryRun {
		if err := cfg.ValidateStorage(); err != nil {
			logger.WithError(err).Fatal("Storage configuration validation failed")
		}

		s3Client, err := patients.NewS3Client(ctx, cfg.Storage.Region, cfg.Storage.Endpoint)
		if err != nil {
			logger.WithError(err).Fatal("Failed to initialize S3 client")
		}
		s3Store := patients.NewS3Store(s3Client, cfg.Storage.Bucket, cfg.Storage.PatientKey, logger)
		logger.WithFields(logrus.Fields{
			"bucket": s3Store.Bucket(),
			"key":    s3Store.Key(),
		}).Info("Uploading patient dataset")
		store = s3Store
	}

	count, err := seeder.NewPatientSeeder(store, logger).Seed(ctx, *file, *dryRun)
	if err != nil {
		logger.WithError(err).Fatal("Patient seeding failed")
	}

	logger.WithFields(logrus.Fields{
		"records": count,
		"dry_run": *dryRun,
	}).Info("Patient seeding completed successfully!")
}

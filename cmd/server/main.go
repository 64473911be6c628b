package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/aristath/quantfolio/internal/clientdata"
	"github.com/aristath/quantfolio/internal/clients/alphavantage"
	"github.com/aristath/quantfolio/internal/clients/brapi"
	"github.com/aristath/quantfolio/internal/clients/yahoo"
	"github.com/aristath/quantfolio/internal/config"
	"github.com/aristath/quantfolio/internal/database"
	"github.com/aristath/quantfolio/internal/modules/marketdata"
	"github.com/aristath/quantfolio/internal/modules/optimization"
	"github.com/aristath/quantfolio/internal/modules/optimization/handlers"
	"github.com/aristath/quantfolio/internal/reliability"
	"github.com/aristath/quantfolio/internal/scheduler"
	"github.com/aristath/quantfolio/internal/server"
	"github.com/aristath/quantfolio/pkg/logger"
)

// runRetention is how long finished optimization runs are kept.
const runRetention = 90 * 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not up yet
		println("failed to load configuration:", err.Error())
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("data_dir", cfg.DataDir).Msg("Starting quantfolio")

	// Databases
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "client_data.db"),
		Profile: database.ProfileCache,
		Name:    "client_data",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open client data database")
	}
	defer clientDataDB.Close()

	resultsDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "results.db"),
		Profile: database.ProfileStandard,
		Name:    "results",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open results database")
	}
	defer resultsDB.Close()

	for _, db := range []*database.DB{clientDataDB, resultsDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to run migrations")
		}
	}

	// Market data providers share the response cache
	cacheRepo := clientdata.NewRepository(clientDataDB.Conn())

	yahooClient := yahoo.NewClient(cacheRepo, log)
	brapiClient := brapi.NewClient(cacheRepo, log)

	var alphaFetcher marketdata.HistoryFetcher
	if cfg.AlphaVantageKey != "" {
		alphaFetcher = alphavantage.NewClient(cfg.AlphaVantageKey, cacheRepo, log)
	}

	marketData := marketdata.NewService(yahooClient, brapiClient, alphaFetcher, log)

	// Optimization pipeline
	runRepo := optimization.NewRunRepository(resultsDB.Conn(), log)
	optimizationService := optimization.NewService(
		marketData,
		runRepo,
		cfg.Tickers,
		cfg.DataSource,
		cfg.Period,
		log,
	)
	optimizationHandler := handlers.NewHandler(optimizationService, cfg.RunParams(), log)

	// Background jobs
	sched := scheduler.New(log)

	cleanupJob := clientdata.NewCleanupJob(cacheRepo, log)
	if err := sched.AddJob("0 0 3 * * *", cleanupJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register cache cleanup job")
	}

	retentionJob := optimization.NewRetentionJob(runRepo, runRetention, log)
	if err := sched.AddJob("0 30 3 * * *", retentionJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register run retention job")
	}

	if cfg.Backup.Enabled() {
		s3Client, err := reliability.NewS3Client(
			cfg.Backup.Endpoint,
			cfg.Backup.Region,
			cfg.Backup.AccessKey,
			cfg.Backup.SecretKey,
			cfg.Backup.Bucket,
			log,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}

		backupService := reliability.NewBackupService(
			s3Client,
			[]*database.DB{clientDataDB, resultsDB},
			cfg.DataDir,
			log,
		)
		backupJob := reliability.NewBackupJob(backupService, cfg.Backup.RetentionDays, log)
		if err := sched.AddJob("0 0 4 * * *", backupJob); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Off-site backups disabled")
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server
	srv := server.New(server.Config{
		Port:                cfg.Port,
		Log:                 log,
		DataDir:             cfg.DataDir,
		ClientDataDB:        clientDataDB,
		ResultsDB:           resultsDB,
		OptimizationHandler: optimizationHandler,
		DevMode:             cfg.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// Package main is the entry point for the trade journal analytics
// service. It serves the analytics pipeline over an externally
// ingested, append-only execution event log: fill grouping, orphan
// recovery, per-trade features, and pattern mining, all over HTTP.
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

	"github.com/aristath/journal/internal/config"
	"github.com/aristath/journal/internal/database"
	"github.com/aristath/journal/internal/reliability"
	"github.com/aristath/journal/internal/server"
	"github.com/aristath/journal/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting journal")

	// Two-database layout: events.db is the immutable execution log,
	// journal.db holds everything derived from it.
	eventsDB, err := database.New(database.Config{
		Name:    "events",
		Path:    filepath.Join(cfg.DataDir, "events.db"),
		Profile: database.ProfileLedger,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open events database")
	}
	defer eventsDB.Close()

	journalDB, err := database.New(database.Config{
		Name:    "journal",
		Path:    filepath.Join(cfg.DataDir, "journal.db"),
		Profile: database.ProfileStandard,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open journal database")
	}
	defer journalDB.Close()

	for _, db := range []*database.DB{eventsDB, journalDB} {
		if err := db.Migrate(); err != nil {
			log.Fatal().Err(err).Str("database", db.Name()).Msg("Failed to migrate database")
		}
	}

	databases := map[string]*database.DB{
		"events":  eventsDB,
		"journal": journalDB,
	}

	// Off-site backups are optional; without a bucket the service runs
	// with local storage only.
	var backupService *reliability.BackupService
	if cfg.BackupBucket != "" {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3Config{
			Bucket:    cfg.BackupBucket,
			Endpoint:  cfg.BackupEndpoint,
			Region:    cfg.BackupRegion,
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create backup client")
		}
		backupService = reliability.NewBackupService(databases, s3Client, cfg.DataDir, log)
		log.Info().Str("bucket", cfg.BackupBucket).Msg("Off-site backups enabled")
	} else {
		log.Warn().Msg("Off-site backups disabled - no bucket configured")
	}

	// The scheduler only runs storage upkeep; the analytics pipeline is
	// strictly request-driven.
	scheduler := reliability.NewScheduler(log)
	if err := scheduler.AddJob(cfg.MaintenanceSpec, reliability.NewWALCheckpointJob(databases, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register WAL checkpoint job")
	}
	if backupService != nil {
		job := reliability.NewNightlyBackupJob(backupService, cfg.BackupRetainDays, log)
		if err := scheduler.AddJob(cfg.NightlyBackupSpec, job); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := server.New(server.Config{
		Log:           log,
		Config:        cfg,
		EventsDB:      eventsDB,
		JournalDB:     journalDB,
		BackupService: backupService,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Journal stopped")
}

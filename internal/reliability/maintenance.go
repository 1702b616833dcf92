package reliability

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/aristath/journal/internal/database"
)

// Job is one scheduled maintenance task
type Job interface {
	Run() error
	Name() string
}

// Scheduler runs storage maintenance jobs on cron schedules. Only
// upkeep tasks belong here (checkpoints, backups); the analytics
// pipeline itself is strictly request-driven.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// NewScheduler creates a maintenance scheduler
func NewScheduler(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Maintenance scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Maintenance scheduler stopped")
}

// AddJob registers a job on a standard 5-field cron schedule
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		}
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// WALCheckpointJob truncates the WAL of every database to keep the
// log files from growing unbounded between backups.
type WALCheckpointJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewWALCheckpointJob creates a WAL checkpoint job
func NewWALCheckpointJob(databases map[string]*database.DB, log zerolog.Logger) *WALCheckpointJob {
	return &WALCheckpointJob{
		databases: databases,
		log:       log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Run executes the checkpoint against every database. A failed
// checkpoint is logged but never aborts the others.
func (j *WALCheckpointJob) Run() error {
	for name, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
			continue
		}
		j.log.Debug().Str("database", name).Msg("WAL checkpoint completed")
	}
	return nil
}

// Name returns the job name for the scheduler
func (j *WALCheckpointJob) Name() string {
	return "wal_checkpoint"
}

// NightlyBackupJob creates and uploads a backup archive, then rotates
// old ones.
type NightlyBackupJob struct {
	backupService *BackupService
	retainDays    int
	log           zerolog.Logger
}

// NewNightlyBackupJob creates a nightly backup job
func NewNightlyBackupJob(backupService *BackupService, retainDays int, log zerolog.Logger) *NightlyBackupJob {
	return &NightlyBackupJob{
		backupService: backupService,
		retainDays:    retainDays,
		log:           log.With().Str("job", "nightly_backup").Logger(),
	}
}

// Run executes the backup and rotation
func (j *NightlyBackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	if err := j.backupService.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.backupService.RotateOldBackups(ctx, j.retainDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

// Name returns the job name for the scheduler
func (j *NightlyBackupJob) Name() string {
	return "nightly_backup"
}

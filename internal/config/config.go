// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	// Off-site backup (S3-compatible endpoint, e.g. Cloudflare R2).
	// Backups are disabled when BackupBucket is empty.
	BackupBucket      string
	BackupEndpoint    string
	BackupRegion      string
	BackupAccessKey   string
	BackupSecretKey   string
	BackupRetainDays  int
	MaintenanceSpec   string // cron spec for WAL checkpoints
	NightlyBackupSpec string // cron spec for the backup job
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Data directory: JOURNAL_DATA_DIR, defaulting to ./data, always absolute
	dataDir := getEnv("JOURNAL_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:           absDataDir,
		Port:              getEnvAsInt("JOURNAL_PORT", 8002),
		DevMode:           getEnvAsBool("DEV_MODE", false),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		BackupBucket:      getEnv("BACKUP_BUCKET", ""),
		BackupEndpoint:    getEnv("BACKUP_ENDPOINT", ""),
		BackupRegion:      getEnv("BACKUP_REGION", "auto"),
		BackupAccessKey:   getEnv("BACKUP_ACCESS_KEY", ""),
		BackupSecretKey:   getEnv("BACKUP_SECRET_KEY", ""),
		BackupRetainDays:  getEnvAsInt("BACKUP_RETAIN_DAYS", 30),
		MaintenanceSpec:   getEnv("MAINTENANCE_CRON", "0 * * * *"),  // hourly
		NightlyBackupSpec: getEnv("BACKUP_CRON", "30 2 * * *"),      // 02:30
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}

	// Backup credentials are only required when a bucket is configured
	if c.BackupBucket != "" {
		if c.BackupAccessKey == "" || c.BackupSecretKey == "" {
			return fmt.Errorf("backup bucket configured but credentials missing")
		}
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

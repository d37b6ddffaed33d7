// Package config handles application configuration loading from environment
// variables, following the IDENTITYCORE_*/POSTGRES_*/REDIS_* prefix
// convention shared across Open Cloud Ops modules.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration values for idcenter.
type Config struct {
	// Port is the HTTP port the API server listens on.
	Port string

	// LogLevel controls the verbosity of log output (debug, info, warn, error).
	LogLevel string

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string

	// RedisURL is the Redis connection address.
	RedisURL string

	// InstanceArn identifies the identity-center instance this process
	// administers. Required for restore/collector calls that need to
	// disambiguate source vs. target instances.
	InstanceArn string

	// BackupStoragePath is the root directory LocalStorage stores backups
	// under; LocalStorage is the only storage backend.
	BackupStoragePath string

	// DefaultRetentionDays seeds a RetentionPolicy's keep_daily bucket when
	// no explicit policy is configured.
	DefaultRetentionDays int

	// OrphanedCacheTTL is the expiry cmd/main.go gives the entries a
	// Resolver writes to its Redis secondary cache. No on-disk cache file is
	// kept.
	OrphanedCacheTTL time.Duration

	// RetentionSweepSchedule is the cron expression the background
	// scheduler uses to invoke retention enforcement.
	RetentionSweepSchedule string

	// MaxConcurrentAccounts is checked by Validate but not passed to the
	// Batch Executor, which takes its concurrency bound from Options.Tuning
	// or the per-input-size tuning table (see executor).
	MaxConcurrentAccounts int

	// BatchSize is checked by Validate (1-50) but not passed to the Batch
	// Executor, which takes its batch size from Options.Tuning or the
	// per-input-size tuning table.
	BatchSize int

	// AllowedOrigins defines the CORS allowed origins for the API.
	AllowedOrigins []string
}

// Load reads configuration from environment variables and returns a Config.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Port = getEnvOrDefault("IDENTITYCORE_PORT", "8083")
	cfg.LogLevel = getEnvOrDefault("IDENTITYCORE_LOG_LEVEL", "info")
	cfg.InstanceArn = os.Getenv("IDENTITYCORE_INSTANCE_ARN")
	cfg.BackupStoragePath = getEnvOrDefault("IDENTITYCORE_BACKUP_STORAGE_PATH", "/var/identitycore/backups")
	cfg.RetentionSweepSchedule = getEnvOrDefault("IDENTITYCORE_RETENTION_SCHEDULE", "0 0 * * *")

	retentionStr := getEnvOrDefault("IDENTITYCORE_DEFAULT_RETENTION_DAYS", "30")
	retentionDays, err := strconv.Atoi(retentionStr)
	if err != nil {
		return nil, fmt.Errorf("config: invalid IDENTITYCORE_DEFAULT_RETENTION_DAYS value %q: %w", retentionStr, err)
	}
	cfg.DefaultRetentionDays = retentionDays

	cacheTTLStr := getEnvOrDefault("IDENTITYCORE_ORPHANED_CACHE_TTL", "1h")
	cacheTTL, err := time.ParseDuration(cacheTTLStr)
	if err != nil {
		return nil, fmt.Errorf("config: invalid IDENTITYCORE_ORPHANED_CACHE_TTL value %q: %w", cacheTTLStr, err)
	}
	cfg.OrphanedCacheTTL = cacheTTL

	concurrentStr := getEnvOrDefault("IDENTITYCORE_MAX_CONCURRENT_ACCOUNTS", "15")
	maxConcurrent, err := strconv.Atoi(concurrentStr)
	if err != nil {
		return nil, fmt.Errorf("config: invalid IDENTITYCORE_MAX_CONCURRENT_ACCOUNTS value %q: %w", concurrentStr, err)
	}
	cfg.MaxConcurrentAccounts = maxConcurrent

	batchSizeStr := getEnvOrDefault("IDENTITYCORE_BATCH_SIZE", "10")
	batchSize, err := strconv.Atoi(batchSizeStr)
	if err != nil {
		return nil, fmt.Errorf("config: invalid IDENTITYCORE_BATCH_SIZE value %q: %w", batchSizeStr, err)
	}
	cfg.BatchSize = batchSize

	// Build PostgreSQL connection URL from individual components.
	pgHost := getEnvOrDefault("POSTGRES_HOST", "localhost")
	pgPort := getEnvOrDefault("POSTGRES_PORT", "5432")
	pgDB := getEnvOrDefault("POSTGRES_DB", "identitycore")
	pgUser := getEnvOrDefault("POSTGRES_USER", "identitycore")
	pgPassword := os.Getenv("POSTGRES_PASSWORD")
	pgSSLMode := getEnvOrDefault("POSTGRES_SSLMODE", "require")

	// Use url.UserPassword to properly percent-encode credentials that may
	// contain reserved URI characters (@, :, /, etc.).
	dsn := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%s", pgHost, pgPort),
		Path:     pgDB,
		RawQuery: fmt.Sprintf("sslmode=%s", pgSSLMode),
	}
	if pgPassword == "" {
		dsn.User = url.User(pgUser)
	} else {
		dsn.User = url.UserPassword(pgUser, pgPassword)
	}
	cfg.DatabaseURL = dsn.String()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.DatabaseURL = dbURL
	}

	// Build Redis URL.
	redisHost := getEnvOrDefault("REDIS_HOST", "localhost")
	redisPort := getEnvOrDefault("REDIS_PORT", "6379")
	cfg.RedisURL = fmt.Sprintf("%s:%s", redisHost, redisPort)

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		cfg.RedisURL = redisURL
	}

	// CORS allowed origins.
	originsStr := getEnvOrDefault("IDENTITYCORE_ALLOWED_ORIGINS", "http://localhost:3000")
	cfg.AllowedOrigins = strings.Split(originsStr, ",")
	for i, origin := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set and valid.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("config: IDENTITYCORE_PORT is required")
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: database URL could not be constructed")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("config: Redis URL could not be constructed")
	}
	if c.BackupStoragePath == "" {
		return fmt.Errorf("config: IDENTITYCORE_BACKUP_STORAGE_PATH is required")
	}
	if c.DefaultRetentionDays <= 0 {
		return fmt.Errorf("config: IDENTITYCORE_DEFAULT_RETENTION_DAYS must be positive")
	}
	if c.MaxConcurrentAccounts <= 0 {
		return fmt.Errorf("config: IDENTITYCORE_MAX_CONCURRENT_ACCOUNTS must be positive")
	}
	if c.BatchSize <= 0 || c.BatchSize > 50 {
		return fmt.Errorf("config: IDENTITYCORE_BATCH_SIZE must be between 1 and 50")
	}
	return nil
}

// getEnvOrDefault returns the value of the environment variable named by key,
// or the defaultValue if the variable is not set or empty.
func getEnvOrDefault(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

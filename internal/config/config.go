// Package config loads gymdash settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dukerupert/gymdash/internal/backup"
	"github.com/dukerupert/gymdash/internal/subscription"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr string `mapstructure:"GYMDASH_ADDR"`
	// DBPath is the SQLite database file.
	DBPath string `mapstructure:"GYMDASH_DB_PATH"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"GYMDASH_LOG_LEVEL"`
	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"GYMDASH_LOG_FORMAT"`
	// Timezone names the location whose calendar days decide subscription status.
	Timezone string `mapstructure:"GYMDASH_TIMEZONE"`
	// ExpiryMode is "exact" or "calendar_day".
	ExpiryMode string `mapstructure:"GYMDASH_EXPIRY_MODE"`
	// StaffTokenHash is the bcrypt hash of the token required on write routes.
	// Empty leaves write routes open.
	StaffTokenHash string `mapstructure:"GYMDASH_STAFF_TOKEN_HASH"`
	// MetricsEnabled exposes /metrics.
	MetricsEnabled bool `mapstructure:"GYMDASH_METRICS_ENABLED"`
	// WSOrigins lists extra origins allowed to open the change feed.
	WSOrigins []string `mapstructure:"GYMDASH_WS_ORIGINS"`
	// WriteRateLimit is the number of write requests allowed per client per minute.
	WriteRateLimit int `mapstructure:"GYMDASH_WRITE_RATE_LIMIT"`
	// TrustProxy keys the write rate limit on X-Forwarded-For and
	// CF-Connecting-IP. Enable it only behind a proxy that sets them.
	TrustProxy bool `mapstructure:"GYMDASH_TRUST_PROXY"`

	BackupS3Endpoint  string `mapstructure:"GYMDASH_BACKUP_S3_ENDPOINT"`
	BackupS3Bucket    string `mapstructure:"GYMDASH_BACKUP_S3_BUCKET"`
	BackupS3Region    string `mapstructure:"GYMDASH_BACKUP_S3_REGION"`
	BackupS3AccessKey string `mapstructure:"GYMDASH_BACKUP_S3_ACCESS_KEY"`
	BackupS3SecretKey string `mapstructure:"GYMDASH_BACKUP_S3_SECRET_KEY"`
	BackupS3Prefix    string `mapstructure:"GYMDASH_BACKUP_S3_PREFIX"`
	// BackupPassphrase encrypts snapshots. Backups stay off without it.
	BackupPassphrase    string        `mapstructure:"GYMDASH_BACKUP_PASSPHRASE"`
	BackupInterval      time.Duration `mapstructure:"GYMDASH_BACKUP_INTERVAL"`
	BackupRetentionDays int           `mapstructure:"GYMDASH_BACKUP_RETENTION_DAYS"`
}

// Load reads envFile (if present) into the process environment, then builds
// and validates Config via Viper. Real environment variables win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := gotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: read %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("GYMDASH_ADDR", ":8080")
	v.SetDefault("GYMDASH_DB_PATH", "gymdash.db")
	v.SetDefault("GYMDASH_LOG_LEVEL", "info")
	v.SetDefault("GYMDASH_LOG_FORMAT", "text")
	v.SetDefault("GYMDASH_TIMEZONE", "Local")
	v.SetDefault("GYMDASH_EXPIRY_MODE", string(subscription.ModeExact))
	v.SetDefault("GYMDASH_STAFF_TOKEN_HASH", "")
	v.SetDefault("GYMDASH_METRICS_ENABLED", true)
	v.SetDefault("GYMDASH_WS_ORIGINS", []string{})
	v.SetDefault("GYMDASH_WRITE_RATE_LIMIT", 60)
	v.SetDefault("GYMDASH_TRUST_PROXY", false)
	v.SetDefault("GYMDASH_BACKUP_S3_ENDPOINT", "")
	v.SetDefault("GYMDASH_BACKUP_S3_BUCKET", "")
	v.SetDefault("GYMDASH_BACKUP_S3_REGION", "us-east-1")
	v.SetDefault("GYMDASH_BACKUP_S3_ACCESS_KEY", "")
	v.SetDefault("GYMDASH_BACKUP_S3_SECRET_KEY", "")
	v.SetDefault("GYMDASH_BACKUP_S3_PREFIX", "gymdash/")
	v.SetDefault("GYMDASH_BACKUP_PASSPHRASE", "")
	v.SetDefault("GYMDASH_BACKUP_INTERVAL", "24h")
	v.SetDefault("GYMDASH_BACKUP_RETENTION_DAYS", 30)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.Addr == "" {
		return nil, errors.New("config: GYMDASH_ADDR must be set")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("config: GYMDASH_DB_PATH must be set")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, err
	}
	if _, err := cfg.Mode(); err != nil {
		return nil, fmt.Errorf("config: GYMDASH_EXPIRY_MODE: %w", err)
	}
	if cfg.WriteRateLimit <= 0 {
		return nil, errors.New("config: GYMDASH_WRITE_RATE_LIMIT must be positive")
	}
	if err := cfg.validateBackup(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: GYMDASH_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c *Config) Mode() (subscription.Mode, error) {
	return subscription.ParseMode(c.ExpiryMode)
}

// Clock returns a function reporting the current time in the configured location.
func (c *Config) Clock() (func() time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}
	return func() time.Time { return time.Now().In(loc) }, nil
}

func (c *Config) validateBackup() error {
	set := 0
	for _, v := range []string{c.BackupS3Bucket, c.BackupS3AccessKey, c.BackupS3SecretKey} {
		if v != "" {
			set++
		}
	}
	if set == 0 {
		return nil
	}
	if set != 3 {
		return errors.New("config: GYMDASH_BACKUP_S3_BUCKET, _ACCESS_KEY and _SECRET_KEY must be set together")
	}
	if c.BackupPassphrase == "" {
		return errors.New("config: GYMDASH_BACKUP_PASSPHRASE is required when backups are configured")
	}
	if c.BackupInterval <= 0 {
		return errors.New("config: GYMDASH_BACKUP_INTERVAL must be positive")
	}
	if c.BackupRetentionDays <= 0 {
		return errors.New("config: GYMDASH_BACKUP_RETENTION_DAYS must be positive")
	}
	return nil
}

// Backup returns the snapshot settings.
func (c *Config) Backup() backup.Config {
	return backup.Config{
		S3: backup.S3Config{
			Endpoint:  c.BackupS3Endpoint,
			Bucket:    c.BackupS3Bucket,
			Region:    c.BackupS3Region,
			AccessKey: c.BackupS3AccessKey,
			SecretKey: c.BackupS3SecretKey,
			Prefix:    c.BackupS3Prefix,
		},
		Passphrase:    c.BackupPassphrase,
		Interval:      c.BackupInterval,
		RetentionDays: c.BackupRetentionDays,
	}
}

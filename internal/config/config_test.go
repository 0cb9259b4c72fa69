package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukerupert/gymdash/internal/subscription"
)

var configKeys = []string{
	"GYMDASH_ADDR", "GYMDASH_DB_PATH", "GYMDASH_LOG_LEVEL", "GYMDASH_LOG_FORMAT",
	"GYMDASH_TIMEZONE", "GYMDASH_EXPIRY_MODE", "GYMDASH_STAFF_TOKEN_HASH",
	"GYMDASH_METRICS_ENABLED", "GYMDASH_WS_ORIGINS", "GYMDASH_WRITE_RATE_LIMIT", "GYMDASH_TRUST_PROXY",
	"GYMDASH_BACKUP_S3_ENDPOINT", "GYMDASH_BACKUP_S3_BUCKET", "GYMDASH_BACKUP_S3_REGION",
	"GYMDASH_BACKUP_S3_ACCESS_KEY", "GYMDASH_BACKUP_S3_SECRET_KEY", "GYMDASH_BACKUP_S3_PREFIX",
	"GYMDASH_BACKUP_PASSPHRASE", "GYMDASH_BACKUP_INTERVAL", "GYMDASH_BACKUP_RETENTION_DAYS",
}

// clearEnv unsets every config key for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.DBPath != "gymdash.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "gymdash.db")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Timezone != "Local" {
		t.Errorf("Timezone = %q, want Local", cfg.Timezone)
	}
	if !cfg.MetricsEnabled {
		t.Error("MetricsEnabled should default to true")
	}
	if cfg.StaffTokenHash != "" {
		t.Errorf("StaffTokenHash = %q, want empty", cfg.StaffTokenHash)
	}
	if cfg.WriteRateLimit != 60 {
		t.Errorf("WriteRateLimit = %d, want 60", cfg.WriteRateLimit)
	}
	if cfg.TrustProxy {
		t.Error("TrustProxy should default to false")
	}
	mode, err := cfg.Mode()
	if err != nil || mode != subscription.ModeExact {
		t.Errorf("Mode = %q, %v", mode, err)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	clearEnv(t)
	t.Setenv("GYMDASH_ADDR", ":9090")
	t.Setenv("GYMDASH_TIMEZONE", "Europe/Berlin")
	t.Setenv("GYMDASH_EXPIRY_MODE", "calendar_day")
	t.Setenv("GYMDASH_METRICS_ENABLED", "false")
	t.Setenv("GYMDASH_WS_ORIGINS", "dash.example.com,*.gym.local")
	t.Setenv("GYMDASH_WRITE_RATE_LIMIT", "10")
	t.Setenv("GYMDASH_TRUST_PROXY", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	loc, err := cfg.Location()
	if err != nil || loc.String() != "Europe/Berlin" {
		t.Errorf("Location = %v, %v", loc, err)
	}
	if mode, _ := cfg.Mode(); mode != subscription.ModeCalendarDay {
		t.Errorf("Mode = %q, want calendar_day", mode)
	}
	if cfg.MetricsEnabled {
		t.Error("MetricsEnabled should be false")
	}
	if len(cfg.WSOrigins) != 2 || cfg.WSOrigins[1] != "*.gym.local" {
		t.Errorf("WSOrigins = %v", cfg.WSOrigins)
	}
	if cfg.WriteRateLimit != 10 {
		t.Errorf("WriteRateLimit = %d, want 10", cfg.WriteRateLimit)
	}
	if !cfg.TrustProxy {
		t.Error("TrustProxy should be true")
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GYMDASH_DB_PATH=/tmp/from-file.db\nGYMDASH_ADDR=:7000\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("GYMDASH_ADDR", ":7100")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBPath != "/tmp/from-file.db" {
		t.Errorf("DBPath = %q, want value from file", cfg.DBPath)
	}
	if cfg.Addr != ":7100" {
		t.Errorf("Addr = %q, real env should win over the file", cfg.Addr)
	}
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string][2]string{
		"bad timezone":   {"GYMDASH_TIMEZONE", "Mars/Olympus_Mons"},
		"bad mode":       {"GYMDASH_EXPIRY_MODE", "hourly"},
		"bad rate limit": {"GYMDASH_WRITE_RATE_LIMIT", "0"},
	}
	for name, kv := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestLoad_Backup(t *testing.T) {
	clearEnv(t)
	t.Setenv("GYMDASH_BACKUP_S3_ENDPOINT", "https://s3.example.com")
	t.Setenv("GYMDASH_BACKUP_S3_BUCKET", "gym-backups")
	t.Setenv("GYMDASH_BACKUP_S3_ACCESS_KEY", "AKIA")
	t.Setenv("GYMDASH_BACKUP_S3_SECRET_KEY", "shh")
	t.Setenv("GYMDASH_BACKUP_PASSPHRASE", "correct horse")
	t.Setenv("GYMDASH_BACKUP_INTERVAL", "6h")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b := cfg.Backup()
	if b.S3.Bucket != "gym-backups" || b.S3.Endpoint != "https://s3.example.com" {
		t.Errorf("S3 = %+v", b.S3)
	}
	if b.S3.Region != "us-east-1" || b.S3.Prefix != "gymdash/" {
		t.Errorf("defaults = %q / %q", b.S3.Region, b.S3.Prefix)
	}
	if b.Interval != 6*time.Hour {
		t.Errorf("Interval = %v, want 6h", b.Interval)
	}
	if b.RetentionDays != 30 {
		t.Errorf("RetentionDays = %d, want 30", b.RetentionDays)
	}
}

func TestLoad_BackupInvalid(t *testing.T) {
	tests := map[string]map[string]string{
		"partial credentials": {
			"GYMDASH_BACKUP_S3_BUCKET": "gym-backups",
		},
		"missing passphrase": {
			"GYMDASH_BACKUP_S3_BUCKET":     "gym-backups",
			"GYMDASH_BACKUP_S3_ACCESS_KEY": "AKIA",
			"GYMDASH_BACKUP_S3_SECRET_KEY": "shh",
		},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(""); err == nil {
				t.Error("expected error")
			}
		})
	}
}

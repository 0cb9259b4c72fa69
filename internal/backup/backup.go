// Package backup takes encrypted snapshots of the member database and keeps
// them in S3-compatible storage.
package backup

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	_ "modernc.org/sqlite"
)

const keyTimeFormat = "20060102T150405Z"

// ErrDisabled is returned when storage or the passphrase is not configured.
var ErrDisabled = errors.New("backup: not configured")

// s3Client is the subset of *s3.Client the manager uses.
type s3Client interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, input *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, input *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Config holds S3-compatible storage configuration.
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	// Prefix is prepended to every object key, e.g. "gymdash/".
	Prefix string
}

func (c S3Config) complete() bool {
	return c.Bucket != "" && c.AccessKey != "" && c.SecretKey != ""
}

type Config struct {
	S3         S3Config
	Passphrase string
	// Interval between scheduled snapshots.
	Interval time.Duration
	// RetentionDays is how long snapshots are kept.
	RetentionDays int
}

type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateDisabled State = "disabled"
	StateError    State = "error"
)

type Status struct {
	State      State      `json:"state"`
	LastBackup *time.Time `json:"last_backup,omitempty"`
	LastKey    string     `json:"last_key,omitempty"`
	Error      string     `json:"error,omitempty"`
	InProgress bool       `json:"in_progress"`
}

// StatusCallback is called whenever the backup state changes.
type StatusCallback func(Status)

type Manager struct {
	mu       sync.RWMutex
	cfg      Config
	status   Status
	callback StatusCallback
	db       *sql.DB
	client   s3Client
	now      func() time.Time
	logger   *slog.Logger

	// run serializes snapshots.
	run sync.Mutex

	cancel context.CancelFunc
	done   chan struct{}
}

func NewManager(cfg Config, db *sql.DB, callback StatusCallback, logger *slog.Logger) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 30
	}

	m := &Manager{
		cfg:      cfg,
		db:       db,
		callback: callback,
		now:      time.Now,
		logger:   logger,
		status:   Status{State: StateDisabled},
	}

	if cfg.S3.complete() && cfg.Passphrase != "" {
		m.client = newS3Client(cfg.S3)
		m.status.State = StateIdle
	}
	return m
}

func newS3Client(cfg S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		Credentials:  credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		UsePathStyle: true,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts)
}

// Enabled reports whether snapshots can be taken.
func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.client != nil
}

// Start runs a snapshot and a retention sweep every Interval until ctx is
// done or Stop is called. It does nothing when backups are disabled.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	if m.client == nil || m.done != nil {
		m.mu.Unlock()
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	interval := m.cfg.Interval
	m.mu.Unlock()

	m.logger.Info("scheduled backups enabled", "interval", interval, "retention_days", m.cfg.RetentionDays)

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunNow(ctx); err != nil {
					m.logger.Error("scheduled backup failed", "error", err)
				}
				if _, err := m.Cleanup(ctx); err != nil {
					m.logger.Error("backup cleanup failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the schedule and waits for an in-flight snapshot to finish.
func (m *Manager) Stop() {
	m.mu.RLock()
	cancel := m.cancel
	done := m.done
	m.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

func (m *Manager) setStatus(s Status) {
	m.mu.Lock()
	m.status = s
	m.mu.Unlock()
	if m.callback != nil {
		m.callback(s)
	}
}

// RunNow snapshots the database, encrypts it and uploads it. It returns the
// object key.
func (m *Manager) RunNow(ctx context.Context) (string, error) {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil {
		return "", ErrDisabled
	}

	m.run.Lock()
	defer m.run.Unlock()

	prev := m.Status()

	m.setStatus(Status{State: StateRunning, InProgress: true, LastBackup: prev.LastBackup, LastKey: prev.LastKey})

	fail := func(err error) (string, error) {
		m.setStatus(Status{State: StateError, Error: err.Error(), LastBackup: prev.LastBackup, LastKey: prev.LastKey})
		return "", err
	}

	snapshot, err := m.snapshot(ctx)
	if err != nil {
		return fail(err)
	}

	sealed, err := Encrypt(snapshot, cfg.Passphrase)
	if err != nil {
		return fail(fmt.Errorf("encrypt snapshot: %w", err))
	}

	started := m.now().UTC()
	key := cfg.S3.Prefix + "backup-" + started.Format(keyTimeFormat) + ".db.enc"

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(cfg.S3.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(sealed),
		ContentLength: aws.Int64(int64(len(sealed))),
	})
	if err != nil {
		return fail(fmt.Errorf("upload to s3: %w", err))
	}

	m.logger.Info("backup uploaded", "key", key, "bytes", len(sealed))
	m.setStatus(Status{State: StateIdle, LastBackup: &started, LastKey: key})
	return key, nil
}

// snapshot writes a consistent copy of the database with VACUUM INTO and
// returns its bytes.
func (m *Manager) snapshot(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "gymdash-backup-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "snapshot.db")
	if _, err := m.db.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return nil, fmt.Errorf("vacuum into snapshot: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}

// Cleanup deletes snapshots older than the retention period and returns how
// many were removed. Keys that do not look like snapshots are left alone.
func (m *Manager) Cleanup(ctx context.Context) (int, error) {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil {
		return 0, nil
	}

	cutoff := m.now().UTC().AddDate(0, 0, -cfg.RetentionDays)
	removed := 0

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(cfg.S3.Bucket),
		Prefix: aws.String(cfg.S3.Prefix),
	}
	for {
		out, err := client.ListObjectsV2(ctx, input)
		if err != nil {
			return removed, fmt.Errorf("list backups: %w", err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			taken, ok := snapshotTime(cfg.S3.Prefix, key)
			if !ok || !taken.Before(cutoff) {
				continue
			}
			if _, err := client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(cfg.S3.Bucket),
				Key:    aws.String(key),
			}); err != nil {
				m.logger.Warn("delete old backup", "key", key, "error", err)
				continue
			}
			removed++
		}

		if !aws.ToBool(out.IsTruncated) {
			break
		}
		input.ContinuationToken = out.NextContinuationToken
	}

	if removed > 0 {
		m.logger.Info("old backups removed", "count", removed)
	}
	return removed, nil
}

func snapshotTime(prefix, key string) (time.Time, bool) {
	name, ok := strings.CutPrefix(key, prefix+"backup-")
	if !ok {
		return time.Time{}, false
	}
	name, ok = strings.CutSuffix(name, ".db.enc")
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(keyTimeFormat, name)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Restore downloads the snapshot stored under key, decrypts it, checks its
// integrity and writes it to dstPath. The running database is not touched;
// the operator swaps the file in while the service is stopped.
func (m *Manager) Restore(ctx context.Context, key, dstPath string) error {
	m.mu.RLock()
	client := m.client
	cfg := m.cfg
	m.mu.RUnlock()

	if client == nil {
		return ErrDisabled
	}
	if _, err := os.Stat(dstPath); err == nil {
		return fmt.Errorf("restore: %s already exists", dstPath)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(cfg.S3.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("download from s3: %w", err)
	}
	defer result.Body.Close()

	sealed, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("read backup: %w", err)
	}

	plain, err := Decrypt(sealed, cfg.Passphrase)
	if err != nil {
		return err
	}

	tmp := dstPath + ".partial"
	if err := os.WriteFile(tmp, plain, 0o600); err != nil {
		return fmt.Errorf("write restored db: %w", err)
	}
	defer os.Remove(tmp)

	if err := integrityCheck(ctx, tmp); err != nil {
		return err
	}

	if err := os.Rename(tmp, dstPath); err != nil {
		return fmt.Errorf("move restored db: %w", err)
	}
	m.logger.Info("backup restored", "key", key, "path", dstPath)
	return nil
}

func integrityCheck(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open restored db: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

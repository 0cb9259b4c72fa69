package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/gymdash/internal/backup"
	"github.com/dukerupert/gymdash/internal/config"
	"github.com/dukerupert/gymdash/internal/database"
	"github.com/dukerupert/gymdash/internal/logging"
	"github.com/dukerupert/gymdash/internal/middleware"
	"github.com/dukerupert/gymdash/internal/server"
)

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "hash-token":
			err = hashToken(os.Args[2:])
		case "restore-backup":
			err = restoreBackup(os.Args[2:])
		default:
			err = fmt.Errorf("unknown command %q (want hash-token or restore-backup)", os.Args[1])
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("gymdash exited", "error", err)
		os.Exit(1)
	}
}

// hashToken prints the bcrypt hash to put in GYMDASH_STAFF_TOKEN_HASH.
func hashToken(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: gymdash hash-token <token>")
	}
	hash, err := middleware.HashStaffToken(args[0])
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	fmt.Println(hash)
	return nil
}

// restoreBackup downloads and decrypts a snapshot to a new database file.
func restoreBackup(args []string) error {
	if len(args) != 2 {
		return errors.New("usage: gymdash restore-backup <object-key> <destination.db>")
	}
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	mgr := backup.NewManager(cfg.Backup(), nil, nil, logger)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return mgr.Restore(ctx, args[0], args[1])
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	clock, err := cfg.Clock()
	if err != nil {
		return err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if cfg.StaffTokenHash == "" {
		logger.Warn("GYMDASH_STAFF_TOKEN_HASH is empty, write routes are open")
	}

	srv := server.New(db, server.Options{
		Now:            clock,
		Mode:           mode,
		StaffTokenHash: cfg.StaffTokenHash,
		MetricsEnabled: cfg.MetricsEnabled,
		WSOrigins:      cfg.WSOrigins,
		WriteRateLimit: cfg.WriteRateLimit,
		TrustProxy:     cfg.TrustProxy,
		Backup:         cfg.Backup(),
	}, logger)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backups := srv.BackupManager()
	backups.Start(ctx)
	defer backups.Stop()

	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := srv.RateLimiter().Cleanup(); n > 0 {
					logger.Debug("rate limiter cleanup", "removed", n)
				}
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("gymdash listening", "addr", cfg.Addr, "db", cfg.DBPath, "timezone", cfg.Timezone, "expiry_mode", mode)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

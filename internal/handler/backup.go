package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/gymdash/internal/backup"
)

type BackupService interface {
	RunNow(ctx context.Context) (string, error)
	Status() backup.Status
}

type BackupHandler struct {
	backups BackupService
	logger  *slog.Logger
}

func NewBackupHandler(b BackupService, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{backups: b, logger: logger}
}

func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backups.Status())
}

// Run takes a snapshot immediately.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	key, err := h.backups.RunNow(r.Context())
	if errors.Is(err, backup.ErrDisabled) {
		writeError(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	if err != nil {
		h.logger.Error("manual backup", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to run backup")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dukerupert/gymdash/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Export streams the full roster as a spreadsheet download.
func (h *MemberHandler) Export(w http.ResponseWriter, r *http.Request) {
	members, err := h.store.List()
	if err != nil {
		h.logger.Error("list members for export", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export members")
		return
	}

	now := h.now()
	var buf bytes.Buffer
	if err := export.WriteRoster(&buf, members, now); err != nil {
		h.logger.Error("write roster", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to export members")
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(now)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

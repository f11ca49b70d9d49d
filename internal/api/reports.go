package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/report"
)

// ReportsHandler serves reconciliation reports.
type ReportsHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// Download handles GET /api/cycles/{id}/report.xlsx.
func (h *ReportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	data, err := report.Load(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "report", err)
		return
	}

	var buf bytes.Buffer
	if err := report.Write(&buf, data); err != nil {
		slog.Error("failed to render report", "cycle", data.Cycle.ID, "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to render report")
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(data.Cycle)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("failed to send report", "error", err)
	}
}

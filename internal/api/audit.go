package api

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// AuditHandler serves the audit log.
type AuditHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// maxAuditLimit caps the number of entries per request.
const maxAuditLimit = 1000

// List handles GET /api/audit?cycle_id=&action=&limit=.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.AuditFilter{
		CycleID: q.Get("cycle_id"),
		Action:  model.AuditAction(q.Get("action")),
	}

	if filter.Action != "" && !filter.Action.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid action")
		return
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxAuditLimit {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	entries, err := store.ListAuditEntries(r.Context(), h.DB, filter)
	if err != nil {
		engineError(w, h.Metrics, "audit", err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

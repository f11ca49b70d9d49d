package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// DiscrepanciesHandler handles the discrepancy ledger.
type DiscrepanciesHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

type confirmRequest struct {
	Comment *string `json:"comment" validate:"omitempty,max=1000"`
}

// List handles GET /api/cycles/{id}/discrepancies.
func (h *DiscrepanciesHandler) List(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := store.ListDiscrepancies(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "list_discrepancies", err)
		return
	}
	if discrepancies == nil {
		discrepancies = []model.Discrepancy{}
	}
	jsonResponse(w, http.StatusOK, discrepancies)
}

// Statistics handles GET /api/cycles/{id}/statistics.
func (h *DiscrepanciesHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetStatistics(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "statistics", err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

// Confirm handles POST /api/discrepancies/{id}/confirm. The body is optional.
func (h *DiscrepanciesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if r.ContentLength != 0 && !decodeRequest(w, r, &req) {
		return
	}

	id := r.PathValue("id")
	before, err := store.GetDiscrepancy(r.Context(), h.DB, id)
	if err != nil {
		engineError(w, h.Metrics, "confirm_discrepancy", err)
		return
	}

	confirmed, err := store.ConfirmDiscrepancy(r.Context(), h.DB, id, actor(r), req.Comment)
	if err != nil {
		engineError(w, h.Metrics, "confirm_discrepancy", err)
		return
	}

	h.Metrics.RecordConfirmation(before.Confirmed())
	jsonResponse(w, http.StatusOK, confirmed)
}

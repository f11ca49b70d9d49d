package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// ScansHandler handles barcode scans.
type ScansHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

type scanRequest struct {
	LocationCode string `json:"location_code" validate:"required,max=100"`
	PrimaryKey   string `json:"primary_key" validate:"required,max=100"`
}

// Create handles POST /api/cycles/{id}/scans.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	result, err := store.ClassifyScan(r.Context(), h.DB, r.PathValue("id"), req.LocationCode, req.PrimaryKey, actor(r))
	if err != nil {
		engineError(w, h.Metrics, "scan", err)
		return
	}

	h.Metrics.RecordScan(result.Outcome)
	jsonResponse(w, http.StatusCreated, result)
}

// List handles GET /api/cycles/{id}/scans.
func (h *ScansHandler) List(w http.ResponseWriter, r *http.Request) {
	scans, err := store.ListScans(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "list_scans", err)
		return
	}
	if scans == nil {
		scans = []model.ScannedItem{}
	}
	jsonResponse(w, http.StatusOK, scans)
}

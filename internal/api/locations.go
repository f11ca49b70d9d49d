package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// LocationsHandler handles location completion and verification.
type LocationsHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// List handles GET /api/cycles/{id}/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries, err := store.GetLocationSummaries(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "list_locations", err)
		return
	}
	if summaries == nil {
		summaries = []model.LocationSummary{}
	}
	jsonResponse(w, http.StatusOK, summaries)
}

// Items handles GET /api/cycles/{id}/locations/{code}.
func (h *LocationsHandler) Items(w http.ResponseWriter, r *http.Request) {
	items, err := store.GetLocationItems(r.Context(), h.DB, r.PathValue("id"), r.PathValue("code"))
	if err != nil {
		engineError(w, h.Metrics, "location_items", err)
		return
	}
	if items == nil {
		items = []model.LocationItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Verify handles POST /api/cycles/{id}/locations/{code}/verify.
func (h *LocationsHandler) Verify(w http.ResponseWriter, r *http.Request) {
	confirmation, err := store.ConfirmLocation(r.Context(), h.DB, r.PathValue("id"), r.PathValue("code"), actor(r))
	if err != nil {
		engineError(w, h.Metrics, "verify_location", err)
		return
	}

	h.Metrics.RecordLocationVerified(confirmation.MissingCreated)
	slog.Info("location verified",
		"user", actor(r).Name,
		"location", r.PathValue("code"),
		"missing_created", confirmation.MissingCreated,
	)
	jsonResponse(w, http.StatusOK, confirmation)
}

// Reopen handles DELETE /api/cycles/{id}/locations/{code}/verify.
func (h *LocationsHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	if err := store.ReopenLocation(r.Context(), h.DB, r.PathValue("id"), r.PathValue("code"), actor(r)); err != nil {
		engineError(w, h.Metrics, "reopen_location", err)
		return
	}

	h.Metrics.RecordLocationReopened()
	slog.Info("location reopened", "user", actor(r).Name, "location", r.PathValue("code"))
	w.WriteHeader(http.StatusNoContent)
}

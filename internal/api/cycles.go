package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// CyclesHandler handles inventory cycle endpoints.
type CyclesHandler struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// List handles GET /api/cycles.
func (h *CyclesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	cycles, err := store.ListCycles(r.Context(), h.DB, limit)
	if err != nil {
		engineError(w, h.Metrics, "list_cycles", err)
		return
	}
	if cycles == nil {
		cycles = []model.Cycle{}
	}
	jsonResponse(w, http.StatusOK, cycles)
}

// Create handles POST /api/cycles.
func (h *CyclesHandler) Create(w http.ResponseWriter, r *http.Request) {
	cycle, err := store.CreateCycle(r.Context(), h.DB, actor(r))
	if err != nil {
		engineError(w, h.Metrics, "create_cycle", err)
		return
	}

	h.Metrics.RecordCycleCreated()
	slog.Info("inventory opened", "user", actor(r).Name, "cycle", cycle.ID)
	jsonResponse(w, http.StatusCreated, cycle)
}

// Active handles GET /api/cycles/active.
func (h *CyclesHandler) Active(w http.ResponseWriter, r *http.Request) {
	cycle, err := store.GetActiveCycle(r.Context(), h.DB)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, http.StatusNotFound, "no open inventory")
		return
	}
	if err != nil {
		engineError(w, h.Metrics, "get_active_cycle", err)
		return
	}
	jsonResponse(w, http.StatusOK, cycle)
}

// Get handles GET /api/cycles/{id}.
func (h *CyclesHandler) Get(w http.ResponseWriter, r *http.Request) {
	cycle, err := store.GetCycle(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "get_cycle", err)
		return
	}
	jsonResponse(w, http.StatusOK, cycle)
}

// Readiness handles GET /api/cycles/{id}/readiness.
func (h *CyclesHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	readiness, err := store.GetClosureReadiness(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		engineError(w, h.Metrics, "closure_readiness", err)
		return
	}
	jsonResponse(w, http.StatusOK, readiness)
}

// Close handles POST /api/cycles/{id}/close.
func (h *CyclesHandler) Close(w http.ResponseWriter, r *http.Request) {
	cycle, err := store.CloseCycle(r.Context(), h.DB, r.PathValue("id"), actor(r))
	if errors.Is(err, store.ErrNotReady) {
		h.Metrics.RecordCloseRejected()
	}
	if err != nil {
		engineError(w, h.Metrics, "close_cycle", err)
		return
	}

	h.Metrics.RecordCycleClosed()
	slog.Info("inventory closed", "user", actor(r).Name, "cycle", cycle.ID)
	jsonResponse(w, http.StatusOK, cycle)
}

// Dashboard handles GET /api/dashboard.
func (h *CyclesHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := store.GetDashboardStats(r.Context(), h.DB)
	if err != nil {
		engineError(w, h.Metrics, "dashboard", err)
		return
	}
	jsonResponse(w, http.StatusOK, stats)
}

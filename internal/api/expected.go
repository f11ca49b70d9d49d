package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventura/internal/importer"
	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/model"
	"github.com/erazemk/inventura/internal/store"
)

// ExpectedHandler handles the expected stock of a cycle.
type ExpectedHandler struct {
	DB             *sql.DB
	Metrics        *metrics.Metrics
	Importer       *importer.Reader
	MaxUploadBytes int64
}

type replaceExpectedRequest struct {
	Items []model.ExpectedItem `json:"items" validate:"required,dive"`
}

type importResponse struct {
	Imported int                 `json:"imported"`
	Skipped  int                 `json:"skipped"`
	Errors   []importer.RowError `json:"errors,omitempty"`
}

// List handles GET /api/cycles/{id}/expected.
func (h *ExpectedHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListExpectedItems(r.Context(), h.DB, r.PathValue("id"), r.URL.Query().Get("location"))
	if err != nil {
		engineError(w, h.Metrics, "list_expected", err)
		return
	}
	if items == nil {
		items = []model.ExpectedItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Replace handles PUT /api/cycles/{id}/expected.
func (h *ExpectedHandler) Replace(w http.ResponseWriter, r *http.Request) {
	var req replaceExpectedRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	n, err := store.ReplaceExpectedItems(r.Context(), h.DB, r.PathValue("id"), req.Items, actor(r))
	if err != nil {
		engineError(w, h.Metrics, "replace_expected", err)
		return
	}

	h.Metrics.RecordImport(n, 0)
	slog.Info("expected stock replaced", "user", actor(r).Name, "cycle", r.PathValue("id"), "items", n)
	jsonResponse(w, http.StatusOK, importResponse{Imported: n})
}

// Upload handles POST /api/cycles/{id}/expected/upload with an .xlsx file
// in the "file" form field.
func (h *ExpectedHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "file required")
		return
	}
	defer file.Close()

	result, err := h.Importer.Read(file)
	if errors.Is(err, importer.ErrNoRows) {
		resp := map[string]any{"error": err.Error()}
		if result != nil && len(result.Errors) > 0 {
			resp["errors"] = result.Errors
		}
		jsonResponse(w, http.StatusBadRequest, resp)
		return
	}
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := store.ReplaceExpectedItems(r.Context(), h.DB, r.PathValue("id"), result.Items, actor(r))
	if err != nil {
		engineError(w, h.Metrics, "import_expected", err)
		return
	}

	h.Metrics.RecordImport(n, result.Skipped())
	slog.Info("expected stock imported",
		"user", actor(r).Name,
		"cycle", r.PathValue("id"),
		"sheet", result.Sheet,
		"items", n,
		"skipped", result.Skipped(),
	)
	jsonResponse(w, http.StatusOK, importResponse{
		Imported: n,
		Skipped:  result.Skipped(),
		Errors:   result.Errors,
	})
}

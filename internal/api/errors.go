package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/inventura/internal/metrics"
	"github.com/erazemk/inventura/internal/store"
)

// engineError maps an engine error to its HTTP response. Storage failures
// are logged and reported without detail.
func engineError(w http.ResponseWriter, m *metrics.Metrics, op string, err error) {
	var notReady *store.NotReadyError
	switch {
	case errors.As(err, &notReady):
		m.RecordOperationError(op, "precondition")
		jsonResponse(w, http.StatusConflict, map[string]any{
			"error":   store.ErrNotReady.Error(),
			"reasons": notReady.Reasons,
		})
	case errors.Is(err, store.ErrNotFound):
		m.RecordOperationError(op, "not_found")
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidInput):
		m.RecordOperationError(op, "invalid")
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrDuplicateScan),
		errors.Is(err, store.ErrCycleClosed),
		errors.Is(err, store.ErrOpenCycleExists),
		errors.Is(err, store.ErrAlreadyVerified):
		m.RecordOperationError(op, "precondition")
		jsonError(w, http.StatusConflict, err.Error())
	default:
		m.RecordOperationError(op, "infrastructure")
		slog.Error("operation failed", "op", op, "error", err)
		jsonError(w, http.StatusInternalServerError, "unexpected error")
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gamebrain/shoplens/internal/analytics"
	"github.com/gamebrain/shoplens/internal/table"
)

// writeJSON is a shared helper for all handlers.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps pipeline errors onto HTTP statuses. Data-shape problems
// (missing columns, too few rows, degenerate distributions) are the client's
// data's fault, not the server's, and come back as 422 with the typed detail;
// everything else is a 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		missing    *table.MissingColumnError
		tooFew     *analytics.InsufficientDataError
		degenerate *analytics.DegenerateDistributionError
	)
	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":   "missing columns",
			"columns": missing.Columns,
		})
	case errors.As(err, &tooFew):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "insufficient data",
			"detail": tooFew.Error(),
		})
	case errors.As(err, &degenerate):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "degenerate distribution",
			"column": degenerate.Column,
		})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

package handler

import (
	"net/http"

	"github.com/gamebrain/shoplens/internal/table"
)

// StatusHandler reports service liveness and snapshot freshness.
type StatusHandler struct {
	provider *table.Provider
}

func NewStatusHandler(provider *table.Provider) *StatusHandler {
	return &StatusHandler{provider: provider}
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	snap := h.provider.Current()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no data"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"rows":      snap.Table.Len(),
		"source":    snap.Source,
		"loaded_at": snap.LoadedAt,
	})
}

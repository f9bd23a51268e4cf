package handler

import (
	"io"
	"net/http"

	"github.com/gamebrain/shoplens/internal/metrics"
	"github.com/gamebrain/shoplens/internal/recommend"
)

// maxRecommendBody bounds the uploaded player profile size.
const maxRecommendBody = 1 << 20

// RecommendHandler serves SKU recommendations from uploaded player profiles.
type RecommendHandler struct {
	engine *recommend.Engine
}

func NewRecommendHandler(engine *recommend.Engine) *RecommendHandler {
	return &RecommendHandler{engine: engine}
}

// Recommend reads the player profile from the request body and answers with
// a single-element JSON array holding the recommended SKU. The array shape
// matches what the game client already parses.
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecommendBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	sku, err := h.engine.Recommend(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	metrics.RecommendationsTotal.WithLabelValues(sku).Inc()
	writeJSON(w, http.StatusOK, []string{sku})
}

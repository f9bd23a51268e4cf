package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/gamebrain/shoplens/internal/analytics"
	"github.com/gamebrain/shoplens/internal/config"
	"github.com/gamebrain/shoplens/internal/metrics"
	"github.com/gamebrain/shoplens/internal/questions"
	"github.com/gamebrain/shoplens/internal/table"
	"github.com/gamebrain/shoplens/pkg/insight"
)

// QuestionHandler serves the analytics question catalog.
type QuestionHandler struct {
	provider *table.Provider
	gate     *insight.Gate
	defaults config.AnalyticsConfig
}

func NewQuestionHandler(provider *table.Provider, gate *insight.Gate, defaults config.AnalyticsConfig) *QuestionHandler {
	return &QuestionHandler{provider: provider, gate: gate, defaults: defaults}
}

// List returns the catalog without results.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, questions.Catalog())
}

// questionResponse is the envelope around a computed result.
type questionResponse struct {
	ID       string    `json:"id"`
	Slug     string    `json:"slug"`
	Title    string    `json:"title"`
	Result   any       `json:"result"`
	Insight  string    `json:"insight,omitempty"`
	LoadedAt time.Time `json:"snapshot_loaded_at"`
}

// Get computes one question over the current snapshot.
func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, ok := questions.Find(id)
	if !ok {
		metrics.QuestionRequests.WithLabelValues(id, "client_error").Inc()
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown question " + id})
		return
	}

	params, err := h.parseParams(r)
	if err != nil {
		metrics.QuestionRequests.WithLabelValues(id, "client_error").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	snap := h.provider.Current()
	if snap == nil {
		metrics.QuestionRequests.WithLabelValues(id, "error").Inc()
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no data loaded"})
		return
	}

	start := time.Now()
	result, err := q.Run(snap.Table, params)
	metrics.QuestionDuration.WithLabelValues(id).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuestionRequests.WithLabelValues(id, "error").Inc()
		writeError(w, err)
		return
	}
	metrics.QuestionRequests.WithLabelValues(id, "ok").Inc()

	resp := questionResponse{
		ID:       q.ID,
		Slug:     q.Slug,
		Title:    q.Title,
		Result:   result,
		LoadedAt: snap.LoadedAt,
	}
	if r.URL.Query().Get("insight") == "true" && h.gate.Enabled() {
		resp.Insight = h.summarize(r, q.Title, result)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *QuestionHandler) summarize(r *http.Request, title string, result any) string {
	encoded, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	start := time.Now()
	summary, err := h.gate.Summarize(r.Context(), title, encoded)
	metrics.InsightLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.InsightRequests.WithLabelValues("error").Inc()
		slog.Warn("insight summarization failed", "question", title, "error", err)
		return ""
	}
	metrics.InsightRequests.WithLabelValues("ok").Inc()
	return summary
}

// parseParams reads the tuning knobs from the query string. Out-of-range
// values are clamped by each question; only unparseable values are rejected.
func (h *QuestionHandler) parseParams(r *http.Request) (questions.Params, error) {
	params := questions.Params{
		K:      h.defaults.ClusterK,
		Seed:   h.defaults.ClusterSeed,
		Method: analytics.OutlierMethod(h.defaults.OutlierMethod),
	}
	q := r.URL.Query()

	intKnobs := map[string]*int{
		"top_n": &params.TopN,
		"k":     &params.K,
	}
	for name, dst := range intKnobs {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return params, fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = n
		}
	}

	floatKnobs := map[string]*float64{
		"percentile_lo": &params.Lo,
		"percentile_hi": &params.Hi,
	}
	for name, dst := range floatKnobs {
		if v := q.Get(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return params, fmt.Errorf("invalid %s %q", name, v)
			}
			*dst = f
		}
	}

	if v := q.Get("seed"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return params, fmt.Errorf("invalid seed %q", v)
		}
		params.Seed = s
	}
	if v := q.Get("outlier_method"); v != "" {
		switch analytics.OutlierMethod(v) {
		case analytics.MethodPercentile, analytics.MethodIQR:
			params.Method = analytics.OutlierMethod(v)
		default:
			return params, fmt.Errorf("invalid outlier_method %q", v)
		}
	}
	params.Metric = q.Get("metric")
	params.SegmentBy = q.Get("segment_by")

	return params, nil
}

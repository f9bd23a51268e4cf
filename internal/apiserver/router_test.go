package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gamebrain/shoplens/internal/config"
	"github.com/gamebrain/shoplens/internal/table"
	"github.com/gamebrain/shoplens/pkg/insight"
)

func testRouter(t *testing.T, snap *table.Snapshot) http.Handler {
	t.Helper()
	cfg := config.DefaultConfig()
	gate := insight.NewGate(insight.Config{Enabled: false})
	return NewRouter(cfg, table.NewProvider(snap), gate)
}

func testSnapshot(t *testing.T) *table.Snapshot {
	t.Helper()
	tbl, err := table.New(
		table.StringColumn(table.ColCountry, []string{"US", "US", "DE"}, nil),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &table.Snapshot{
		Table:    tbl,
		Source:   "test.csv",
		LoadedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		RowsRead: 3,
	}
}

func TestListQuestions(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got []map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got) != 14 {
		t.Errorf("len(questions) = %d, want 14", len(got))
	}
}

func TestGetQuestion(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions/q4", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got["id"] != "q4" {
		t.Errorf("id = %v, want q4", got["id"])
	}
	if got["result"] == nil {
		t.Error("result missing from response")
	}
	if _, ok := got["insight"]; ok {
		t.Error("insight present despite disabled gate")
	}
}

func TestGetQuestionUnknown(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions/q99", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetQuestionBadParam(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	for _, url := range []string{
		"/api/v1/questions/q4?top_n=abc",
		"/api/v1/questions/q4?percentile_lo=x",
		"/api/v1/questions/q11?seed=1.5",
		"/api/v1/questions/q8?outlier_method=magic",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", url, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestGetQuestionMissingColumns(t *testing.T) {
	// The fixture only carries the country column, so q1 cannot run.
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions/q1", nil))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestGetQuestionNoData(t *testing.T) {
	router := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/questions/q4", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestRecommend(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	payload := `{"IAPRecords":{"IAPRecordBook":{"Records":[
		{"SkuId":"com.gamebrain.hexasort.megahexpack"},
		{"SkuId":"com.gamebrain.hexasort.megahexpack"},
		{"SkuId":"com.gamebrain.hexasort.tinyhexpack"}]}}}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(payload)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var got []string
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if len(got) != 1 || got[0] != "com.gamebrain.hexasort.megahexpack" {
		t.Errorf("recommendation = %v, want [com.gamebrain.hexasort.megahexpack]", got)
	}
}

func TestRecommendInvalidJSON(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealth(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got["status"] != "ok" {
		t.Errorf("status field = %v, want ok", got["status"])
	}
	if got["rows"] != float64(3) {
		t.Errorf("rows = %v, want 3", got["rows"])
	}
}

func TestHealthNoData(t *testing.T) {
	router := testRouter(t, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	router := testRouter(t, testSnapshot(t))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

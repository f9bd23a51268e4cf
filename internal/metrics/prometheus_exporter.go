// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Table metrics
	TableRows = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoplens",
		Name:      "table_rows",
		Help:      "Rows in the current record table snapshot",
	})

	TableUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoplens",
		Name:      "table_users",
		Help:      "Distinct users in the current record table snapshot",
	})

	TableLoadTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "shoplens",
		Name:      "table_load_timestamp",
		Help:      "Unix timestamp of the last successful table load",
	})

	RowsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplens",
		Name:      "rows_dropped_total",
		Help:      "Rows dropped during load",
	}, []string{"reason"}) // "coercion", "null_level"

	TableRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplens",
		Name:      "table_refresh_total",
		Help:      "Table refresh attempts",
	}, []string{"result"}) // "ok", "error"

	// Question metrics
	QuestionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplens",
		Name:      "question_requests_total",
		Help:      "Question computations served",
	}, []string{"question", "status"}) // status: "ok", "client_error", "error"

	QuestionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "shoplens",
		Name:      "question_duration_seconds",
		Help:      "Question computation latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"question"})

	// Recommendation metrics
	RecommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplens",
		Name:      "recommendations_total",
		Help:      "SKU recommendations served",
	}, []string{"sku"})

	// Insight gate metrics
	InsightRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shoplens",
		Name:      "insight_requests_total",
		Help:      "Insight gate summarization attempts",
	}, []string{"result"}) // "ok", "error", "disabled"

	InsightLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "shoplens",
		Name:      "insight_latency_seconds",
		Help:      "Insight gate summarization latency",
		Buckets:   prometheus.DefBuckets,
	})
)

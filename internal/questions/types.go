// Package questions implements the dashboard's analytics catalog: fourteen
// parameterized questions computed on demand over the in-memory record table
// by the shared aggregation pipeline.
package questions

import (
	"github.com/gamebrain/shoplens/internal/analytics"
	"github.com/gamebrain/shoplens/internal/table"
)

// Params are the per-request tuning knobs. Zero values mean "use the
// question's default"; out-of-range values are clamped to the question's
// bounds, never rejected.
type Params struct {
	TopN      int
	Metric    string // q1: "percent" or "count"
	K         int
	Seed      int64
	Lo, Hi    float64 // percentile thresholds, fractions in [0,1]
	Method    analytics.OutlierMethod
	SegmentBy string // q9: "product" or "level"
}

// Question is one catalog entry. Run computes the result over a snapshot
// table; results are plain structs ready for JSON encoding.
type Question struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Run      func(t *table.Table, p Params) (any, error) `json:"-"`
}

// Catalog returns the questions in display order.
func Catalog() []Question {
	return catalog
}

// Find looks a question up by ID.
func Find(id string) (Question, bool) {
	for _, q := range catalog {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

var catalog = []Question{
	{ID: "q1", Slug: "purchase-levels", Title: "At which levels do players purchase?", Category: "purchase", Run: runPurchaseLevels},
	{ID: "q2", Slug: "time-to-first-purchase", Title: "How long until the first purchase?", Category: "purchase", Run: runTimeToFirstPurchase},
	{ID: "q3", Slug: "top-products", Title: "Which products sell and earn the most?", Category: "purchase", Run: runTopProducts},
	{ID: "q4", Slug: "top-countries", Title: "Where do purchases come from?", Category: "purchase", Run: runTopCountries},
	{ID: "q5", Slug: "repeat-purchase-buckets", Title: "How often do buyers come back?", Category: "purchase", Run: runRepeatPurchaseBuckets},
	{ID: "q6", Slug: "purchase-sequence", Title: "How does price mix shift across the purchase sequence?", Category: "purchase", Run: runPurchaseSequence},
	{ID: "q7", Slug: "user-type-frequency", Title: "How do casual, midcore and hardcore players spend?", Category: "lifecycle", Run: runUserTypeFrequency},
	{ID: "q8", Slug: "lifecycle-value-bands", Title: "Where in the lifecycle do high-value purchases happen?", Category: "lifecycle", Run: runLifecycleValueBands},
	{ID: "q9", Slug: "ltv-by-first-purchase", Title: "What does the first purchase say about lifetime value?", Category: "lifecycle", Run: runLTVByFirstPurchase},
	{ID: "q10", Slug: "session-vs-spend", Title: "Do long-lived players spend more?", Category: "lifecycle", Run: runSessionVsSpend},
	{ID: "q11", Slug: "spend-clusters", Title: "What spend segments exist?", Category: "segmentation", Run: runSpendClusters},
	{ID: "q12", Slug: "personas", Title: "Which play personas spend the most?", Category: "segmentation", Run: runPersonas},
	{ID: "q13", Slug: "engagement-correlation", Title: "Which engagement metrics track spend?", Category: "segmentation", Run: runEngagementCorrelation},
	{ID: "q14", Slug: "engagement-by-spend-tier", Title: "How engaged is each spend tier?", Category: "segmentation", Run: runEngagementBySpendTier},
}

// clampInt resolves an integer knob: zero means the default, out-of-range
// values clamp to the bounds.
func clampInt(v, lo, hi, def int) int {
	if v == 0 {
		return def
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// trimRange resolves the lo/hi percentile knobs against a question's default.
func trimRange(p Params, defLo, defHi float64) (float64, float64) {
	lo, hi := p.Lo, p.Hi
	if lo == 0 && hi == 0 {
		return defLo, defHi
	}
	if lo < 0 {
		lo = 0
	}
	if hi <= 0 || hi > 1 {
		hi = defHi
	}
	if lo >= hi {
		return defLo, defHi
	}
	return lo, hi
}

// perUserSpend aggregates purchase rows into one row per user with the total
// spend and purchase count every per-user question starts from.
func perUserSpend(t *table.Table) (*table.Table, error) {
	return analytics.GroupBy(t, analytics.GroupByOptions{
		Keys: []string{table.ColUserID},
		Aggs: []analytics.Aggregation{
			{Column: table.ColUSDValue, Op: analytics.ReduceSum, As: "total_spend"},
			{Column: table.ColUSDValue, Op: analytics.ReduceCount, As: "purchase_count"},
		},
	})
}

// lifetimeMax collapses the cumulative lifetime counters to one row per user,
// keeping each counter's maximum (its final value).
func lifetimeMax(t *table.Table, cols ...string) (*table.Table, error) {
	aggs := make([]analytics.Aggregation, len(cols))
	for i, c := range cols {
		aggs[i] = analytics.Aggregation{Column: c, Op: analytics.ReduceMax, As: c}
	}
	return analytics.GroupBy(t, analytics.GroupByOptions{
		Keys: []string{table.ColUserID},
		Aggs: aggs,
	})
}

// engagementMetrics are the lifetime counters examined by the correlation and
// spend-tier questions.
var engagementMetrics = []string{
	table.ColLevelsCompleted,
	table.ColLevelsFailed,
	table.ColAttempts,
	table.ColReviveUsed,
	table.ColHammerUsed,
	table.ColReplaceUsed,
	table.ColRefreshUsed,
	table.ColRVWatched,
	table.ColStackVelocity,
	table.ColStacksPlaced,
	table.ColHighestStack,
	table.ColMetaCompleted,
	table.ColLifetimeSessions,
	table.ColTimeInApp,
}

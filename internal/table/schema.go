package table

// Canonical column names used by every pipeline stage. Dynamic string lookups
// against the source CSV happen exactly once, in the loader; after that the
// table only answers to these names.
const (
	ColUserID        = "user_id"
	ColInstallTime   = "install_time"
	ColEventTime     = "event_time"
	ColSessionCount  = "session_count" // session counter snapshot at the event
	ColUserLevel     = "user_level"
	ColProductID     = "product_id"
	ColUSDValue      = "usd_value"
	ColPurchaseOrder = "purchase_order"
	ColCountry       = "country"

	// Lifetime counters: cumulative snapshots at the time of the record.
	// The final value for a user is the max across that user's records.
	ColLifetimeSessions = "lifetime_sessions"
	ColTimeInApp        = "time_in_app"
	ColLifetimeSpend    = "lifetime_spend_iap"
	ColLevelsCompleted  = "lifetime_level_completed"
	ColLevelsFailed     = "lifetime_level_failed"
	ColAttempts         = "lifetime_attempts"
	ColReviveUsed       = "lifetime_revive_used"
	ColHammerUsed       = "lifetime_hammer_used"
	ColReplaceUsed      = "lifetime_replace_used"
	ColRefreshUsed      = "lifetime_refresh_used"
	ColRVWatched        = "lifetime_rv_watched"
	ColStackVelocity    = "lifetime_stack_velocity"
	ColStacksPlaced     = "lifetime_stacks_placed"
	ColHighestStack     = "lifetime_highest_stack_size"
	ColMetaCompleted    = "lifetime_meta_completed"
)

// ColumnSpec declares one column of the source table: its canonical name, the
// header it is read from, and its kind.
type ColumnSpec struct {
	Name   string
	Source string
	Kind   Kind
}

// Schema is the full declared schema of the IAP event table. It is validated
// against the CSV header in a single pass at load time; a question that needs
// a column the loader never saw fails with a MissingColumnError at that point,
// not with a silent zero.
var Schema = []ColumnSpec{
	{Name: ColUserID, Source: "user_data.user_id", Kind: KindString},
	{Name: ColInstallTime, Source: "install_timestamp", Kind: KindTime},
	{Name: ColEventTime, Source: "adjust_post_events_iap.adj_event_timestamp_time", Kind: KindTime},
	{Name: ColSessionCount, Source: "adjust_post_events_iap.adj_session_count", Kind: KindFloat},
	{Name: ColUserLevel, Source: "adjust_post_events_iap.user_level_linear", Kind: KindFloat},
	{Name: ColProductID, Source: "adjust_post_events_iap.adj_product_id", Kind: KindString},
	{Name: ColUSDValue, Source: "adjust_post_events_iap.adj_converted_usd_value_dimension", Kind: KindFloat},
	{Name: ColPurchaseOrder, Source: "adjust_post_events_iap.adj_purchase_order", Kind: KindFloat},
	{Name: ColCountry, Source: "adjust_post_events_iap.adj_country", Kind: KindString},

	{Name: ColLifetimeSessions, Source: "session_count", Kind: KindFloat},
	{Name: ColTimeInApp, Source: "time_in_app", Kind: KindFloat},
	{Name: ColLifetimeSpend, Source: "lifetime_spend_iap", Kind: KindFloat},
	{Name: ColLevelsCompleted, Source: "lifetime_status_lifetime_level_completed", Kind: KindFloat},
	{Name: ColLevelsFailed, Source: "lifetime_status_lifetime_level_failed", Kind: KindFloat},
	{Name: ColAttempts, Source: "lifetime_status_lifetime_attempts", Kind: KindFloat},
	{Name: ColReviveUsed, Source: "lifetime_status_lifetime_revive_used", Kind: KindFloat},
	{Name: ColHammerUsed, Source: "lifetime_status_lifetime_hammer_used", Kind: KindFloat},
	{Name: ColReplaceUsed, Source: "lifetime_status_lifetime_replace_used", Kind: KindFloat},
	{Name: ColRefreshUsed, Source: "lifetime_status_lifetime_refresh_used", Kind: KindFloat},
	{Name: ColRVWatched, Source: "lifetime_status_lifetime_rv_watched", Kind: KindFloat},
	{Name: ColStackVelocity, Source: "lifetime_status_lifetime_stack_velocity", Kind: KindFloat},
	{Name: ColStacksPlaced, Source: "lifetime_status_lifetime_stacks_placed", Kind: KindFloat},
	{Name: ColHighestStack, Source: "lifetime_status_lifetime_highest_stack_size", Kind: KindFloat},
	{Name: ColMetaCompleted, Source: "lifetime_status_meta_completed", Kind: KindFloat},
}

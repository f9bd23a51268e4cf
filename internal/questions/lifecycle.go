package questions

import (
	"sort"

	"github.com/gamebrain/shoplens/internal/analytics"
	"github.com/gamebrain/shoplens/internal/table"
)

// UserTypeSummary is one play-intensity cohort's spend profile.
type UserTypeSummary struct {
	Type         string  `json:"type"`
	Users        int     `json:"users"`
	AvgPurchases float64 `json:"avg_purchases"`
	TotalRevenue float64 `json:"total_revenue"`
	AvgRevenue   float64 `json:"avg_revenue_per_user"`
	UserPct      float64 `json:"user_pct"`
	RevenuePct   float64 `json:"revenue_pct"`
}

// UserTypeResult answers q7.
type UserTypeResult struct {
	Types []UserTypeSummary `json:"types"`
}

var userTypes = []string{"Casual", "Midcore", "Hardcore"}

func userType(levelsCompleted float64) string {
	switch {
	case levelsCompleted <= 50:
		return "Casual"
	case levelsCompleted <= 200:
		return "Midcore"
	default:
		return "Hardcore"
	}
}

func runUserTypeFrequency(t *table.Table, _ Params) (any, error) {
	users, err := analytics.GroupBy(t, analytics.GroupByOptions{
		Keys:    []string{table.ColUserID},
		OrderBy: table.ColEventTime,
		Aggs: []analytics.Aggregation{
			{Column: table.ColLevelsCompleted, Op: analytics.ReduceFirst, As: "levels_completed"},
			{Column: table.ColUSDValue, Op: analytics.ReduceCount, As: "purchase_count"},
			{Column: table.ColUSDValue, Op: analytics.ReduceSum, As: "total_spend"},
		},
	})
	if err != nil {
		return nil, err
	}

	levels, lValid, err := users.Floats("levels_completed")
	if err != nil {
		return nil, err
	}
	counts, _, _ := users.Floats("purchase_count")
	spends, sValid, _ := users.Floats("total_spend")

	type acc struct {
		users     int
		purchases float64
		revenue   float64
	}
	byType := make(map[string]*acc, len(userTypes))
	var totalUsers int
	var totalRevenue float64
	for i := range levels {
		if !lValid[i] {
			continue
		}
		a := byType[userType(levels[i])]
		if a == nil {
			a = &acc{}
			byType[userType(levels[i])] = a
		}
		a.users++
		a.purchases += counts[i]
		if sValid[i] {
			a.revenue += spends[i]
		}
		totalUsers++
	}
	for _, a := range byType {
		totalRevenue += a.revenue
	}

	res := &UserTypeResult{}
	for _, name := range userTypes {
		a := byType[name]
		if a == nil {
			continue
		}
		s := UserTypeSummary{
			Type:         name,
			Users:        a.users,
			TotalRevenue: table.Round2(a.revenue),
		}
		if a.users > 0 {
			s.AvgPurchases = table.Round2(a.purchases / float64(a.users))
			s.AvgRevenue = table.Round2(a.revenue / float64(a.users))
		}
		if totalUsers > 0 {
			s.UserPct = table.Round2(100 * float64(a.users) / float64(totalUsers))
		}
		if totalRevenue > 0 {
			s.RevenuePct = table.Round2(100 * a.revenue / totalRevenue)
		}
		res.Types = append(res.Types, s)
	}
	return res, nil
}

// HistPoint is one histogram bin: the bin midpoint and the percentage of
// rows landing in it.
type HistPoint struct {
	Mid float64 `json:"mid"`
	Pct float64 `json:"pct"`
}

// ValueBandProfile is the lifecycle profile of one purchase-value band.
type ValueBandProfile struct {
	Band        string      `json:"band"`
	Purchases   int         `json:"purchases"`
	LevelHist   []HistPoint `json:"level_histogram"`
	SessionHist []HistPoint `json:"session_histogram"`
}

// LifecycleValueBandsResult answers q8.
type LifecycleValueBandsResult struct {
	Bands []ValueBandProfile `json:"bands"`
}

const valueBandThreshold = 10

// valueBand splits purchases at $10. The high band is closed on the left, so
// a $10 purchase is High; the shared bucketizer's right-closed bins cannot
// express that.
func valueBand(usd float64) string {
	if usd < valueBandThreshold {
		return "Low"
	}
	return "High"
}

const lifecycleHistBins = 49

func runLifecycleValueBands(t *table.Table, p Params) (any, error) {
	lo, hi := trimRange(p, 0.05, 0.95)

	rows, err := t.DropNull(table.ColUSDValue, table.ColUserLevel, table.ColSessionCount)
	if err != nil {
		return nil, err
	}

	// Trim once over all purchases so both bands histogram on one shared
	// bin grid; trimming per band would put Low and High on different axes.
	trimmed, err := analytics.TrimOutliers(rows,
		analytics.TrimSpec{Column: table.ColUserLevel, Lo: lo, Hi: hi, Method: p.Method},
		analytics.TrimSpec{Column: table.ColSessionCount, Lo: lo, Hi: hi, Method: p.Method},
	)
	if err != nil {
		return nil, err
	}

	usd, _, err := trimmed.Floats(table.ColUSDValue)
	if err != nil {
		return nil, err
	}
	levels, _, _ := trimmed.Floats(table.ColUserLevel)
	sessions, _, _ := trimmed.Floats(table.ColSessionCount)
	levelLo, levelHi := valueRange(levels)
	sessionLo, sessionHi := valueRange(sessions)

	res := &LifecycleValueBandsResult{}
	for _, band := range []string{"Low", "High"} {
		band := band
		sub := trimmed.Where(func(i int) bool { return valueBand(usd[i]) == band })
		profile := ValueBandProfile{Band: band, Purchases: sub.Len()}
		if sub.Len() > 0 {
			bandLevels, lv, _ := sub.Floats(table.ColUserLevel)
			bandSessions, sv, _ := sub.Floats(table.ColSessionCount)
			profile.LevelHist = percentHistogram(compactValid(bandLevels, lv), levelLo, levelHi)
			profile.SessionHist = percentHistogram(compactValid(bandSessions, sv), sessionLo, sessionHi)
		}
		res.Bands = append(res.Bands, profile)
	}
	return res, nil
}

func valueRange(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func compactValid(values []float64, valid []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if valid[i] {
			out = append(out, v)
		}
	}
	return out
}

func percentHistogram(values []float64, lo, hi float64) []HistPoint {
	if len(values) == 0 {
		return nil
	}
	if lo == hi {
		return []HistPoint{{Mid: table.Round2(lo), Pct: 100}}
	}
	mids, counts := analytics.Histogram(values, lo, hi, lifecycleHistBins)
	out := make([]HistPoint, len(mids))
	for i := range mids {
		out[i] = HistPoint{
			Mid: table.Round2(mids[i]),
			Pct: table.Round2(100 * float64(counts[i]) / float64(len(values))),
		}
	}
	return out
}

// LTVSegment is one first-purchase cohort's lifetime value.
type LTVSegment struct {
	Segment string  `json:"segment"`
	MeanLTV float64 `json:"mean_ltv"`
	Users   int     `json:"users"`
	UserPct float64 `json:"user_pct"`
}

// LTVResult answers q9.
type LTVResult struct {
	SegmentBy string       `json:"segment_by"`
	Segments  []LTVSegment `json:"segments"`
}

var firstLevelBins = analytics.BucketConfig{
	Edges:         []float64{0, 20, 50, 100, 200, 500, 1000},
	Labels:        []string{"0–20", "21–50", "51–100", "101–200", "201–500", "501–1000"},
	IncludeLowest: true,
}

func runLTVByFirstPurchase(t *table.Table, p Params) (any, error) {
	segmentBy := p.SegmentBy
	if segmentBy != "level" {
		segmentBy = "product"
	}

	users, err := analytics.GroupBy(t, analytics.GroupByOptions{
		Keys:    []string{table.ColUserID},
		OrderBy: table.ColEventTime,
		Aggs: []analytics.Aggregation{
			{Column: table.ColUSDValue, Op: analytics.ReduceSum, As: "ltv"},
			{Column: table.ColProductID, Op: analytics.ReduceFirst, As: "first_product"},
			{Column: table.ColUserLevel, Op: analytics.ReduceFirst, As: "first_level"},
		},
	})
	if err != nil {
		return nil, err
	}

	ltv, ltvValid, err := users.Floats("ltv")
	if err != nil {
		return nil, err
	}

	segment := make([]string, users.Len())
	segValid := make([]bool, users.Len())
	var vocab []string
	switch segmentBy {
	case "product":
		products, pv, perr := users.Strings("first_product")
		if perr != nil {
			return nil, perr
		}
		copy(segment, products)
		copy(segValid, pv)
	case "level":
		b, berr := analytics.NewBucketizer(firstLevelBins)
		if berr != nil {
			return nil, berr
		}
		vocab = b.Vocabulary()
		levels, lv, lerr := users.Floats("first_level")
		if lerr != nil {
			return nil, lerr
		}
		for i := range levels {
			if !lv[i] {
				continue
			}
			if label, ok := b.Label(levels[i]); ok {
				segment[i] = label
				segValid[i] = true
			}
		}
	}

	type acc struct {
		sum   float64
		users int
	}
	bySeg := make(map[string]*acc)
	var order []string
	var total int
	for i := range segment {
		if !segValid[i] || !ltvValid[i] {
			continue
		}
		a := bySeg[segment[i]]
		if a == nil {
			a = &acc{}
			bySeg[segment[i]] = a
			order = append(order, segment[i])
		}
		a.sum += ltv[i]
		a.users++
		total++
	}

	res := &LTVResult{SegmentBy: segmentBy}
	build := func(name string) {
		a := bySeg[name]
		if a == nil {
			return
		}
		s := LTVSegment{Segment: name, Users: a.users}
		s.MeanLTV = table.Round2(a.sum / float64(a.users))
		if total > 0 {
			s.UserPct = table.Round2(100 * float64(a.users) / float64(total))
		}
		res.Segments = append(res.Segments, s)
	}
	if segmentBy == "level" {
		// Fixed bin order.
		for _, name := range vocab {
			build(name)
		}
	} else {
		for _, name := range order {
			build(name)
		}
		sort.SliceStable(res.Segments, func(a, b int) bool {
			return res.Segments[a].MeanLTV > res.Segments[b].MeanLTV
		})
		topN := clampInt(p.TopN, 5, 30, 10)
		if len(res.Segments) > topN {
			res.Segments = res.Segments[:topN]
		}
	}
	return res, nil
}

// SpendPoint is one user's final session count against total spend.
type SpendPoint struct {
	UserID       string  `json:"user_id"`
	FinalSession float64 `json:"final_session"`
	TotalSpend   float64 `json:"total_spend"`
}

// SessionVsSpendResult answers q10.
type SessionVsSpendResult struct {
	Users  int          `json:"users"`
	Points []SpendPoint `json:"points"`
}

func runSessionVsSpend(t *table.Table, p Params) (any, error) {
	lo, hi := trimRange(p, 0.01, 0.99)

	users, err := analytics.GroupBy(t, analytics.GroupByOptions{
		Keys: []string{table.ColUserID},
		Aggs: []analytics.Aggregation{
			{Column: table.ColSessionCount, Op: analytics.ReduceMax, As: "final_session"},
			{Column: table.ColUSDValue, Op: analytics.ReduceSum, As: "total_spend"},
		},
	})
	if err != nil {
		return nil, err
	}
	users, err = users.DropNull("final_session", "total_spend")
	if err != nil {
		return nil, err
	}

	trimmed, err := analytics.TrimOutliers(users,
		analytics.TrimSpec{Column: "final_session", Lo: lo, Hi: hi, Method: p.Method},
		analytics.TrimSpec{Column: "total_spend", Lo: lo, Hi: hi, Method: p.Method},
	)
	if err != nil {
		return nil, err
	}

	ids, _, _ := trimmed.Strings(table.ColUserID)
	sessions, _, _ := trimmed.Floats("final_session")
	spends, _, _ := trimmed.Floats("total_spend")

	res := &SessionVsSpendResult{Users: trimmed.Len(), Points: make([]SpendPoint, trimmed.Len())}
	for i := range ids {
		res.Points[i] = SpendPoint{
			UserID:       ids[i],
			FinalSession: sessions[i],
			TotalSpend:   table.Round2(spends[i]),
		}
	}
	return res, nil
}

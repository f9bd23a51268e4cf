package questions

import (
	"sort"
	"strings"

	"github.com/gamebrain/shoplens/internal/analytics"
	"github.com/gamebrain/shoplens/internal/table"
)

// SpendCluster is one k-means spend segment.
type SpendCluster struct {
	Label           string  `json:"label"`
	Users           int     `json:"users"`
	AvgTotalSpend   float64 `json:"avg_total_spend"`
	AvgPurchases    float64 `json:"avg_purchases"`
	AvgPurchaseSize float64 `json:"avg_purchase_value"`
}

// SpendClustersResult answers q11.
type SpendClustersResult struct {
	K        int            `json:"k"`
	Clusters []SpendCluster `json:"clusters"`
	Excluded []string       `json:"excluded_features,omitempty"`
}

// spendClusterLabels order low to high; used only when K is 3.
var spendClusterLabels = []string{"Minnow", "Dolphin", "Whale"}

const maxClusterPurchases = 200

func runSpendClusters(t *table.Table, p Params) (any, error) {
	k := clampInt(p.K, 2, 10, 3)
	seed := p.Seed
	if seed == 0 {
		seed = 42
	}

	users, err := analytics.GroupBy(t, analytics.GroupByOptions{
		Keys: []string{table.ColUserID},
		Aggs: []analytics.Aggregation{
			{Column: table.ColUSDValue, Op: analytics.ReduceSum, As: "total_spend"},
			{Column: table.ColUSDValue, Op: analytics.ReduceCount, As: "purchase_count"},
			{Column: table.ColUSDValue, Op: analytics.ReduceMean, As: "avg_value"},
		},
	})
	if err != nil {
		return nil, err
	}
	counts, cValid, err := users.Floats("purchase_count")
	if err != nil {
		return nil, err
	}
	users = users.Where(func(i int) bool { return cValid[i] && counts[i] < maxClusterPurchases })

	var labels []string
	if k == len(spendClusterLabels) {
		labels = spendClusterLabels
	}
	seg, err := analytics.Segment(users, []string{"total_spend", "purchase_count", "avg_value"}, analytics.SegmentOptions{
		K:          k,
		Seed:       seed,
		RankColumn: "total_spend",
		Labels:     labels,
	})
	if err != nil {
		return nil, err
	}

	featureIdx := make(map[string]int, len(seg.Features))
	for i, f := range seg.Features {
		featureIdx[f] = i
	}
	res := &SpendClustersResult{K: k, Excluded: seg.Excluded}
	for _, name := range seg.ClusterNames {
		centroid := seg.Centroids[name]
		c := SpendCluster{Label: name, Users: seg.Sizes[name]}
		if i, ok := featureIdx["total_spend"]; ok {
			c.AvgTotalSpend = table.Round2(centroid[i])
		}
		if i, ok := featureIdx["purchase_count"]; ok {
			c.AvgPurchases = table.Round2(centroid[i])
		}
		if i, ok := featureIdx["avg_value"]; ok {
			c.AvgPurchaseSize = table.Round2(centroid[i])
		}
		res.Clusters = append(res.Clusters, c)
	}
	return res, nil
}

// Persona thresholds over the lifetime counters.
const (
	personaReviveThreshold    = 20
	personaBoosterThreshold   = 30
	personaFailureThreshold   = 100
	personaSessionThreshold   = 500
	personaTimeInAppThreshold = 1_000_000
)

// PersonaSpend is one persona combination's spend profile.
type PersonaSpend struct {
	Persona   string  `json:"persona"`
	Users     int     `json:"users"`
	MeanSpend float64 `json:"mean_spend"`
}

// PersonasResult answers q12.
type PersonasResult struct {
	Personas []PersonaSpend `json:"personas"`
}

func runPersonas(t *table.Table, _ Params) (any, error) {
	users, err := lifetimeMax(t,
		table.ColReviveUsed,
		table.ColHammerUsed,
		table.ColReplaceUsed,
		table.ColRefreshUsed,
		table.ColLevelsFailed,
		table.ColLifetimeSessions,
		table.ColTimeInApp,
		table.ColLifetimeSpend,
	)
	if err != nil {
		return nil, err
	}

	col := func(name string) ([]float64, []bool) {
		vals, valid, _ := users.Floats(name)
		return vals, valid
	}
	revive, reviveOK := col(table.ColReviveUsed)
	hammer, hammerOK := col(table.ColHammerUsed)
	replace, replaceOK := col(table.ColReplaceUsed)
	refresh, refreshOK := col(table.ColRefreshUsed)
	failed, failedOK := col(table.ColLevelsFailed)
	sessions, sessionsOK := col(table.ColLifetimeSessions)
	inApp, inAppOK := col(table.ColTimeInApp)
	spend, spendOK := col(table.ColLifetimeSpend)

	type acc struct {
		sum   float64
		users int
	}
	bySeg := make(map[string]*acc)
	var order []string
	for i := 0; i < users.Len(); i++ {
		// Complete cases only: a user missing any counter is excluded
		// rather than zero-filled into the wrong combination.
		if !spendOK[i] || !reviveOK[i] || !hammerOK[i] || !replaceOK[i] ||
			!refreshOK[i] || !failedOK[i] || !sessionsOK[i] || !inAppOK[i] {
			continue
		}
		var tags []string
		if revive[i] > personaReviveThreshold {
			tags = append(tags, "Revive")
		}
		boosters := hammer[i] + replace[i] + refresh[i]
		if boosters > personaBoosterThreshold {
			tags = append(tags, "Booster")
		}
		if failed[i] > personaFailureThreshold {
			tags = append(tags, "Failure")
		}
		if sessions[i] > personaSessionThreshold || inApp[i] > personaTimeInAppThreshold {
			tags = append(tags, "Engaged")
		}
		persona := "None"
		if len(tags) > 0 {
			persona = strings.Join(tags, "+")
		}
		a := bySeg[persona]
		if a == nil {
			a = &acc{}
			bySeg[persona] = a
			order = append(order, persona)
		}
		a.sum += spend[i]
		a.users++
	}

	res := &PersonasResult{}
	for _, persona := range order {
		a := bySeg[persona]
		res.Personas = append(res.Personas, PersonaSpend{
			Persona:   persona,
			Users:     a.users,
			MeanSpend: table.Round2(a.sum / float64(a.users)),
		})
	}
	sort.SliceStable(res.Personas, func(a, b int) bool {
		return res.Personas[a].MeanSpend > res.Personas[b].MeanSpend
	})
	return res, nil
}

// EngagementCorrelationResult answers q13.
type EngagementCorrelationResult struct {
	Results  []analytics.Correlation `json:"results"`
	Excluded []string                `json:"excluded,omitempty"`
	Users    int                     `json:"users"`
}

func runEngagementCorrelation(t *table.Table, p Params) (any, error) {
	lo, hi := trimRange(p, 0.01, 0.99)

	cols := append(append([]string(nil), engagementMetrics...), table.ColLifetimeSpend)
	users, err := lifetimeMax(t, cols...)
	if err != nil {
		return nil, err
	}

	report, err := analytics.Correlate(users, engagementMetrics, table.ColLifetimeSpend, analytics.CorrelationOptions{
		Lo:          lo,
		Hi:          hi,
		TrimColumns: cols,
	})
	if err != nil {
		return nil, err
	}
	for i := range report.Results {
		report.Results[i].Coefficient = table.Round2(report.Results[i].Coefficient)
	}
	return &EngagementCorrelationResult{
		Results:  report.Results,
		Excluded: report.Excluded,
		Users:    report.Rows,
	}, nil
}

// TierEngagement is one spend tier's percentile-normalized engagement
// profile.
type TierEngagement struct {
	Tier    string             `json:"tier"`
	Users   int                `json:"users"`
	Metrics map[string]float64 `json:"metrics"` // metric -> percentile score 0-100
}

// EngagementByTierResult answers q14.
type EngagementByTierResult struct {
	Tiers []TierEngagement `json:"tiers"`
}

// spendTiers deliberately double-label the top two bins High so they merge;
// the sub-$10 "dummy" tier is excluded from output.
var spendTiers = analytics.BucketConfig{
	Edges:         []float64{0, 10, 20, 50, 200, 500},
	Labels:        []string{"dummy", "Low", "Medium", "High", "High"},
	IncludeLowest: true,
}

func runEngagementBySpendTier(t *table.Table, _ Params) (any, error) {
	cols := append(append([]string(nil), engagementMetrics...), table.ColLifetimeSpend)
	users, err := lifetimeMax(t, cols...)
	if err != nil {
		return nil, err
	}

	b, err := analytics.NewBucketizer(spendTiers)
	if err != nil {
		return nil, err
	}
	tiered, err := b.Apply(users, table.ColLifetimeSpend, "tier")
	if err != nil {
		return nil, err
	}

	tiers, tierValid, err := tiered.Strings("tier")
	if err != nil {
		return nil, err
	}

	res := &EngagementByTierResult{}
	for _, tier := range []string{"Low", "Medium", "High"} {
		tier := tier
		sub := tiered.Where(func(i int) bool { return tierValid[i] && tiers[i] == tier })
		if sub.Len() == 0 {
			continue
		}
		te := TierEngagement{Tier: tier, Users: sub.Len(), Metrics: make(map[string]float64, len(engagementMetrics))}
		for _, metric := range engagementMetrics {
			subVals, subValid, merr := sub.Floats(metric)
			if merr != nil {
				return nil, merr
			}
			tierMean := analytics.Mean(compactValid(subVals, subValid))

			popVals, popValid, merr := tiered.Floats(metric)
			if merr != nil {
				return nil, merr
			}
			score := analytics.PercentileRank(compactValid(popVals, popValid), tierMean)
			te.Metrics[metric] = table.Round2(score)
		}
		res.Tiers = append(res.Tiers, te)
	}
	return res, nil
}

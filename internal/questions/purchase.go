package questions

import (
	"sort"

	"github.com/gamebrain/shoplens/internal/analytics"
	"github.com/gamebrain/shoplens/internal/table"
)

// LevelShare is one user level's slice of the purchase volume.
type LevelShare struct {
	Level     float64 `json:"level"`
	Purchases int     `json:"purchases"`
	Percent   float64 `json:"percent"`
}

// PurchaseLevelsResult answers q1.
type PurchaseLevelsResult struct {
	Metric       string       `json:"metric"`
	Levels       []LevelShare `json:"levels"`
	ShareOfTotal float64      `json:"share_of_total"` // % of purchases the shown levels cover
	Total        int          `json:"total_purchases"`
}

func runPurchaseLevels(t *table.Table, p Params) (any, error) {
	topN := clampInt(p.TopN, 5, 50, 30)
	metric := p.Metric
	if metric != "count" {
		metric = "percent"
	}

	rows, err := t.DropNull(table.ColUserLevel)
	if err != nil {
		return nil, err
	}
	grouped, err := analytics.GroupBy(rows, analytics.GroupByOptions{
		Keys: []string{table.ColUserLevel},
		Aggs: []analytics.Aggregation{
			{Column: table.ColUserLevel, Op: analytics.ReduceCount, As: "purchases"},
		},
	})
	if err != nil {
		return nil, err
	}

	levels, _, _ := grouped.Floats(table.ColUserLevel)
	counts, _, _ := grouped.Floats("purchases")
	total := rows.Len()

	shares := make([]LevelShare, len(levels))
	for i := range levels {
		shares[i] = LevelShare{Level: levels[i], Purchases: int(counts[i])}
		if total > 0 {
			shares[i].Percent = table.Round2(100 * counts[i] / float64(total))
		}
	}
	// Keep the busiest levels, then present them in level order.
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].Purchases > shares[b].Purchases })
	if len(shares) > topN {
		shares = shares[:topN]
	}
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].Level < shares[b].Level })

	var covered int
	for _, s := range shares {
		covered += s.Purchases
	}
	res := &PurchaseLevelsResult{Metric: metric, Levels: shares, Total: total}
	if total > 0 {
		res.ShareOfTotal = table.Round2(100 * float64(covered) / float64(total))
	}
	return res, nil
}

// DistributionSummary is the mean plus quartiles of one derived metric.
type DistributionSummary struct {
	Mean float64 `json:"mean"`
	P25  float64 `json:"p25"`
	P50  float64 `json:"p50"`
	P75  float64 `json:"p75"`
}

// TimeToFirstPurchaseResult answers q2.
type TimeToFirstPurchaseResult struct {
	Users           int                 `json:"users"`
	HoursToFirst    DistributionSummary `json:"hours_to_first_purchase"`
	SessionsAtFirst DistributionSummary `json:"sessions_at_first_purchase"`
}

func runTimeToFirstPurchase(t *table.Table, _ Params) (any, error) {
	firsts, err := analytics.GroupBy(t, analytics.GroupByOptions{
		Keys:    []string{table.ColUserID},
		OrderBy: table.ColEventTime,
		Aggs: []analytics.Aggregation{
			{Column: table.ColEventTime, Op: analytics.ReduceFirst, As: "first_purchase_time"},
			{Column: table.ColInstallTime, Op: analytics.ReduceFirst, As: "install"},
			{Column: table.ColSessionCount, Op: analytics.ReduceFirst, As: "first_session"},
		},
	})
	if err != nil {
		return nil, err
	}

	purchaseTimes, ptValid, err := firsts.Times("first_purchase_time")
	if err != nil {
		return nil, err
	}
	installs, inValid, err := firsts.Times("install")
	if err != nil {
		return nil, err
	}
	sessions, sValid, err := firsts.Floats("first_session")
	if err != nil {
		return nil, err
	}

	var hours, atSession []float64
	for i := range purchaseTimes {
		if !ptValid[i] || !inValid[i] {
			continue
		}
		hours = append(hours, purchaseTimes[i].Sub(installs[i]).Hours())
		if sValid[i] {
			atSession = append(atSession, sessions[i])
		}
	}
	if len(hours) == 0 {
		return nil, &analytics.InsufficientDataError{Op: "time-to-first-purchase", Need: 1, Got: 0}
	}

	return &TimeToFirstPurchaseResult{
		Users:           len(hours),
		HoursToFirst:    summarize(hours),
		SessionsAtFirst: summarize(atSession),
	}, nil
}

func summarize(values []float64) DistributionSummary {
	return DistributionSummary{
		Mean: table.Round2(analytics.Mean(values)),
		P25:  table.Round2(analytics.Quantile(values, 0.25)),
		P50:  table.Round2(analytics.Quantile(values, 0.5)),
		P75:  table.Round2(analytics.Quantile(values, 0.75)),
	}
}

// ProductShare is one product's share of purchases and revenue.
type ProductShare struct {
	Product     string  `json:"product"`
	PurchasePct float64 `json:"purchase_pct"`
	RevenuePct  float64 `json:"revenue_pct"`
}

// TopProductsResult answers q3.
type TopProductsResult struct {
	Products []ProductShare `json:"products"`
}

func runTopProducts(t *table.Table, p Params) (any, error) {
	topN := clampInt(p.TopN, 5, 15, 10)

	rows, err := t.DropNull(table.ColProductID)
	if err != nil {
		return nil, err
	}
	grouped, err := analytics.GroupBy(rows, analytics.GroupByOptions{
		Keys: []string{table.ColProductID},
		Aggs: []analytics.Aggregation{
			{Column: table.ColUSDValue, Op: analytics.ReduceCount, As: "purchases"},
			{Column: table.ColUSDValue, Op: analytics.ReduceSum, As: "revenue"},
		},
	})
	if err != nil {
		return nil, err
	}

	products, _, _ := grouped.Strings(table.ColProductID)
	counts, _, _ := grouped.Floats("purchases")
	revenues, revValid, _ := grouped.Floats("revenue")

	var totalCount, totalRevenue float64
	for i := range counts {
		totalCount += counts[i]
		if revValid[i] {
			totalRevenue += revenues[i]
		}
	}

	shares := make([]ProductShare, len(products))
	for i := range products {
		shares[i].Product = products[i]
		if totalCount > 0 {
			shares[i].PurchasePct = table.Round2(100 * counts[i] / totalCount)
		}
		if totalRevenue > 0 && revValid[i] {
			shares[i].RevenuePct = table.Round2(100 * revenues[i] / totalRevenue)
		}
	}
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].RevenuePct > shares[b].RevenuePct })
	if len(shares) > topN {
		shares = shares[:topN]
	}
	return &TopProductsResult{Products: shares}, nil
}

// CountryShare is one country's share of purchase volume.
type CountryShare struct {
	Country   string  `json:"country"`
	Purchases int     `json:"purchases"`
	Percent   float64 `json:"percent"`
}

// TopCountriesResult answers q4.
type TopCountriesResult struct {
	Countries []CountryShare `json:"countries"`
}

func runTopCountries(t *table.Table, p Params) (any, error) {
	topN := clampInt(p.TopN, 5, 30, 10)

	rows, err := t.DropNull(table.ColCountry)
	if err != nil {
		return nil, err
	}
	grouped, err := analytics.GroupBy(rows, analytics.GroupByOptions{
		Keys: []string{table.ColCountry},
		Aggs: []analytics.Aggregation{
			{Column: table.ColCountry, Op: analytics.ReduceCount, As: "purchases"},
		},
	})
	if err != nil {
		return nil, err
	}

	countries, _, _ := grouped.Strings(table.ColCountry)
	counts, _, _ := grouped.Floats("purchases")
	total := float64(rows.Len())

	shares := make([]CountryShare, len(countries))
	for i := range countries {
		shares[i] = CountryShare{Country: countries[i], Purchases: int(counts[i])}
		if total > 0 {
			shares[i].Percent = table.Round2(100 * counts[i] / total)
		}
	}
	sort.SliceStable(shares, func(a, b int) bool { return shares[a].Purchases > shares[b].Purchases })
	if len(shares) > topN {
		shares = shares[:topN]
	}
	return &TopCountriesResult{Countries: shares}, nil
}

// BucketShare is one repeat-purchase bucket's share of the buyer base.
type BucketShare struct {
	Bucket  string  `json:"bucket"`
	Users   int     `json:"users"`
	Percent float64 `json:"percent"`
}

// RepeatPurchaseResult answers q5.
type RepeatPurchaseResult struct {
	Buckets []BucketShare `json:"buckets"`
	Buyers  int           `json:"buyers"`
}

var repeatBuckets = analytics.BucketConfig{
	Edges:     []float64{0, 1, 5, 10, 15, 20, 30},
	Labels:    []string{"1", "2–5", "6–10", "11–15", "16–20", "21–30"},
	OpenLabel: "30+",
}

func runRepeatPurchaseBuckets(t *table.Table, _ Params) (any, error) {
	users, err := perUserSpend(t)
	if err != nil {
		return nil, err
	}
	b, err := analytics.NewBucketizer(repeatBuckets)
	if err != nil {
		return nil, err
	}
	counts, _, err := users.Floats("purchase_count")
	if err != nil {
		return nil, err
	}

	byBucket := make(map[string]int)
	labeled := 0
	for _, c := range counts {
		if label, ok := b.Label(c); ok {
			byBucket[label]++
			labeled++
		}
	}

	res := &RepeatPurchaseResult{Buyers: labeled}
	for _, label := range b.Vocabulary() {
		share := BucketShare{Bucket: label, Users: byBucket[label]}
		if labeled > 0 {
			share.Percent = table.Round2(100 * float64(byBucket[label]) / float64(labeled))
		}
		res.Buckets = append(res.Buckets, share)
	}
	return res, nil
}

// OrderComposition is the price-band mix at one position in the purchase
// sequence.
type OrderComposition struct {
	Order int                `json:"order"`
	Bands map[string]float64 `json:"bands"` // band -> % of purchases at this order
}

// PurchaseSequenceResult answers q6.
type PurchaseSequenceResult struct {
	Bands  []string           `json:"bands"`
	Orders []OrderComposition `json:"orders"`
}

const maxPurchaseOrder = 50

var priceBands = analytics.BucketConfig{
	Edges:         []float64{0, 2, 5, 10},
	Labels:        []string{"$0–2", "$2–5", "$5–10"},
	OpenLabel:     "$10+",
	IncludeLowest: true,
}

func runPurchaseSequence(t *table.Table, _ Params) (any, error) {
	rows, err := t.DropNull(table.ColPurchaseOrder, table.ColUSDValue)
	if err != nil {
		return nil, err
	}
	orders, _, err := rows.Floats(table.ColPurchaseOrder)
	if err != nil {
		return nil, err
	}
	rows = rows.Where(func(i int) bool { return orders[i] >= 1 && orders[i] <= maxPurchaseOrder })

	b, err := analytics.NewBucketizer(priceBands)
	if err != nil {
		return nil, err
	}
	banded, err := b.Apply(rows, table.ColUSDValue, "band")
	if err != nil {
		return nil, err
	}

	grouped, err := analytics.GroupBy(banded, analytics.GroupByOptions{
		Keys: []string{table.ColPurchaseOrder, "band"},
		Aggs: []analytics.Aggregation{
			{Column: table.ColUSDValue, Op: analytics.ReduceCount, As: "purchases"},
		},
	})
	if err != nil {
		return nil, err
	}

	gOrders, _, _ := grouped.Floats(table.ColPurchaseOrder)
	gBands, _, _ := grouped.Strings("band")
	gCounts, _, _ := grouped.Floats("purchases")

	perOrder := make(map[int]map[string]float64)
	totals := make(map[int]float64)
	for i := range gOrders {
		order := int(gOrders[i])
		if perOrder[order] == nil {
			perOrder[order] = make(map[string]float64)
		}
		perOrder[order][gBands[i]] = gCounts[i]
		totals[order] += gCounts[i]
	}

	res := &PurchaseSequenceResult{Bands: b.Vocabulary()}
	for order := 1; order <= maxPurchaseOrder; order++ {
		total := totals[order]
		if total == 0 {
			continue
		}
		comp := OrderComposition{Order: order, Bands: make(map[string]float64, len(res.Bands))}
		for _, band := range res.Bands {
			comp.Bands[band] = table.Round2(100 * perOrder[order][band] / total)
		}
		res.Orders = append(res.Orders, comp)
	}
	return res, nil
}

package analytics

import (
	"testing"
	"time"

	"github.com/gamebrain/shoplens/internal/table"
)

func purchasesTable(t *testing.T) *table.Table {
	t.Helper()
	tbl, err := table.New(
		table.StringColumn("user_id", []string{"u1", "u2", "u1", "u1", "u2"}, nil),
		table.FloatColumn("usd_value", []float64{5, 1, 10, 5, 2}, nil),
		table.FloatColumn("user_level", []float64{3, 7, 9, 12, 8}, nil),
		table.TimeColumn("event_time", []time.Time{
			time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC),
			time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC),
			time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
		}, nil),
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}
	return tbl
}

func TestGroupBySumPerUser(t *testing.T) {
	tbl := purchasesTable(t)

	out, err := GroupBy(tbl, GroupByOptions{
		Keys: []string{"user_id"},
		Aggs: []Aggregation{
			{Column: "usd_value", Op: ReduceSum, As: "total_spend"},
			{Column: "usd_value", Op: ReduceCount, As: "purchase_count"},
		},
	})
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("groups = %d, want 2", out.Len())
	}

	users, _, _ := out.Strings("user_id")
	totals, _, _ := out.Floats("total_spend")
	counts, _, _ := out.Floats("purchase_count")

	want := map[string]struct{ total, count float64 }{
		"u1": {20, 3},
		"u2": {3, 2},
	}
	for i, u := range users {
		w, ok := want[u]
		if !ok {
			t.Fatalf("unexpected group %q", u)
		}
		if totals[i] != w.total {
			t.Errorf("total_spend[%s] = %v, want %v", u, totals[i], w.total)
		}
		if counts[i] != w.count {
			t.Errorf("purchase_count[%s] = %v, want %v", u, counts[i], w.count)
		}
	}

	// First-seen key order.
	if users[0] != "u1" || users[1] != "u2" {
		t.Errorf("group order = %v, want [u1 u2]", users)
	}
}

func TestGroupByFirstByOrder(t *testing.T) {
	tbl := purchasesTable(t)

	out, err := GroupBy(tbl, GroupByOptions{
		Keys:    []string{"user_id"},
		OrderBy: "event_time",
		Aggs: []Aggregation{
			{Column: "user_level", Op: ReduceFirst, As: "first_level"},
		},
	})
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}

	users, _, _ := out.Strings("user_id")
	levels, _, _ := out.Floats("first_level")
	// u1's earliest purchase is the Feb 28 row at level 12.
	want := map[string]float64{"u1": 12, "u2": 7}
	for i, u := range users {
		if levels[i] != want[u] {
			t.Errorf("first_level[%s] = %v, want %v", u, levels[i], want[u])
		}
	}
}

func TestGroupByMeanAndMax(t *testing.T) {
	tbl := purchasesTable(t)

	out, err := GroupBy(tbl, GroupByOptions{
		Keys: []string{"user_id"},
		Aggs: []Aggregation{
			{Column: "usd_value", Op: ReduceMean, As: "avg_spend"},
			{Column: "user_level", Op: ReduceMax, As: "max_level"},
		},
	})
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}

	users, _, _ := out.Strings("user_id")
	means, _, _ := out.Floats("avg_spend")
	maxes, _, _ := out.Floats("max_level")
	for i, u := range users {
		switch u {
		case "u1":
			if means[i] != 20.0/3 {
				t.Errorf("avg_spend[u1] = %v, want %v", means[i], 20.0/3)
			}
			if maxes[i] != 12 {
				t.Errorf("max_level[u1] = %v, want 12", maxes[i])
			}
		case "u2":
			if means[i] != 1.5 {
				t.Errorf("avg_spend[u2] = %v, want 1.5", means[i])
			}
			if maxes[i] != 8 {
				t.Errorf("max_level[u2] = %v, want 8", maxes[i])
			}
		}
	}
}

func TestGroupByPermutationInvariance(t *testing.T) {
	tbl := purchasesTable(t)
	// Reverse the row order; per-group results must not change.
	reversed := tbl.Select([]int{4, 3, 2, 1, 0})

	opt := GroupByOptions{
		Keys: []string{"user_id"},
		Aggs: []Aggregation{{Column: "usd_value", Op: ReduceSum, As: "total_spend"}},
	}
	a, err := GroupBy(tbl, opt)
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	b, err := GroupBy(reversed, opt)
	if err != nil {
		t.Fatalf("GroupBy reversed: %v", err)
	}

	collect := func(tb *table.Table) map[string]float64 {
		users, _, _ := tb.Strings("user_id")
		totals, _, _ := tb.Floats("total_spend")
		m := make(map[string]float64)
		for i, u := range users {
			m[u] = totals[i]
		}
		return m
	}
	ma, mb := collect(a), collect(b)
	if len(ma) != len(mb) {
		t.Fatalf("group counts differ: %d vs %d", len(ma), len(mb))
	}
	for u, v := range ma {
		if mb[u] != v {
			t.Errorf("total_spend[%s] = %v reversed, want %v", u, mb[u], v)
		}
	}
}

func TestGroupBySkipsNullKeysAndInputs(t *testing.T) {
	tbl, err := table.New(
		table.StringColumn("user_id",
			[]string{"u1", "", "u2", "u3"},
			[]bool{true, false, true, true},
		),
		table.FloatColumn("usd_value",
			[]float64{5, 9, 3, 0},
			[]bool{true, true, true, false},
		),
	)
	if err != nil {
		t.Fatalf("table.New: %v", err)
	}

	out, err := GroupBy(tbl, GroupByOptions{
		Keys: []string{"user_id"},
		Aggs: []Aggregation{{Column: "usd_value", Op: ReduceSum, As: "total"}},
	})
	if err != nil {
		t.Fatalf("GroupBy: %v", err)
	}
	// The null-key row is excluded; u3's only input is null so the key drops.
	if out.Len() != 2 {
		t.Fatalf("groups = %d, want 2", out.Len())
	}
	users, _, _ := out.Strings("user_id")
	for _, u := range users {
		if u == "u3" {
			t.Error("group u3 should be dropped: all aggregation inputs null")
		}
	}
}

func TestGroupByMissingColumn(t *testing.T) {
	tbl := purchasesTable(t)
	_, err := GroupBy(tbl, GroupByOptions{
		Keys: []string{"nope"},
		Aggs: []Aggregation{{Column: "usd_value", Op: ReduceSum}},
	})
	if err == nil {
		t.Fatal("GroupBy with missing key: expected error, got nil")
	}
}

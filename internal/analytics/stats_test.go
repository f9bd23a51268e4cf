package analytics

import (
	"math"
	"testing"
)

func TestQuantile(t *testing.T) {
	values := []float64{3, 1, 4, 2}

	tests := []struct {
		q    float64
		want float64
	}{
		{0, 1},
		{0.25, 1.75},
		{0.5, 2.5},
		{0.75, 3.25},
		{1, 4},
	}
	for _, tt := range tests {
		if got := Quantile(values, tt.q); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("Quantile(%v) = %v, want %v", tt.q, got, tt.want)
		}
	}
}

func TestQuantileSingleValue(t *testing.T) {
	if got := Quantile([]float64{7}, 0.5); got != 7 {
		t.Errorf("Quantile(0.5) = %v, want 7", got)
	}
}

func TestQuantileEmpty(t *testing.T) {
	if got := Quantile(nil, 0.5); !math.IsNaN(got) {
		t.Errorf("Quantile on empty input = %v, want NaN", got)
	}
}

func TestMean(t *testing.T) {
	if got := Mean([]float64{1, 2, 3, 4}); got != 2.5 {
		t.Errorf("Mean = %v, want 2.5", got)
	}
	if got := Mean(nil); !math.IsNaN(got) {
		t.Errorf("Mean on empty input = %v, want NaN", got)
	}
}

func TestHistogram(t *testing.T) {
	values := []float64{0, 1, 2, 3, 4, 5, 10, -1, 11}
	mids, counts := Histogram(values, 0, 10, 5)

	if len(mids) != 5 || len(counts) != 5 {
		t.Fatalf("got %d mids, %d counts, want 5 each", len(mids), len(counts))
	}
	if mids[0] != 1 || mids[4] != 9 {
		t.Errorf("mids = %v, want first 1 and last 9", mids)
	}
	// -1 and 11 fall outside; 10 lands in the right-closed last bin.
	wantCounts := []int{2, 2, 2, 0, 1}
	for i, want := range wantCounts {
		if counts[i] != want {
			t.Errorf("counts[%d] = %d, want %d", i, counts[i], want)
		}
	}
}

func TestPercentileRank(t *testing.T) {
	ref := []float64{1, 2, 3, 4, 5}

	tests := []struct {
		v    float64
		want float64
	}{
		{3, 50},   // two below, one equal
		{1, 10},   // none below, one equal
		{5, 90},   // four below, one equal
		{0, 0},    // below everything
		{100, 100}, // above everything
	}
	for _, tt := range tests {
		if got := PercentileRank(ref, tt.v); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("PercentileRank(%v) = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestPercentileRankEmptyReference(t *testing.T) {
	if got := PercentileRank(nil, 42); got != 50 {
		t.Errorf("PercentileRank on empty reference = %v, want 50", got)
	}
}

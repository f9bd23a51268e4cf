package analytics

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/gamebrain/shoplens/internal/table"
)

// SegmentOptions configures k-means segmentation.
type SegmentOptions struct {
	K             int
	Seed          int64 // fixed seed so repeated runs over the same table agree
	MaxIterations int   // 0 means 100
	RankColumn    string
	Labels        []string // ascending by RankColumn mean; len must be K or 0
}

// SegmentResult carries the per-row labels plus cluster-level summaries.
// RowLabels is aligned with the input table; rows excluded for a null feature
// hold "".
type SegmentResult struct {
	RowLabels    []string
	ClusterNames []string             // ascending RankColumn order
	Centroids    map[string][]float64 // raw feature space, keyed by cluster name
	Sizes        map[string]int
	Features     []string // features actually clustered on
	Excluded     []string // zero-variance features dropped before clustering
	Iterations   int
}

// Segment partitions the table's complete rows into K clusters over the given
// feature columns. Features are standardized to zero mean and unit population
// variance first so no single scale dominates the distance; zero-variance
// features are dropped and reported rather than failing the run. Cluster
// names follow ascending mean of the raw RankColumn, so the same data always
// yields the same name for the low-spend and high-spend groups no matter
// which centroid the seed landed where.
func Segment(t *table.Table, features []string, opt SegmentOptions) (*SegmentResult, error) {
	if opt.K < 2 {
		return nil, fmt.Errorf("segment: K = %d, want at least 2", opt.K)
	}
	if len(opt.Labels) != 0 && len(opt.Labels) != opt.K {
		return nil, fmt.Errorf("segment: %d labels for K = %d clusters", len(opt.Labels), opt.K)
	}
	if err := t.Require(append(append([]string(nil), features...), opt.RankColumn)...); err != nil {
		return nil, err
	}
	maxIter := opt.MaxIterations
	if maxIter == 0 {
		maxIter = 100
	}

	featVals := make([][]float64, len(features))
	featValid := make([][]bool, len(features))
	for i, f := range features {
		vals, valid, err := t.Floats(f)
		if err != nil {
			return nil, err
		}
		featVals[i], featValid[i] = vals, valid
	}
	rankVals, rankValid, err := t.Floats(opt.RankColumn)
	if err != nil {
		return nil, err
	}

	// Complete-case rows only.
	var rows []int
	for row := 0; row < t.Len(); row++ {
		ok := rankValid[row]
		for i := range features {
			if !featValid[i][row] {
				ok = false
				break
			}
		}
		if ok {
			rows = append(rows, row)
		}
	}
	if len(rows) < opt.K {
		return nil, &InsufficientDataError{Op: "segment", Need: opt.K, Got: len(rows)}
	}

	// Standardize, dropping degenerate features.
	var kept []string
	var keptRaw [][]float64
	var points [][]float64 // points[j] = standardized feature vector of rows[j]
	var excluded []string
	for i, f := range features {
		raw := make([]float64, len(rows))
		for j, row := range rows {
			raw[j] = featVals[i][row]
		}
		mean := Mean(raw)
		std := popStdDev(raw, mean)
		if std == 0 {
			excluded = append(excluded, f)
			continue
		}
		kept = append(kept, f)
		keptRaw = append(keptRaw, raw)
		std1 := make([]float64, len(raw))
		for j, v := range raw {
			std1[j] = (v - mean) / std
		}
		if points == nil {
			points = make([][]float64, len(rows))
			for j := range points {
				points[j] = make([]float64, 0, len(features))
			}
		}
		for j := range points {
			points[j] = append(points[j], std1[j])
		}
	}
	if len(kept) == 0 {
		return nil, &DegenerateDistributionError{Column: features[0]}
	}

	assign, iters := kmeans(points, opt.K, opt.Seed, maxIter)

	// Order clusters by ascending raw RankColumn mean.
	rankIdx := -1
	for i, f := range kept {
		if f == opt.RankColumn {
			rankIdx = i
		}
	}
	rankMean := make([]float64, opt.K)
	sizes := make([]int, opt.K)
	for j, c := range assign {
		if rankIdx >= 0 {
			rankMean[c] += keptRaw[rankIdx][j]
		} else {
			rankMean[c] += rankVals[rows[j]]
		}
		sizes[c]++
	}
	for c := range rankMean {
		if sizes[c] > 0 {
			rankMean[c] /= float64(sizes[c])
		} else {
			rankMean[c] = math.Inf(1)
		}
	}
	byRank := make([]int, opt.K)
	for c := range byRank {
		byRank[c] = c
	}
	sort.SliceStable(byRank, func(a, b int) bool { return rankMean[byRank[a]] < rankMean[byRank[b]] })

	names := make([]string, opt.K) // names[cluster] = label
	ordered := make([]string, 0, opt.K)
	for pos, c := range byRank {
		label := fmt.Sprintf("Tier %d", pos+1)
		if len(opt.Labels) == opt.K {
			label = opt.Labels[pos]
		}
		names[c] = label
		if sizes[c] > 0 {
			ordered = append(ordered, label)
		}
	}

	res := &SegmentResult{
		RowLabels:    make([]string, t.Len()),
		ClusterNames: ordered,
		Centroids:    make(map[string][]float64, opt.K),
		Sizes:        make(map[string]int, opt.K),
		Features:     kept,
		Excluded:     excluded,
		Iterations:   iters,
	}
	rawSum := make([][]float64, opt.K)
	for c := range rawSum {
		rawSum[c] = make([]float64, len(kept))
	}
	for j, c := range assign {
		res.RowLabels[rows[j]] = names[c]
		for i := range kept {
			rawSum[c][i] += keptRaw[i][j]
		}
	}
	for c := 0; c < opt.K; c++ {
		if sizes[c] == 0 {
			continue
		}
		centroid := make([]float64, len(kept))
		for i := range kept {
			centroid[i] = rawSum[c][i] / float64(sizes[c])
		}
		res.Centroids[names[c]] = centroid
		res.Sizes[names[c]] = sizes[c]
	}
	return res, nil
}

// kmeans is Lloyd's algorithm with seeded random initialization. An empty
// cluster is reseeded to the point farthest from its current center.
func kmeans(points [][]float64, k int, seed int64, maxIter int) (assign []int, iters int) {
	rng := rand.New(rand.NewSource(seed))
	n := len(points)
	dim := len(points[0])

	centers := make([][]float64, k)
	perm := rng.Perm(n)
	for c := 0; c < k; c++ {
		centers[c] = append([]float64(nil), points[perm[c]]...)
	}

	assign = make([]int, n)
	for iters = 1; iters <= maxIter; iters++ {
		changed := false
		for j, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c := range centers {
				if d := sqDist(p, centers[c]); d < bestDist {
					best, bestDist = c, d
				}
			}
			if assign[j] != best {
				assign[j] = best
				changed = true
			}
		}
		if !changed && iters > 1 {
			break
		}

		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for j, p := range points {
			c := assign[j]
			counts[c]++
			for d := range p {
				sums[c][d] += p[d]
			}
		}
		for c := 0; c < k; c++ {
			if counts[c] == 0 {
				far, farDist := 0, -1.0
				for j, p := range points {
					if d := sqDist(p, centers[assign[j]]); d > farDist {
						far, farDist = j, d
					}
				}
				centers[c] = append([]float64(nil), points[far]...)
				assign[far] = c
				continue
			}
			for d := 0; d < dim; d++ {
				centers[c][d] = sums[c][d] / float64(counts[c])
			}
		}
	}
	return assign, iters
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

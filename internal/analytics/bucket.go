package analytics

import (
	"fmt"
	"math"

	"github.com/gamebrain/shoplens/internal/table"
)

// BucketConfig declares an ordered set of bins over a continuous value.
// Bins are left-open/right-closed: a value v lands in bin i when
// Edges[i] < v <= Edges[i+1]. With IncludeLowest, a value exactly equal to
// Edges[0] lands in the first bin. Values above the last edge map to
// OpenLabel when set, otherwise they get no label. Adjacent bins may share a
// label; downstream grouping is by label, so shared labels merge into one
// bucket.
type BucketConfig struct {
	Edges         []float64 // len(Labels)+1, strictly ascending
	Labels        []string
	OpenLabel     string
	IncludeLowest bool
}

// Bucketizer maps values to labels from a fixed ordered vocabulary.
type Bucketizer struct {
	cfg BucketConfig
}

// NewBucketizer validates the bin configuration.
func NewBucketizer(cfg BucketConfig) (*Bucketizer, error) {
	if len(cfg.Edges) != len(cfg.Labels)+1 {
		return nil, fmt.Errorf("bucketizer: %d edges for %d labels, want labels+1", len(cfg.Edges), len(cfg.Labels))
	}
	for i := 1; i < len(cfg.Edges); i++ {
		if cfg.Edges[i] <= cfg.Edges[i-1] {
			return nil, fmt.Errorf("bucketizer: edges not ascending at %d", i)
		}
	}
	return &Bucketizer{cfg: cfg}, nil
}

// Label maps one value. The second return is false when the value gets no
// label (NaN, below the lowest edge, or above the last edge with no open
// label); such rows are excluded from bucketed aggregations.
func (b *Bucketizer) Label(v float64) (string, bool) {
	if math.IsNaN(v) {
		return "", false
	}
	edges, labels := b.cfg.Edges, b.cfg.Labels
	if v < edges[0] || (v == edges[0] && !b.cfg.IncludeLowest) {
		return "", false
	}
	if v == edges[0] {
		return labels[0], true
	}
	for i := 1; i < len(edges); i++ {
		if v <= edges[i] {
			return labels[i-1], true
		}
	}
	if b.cfg.OpenLabel != "" {
		return b.cfg.OpenLabel, true
	}
	return "", false
}

// Vocabulary returns the distinct labels in bin order (shared labels once,
// at their first position), with the open-ended label last.
func (b *Bucketizer) Vocabulary() []string {
	var out []string
	seen := make(map[string]bool)
	for _, l := range b.cfg.Labels {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	if b.cfg.OpenLabel != "" && !seen[b.cfg.OpenLabel] {
		out = append(out, b.cfg.OpenLabel)
	}
	return out
}

// Apply attaches a label column named dst derived from the float column src.
// Rows whose value gets no label carry a null in dst.
func (b *Bucketizer) Apply(t *table.Table, src, dst string) (*table.Table, error) {
	values, valid, err := t.Floats(src)
	if err != nil {
		return nil, err
	}
	out := table.NewColumn(dst, table.KindString, t.Len())
	for i := range values {
		if !valid[i] {
			continue
		}
		if label, ok := b.Label(values[i]); ok {
			out.SetString(i, label)
		}
	}
	return t.WithColumn(out)
}

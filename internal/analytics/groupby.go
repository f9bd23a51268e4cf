package analytics

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gamebrain/shoplens/internal/table"
)

// Reducer names a per-group reduction.
type Reducer string

const (
	ReduceSum   Reducer = "sum"
	ReduceMean  Reducer = "mean"
	ReduceCount Reducer = "count" // non-null count
	ReduceFirst Reducer = "first" // row with the minimum OrderBy value
	ReduceMax   Reducer = "max"
)

// Aggregation maps one source column through one reducer into an output
// column. As defaults to "<column>_<op>".
type Aggregation struct {
	Column string
	Op     Reducer
	As     string
}

func (a Aggregation) name() string {
	if a.As != "" {
		return a.As
	}
	return a.Column + "_" + string(a.Op)
}

// GroupByOptions configures a grouped aggregation.
type GroupByOptions struct {
	Keys    []string
	OrderBy string // required when any aggregation uses ReduceFirst
	Aggs    []Aggregation
}

// GroupBy produces one output row per distinct key, in first-seen key order,
// so identical inputs yield byte-identical output ordering regardless of map
// iteration. Rows with a null key are excluded. Null aggregation inputs are
// skipped by every reducer; a key whose aggregation inputs are all null is
// dropped. ReduceFirst selects the group's row with the minimum OrderBy
// value, ties broken by input order.
func GroupBy(t *table.Table, opt GroupByOptions) (*table.Table, error) {
	if len(opt.Keys) == 0 {
		return nil, fmt.Errorf("groupby: no grouping keys")
	}
	cols := append([]string(nil), opt.Keys...)
	for _, a := range opt.Aggs {
		cols = append(cols, a.Column)
	}
	needFirst := false
	for _, a := range opt.Aggs {
		if a.Op == ReduceFirst {
			needFirst = true
		}
	}
	if needFirst {
		if opt.OrderBy == "" {
			return nil, fmt.Errorf("groupby: first reducer requires an ordering column")
		}
		cols = append(cols, opt.OrderBy)
	}
	if err := t.Require(cols...); err != nil {
		return nil, err
	}

	keyParts := make([]func(row int) (string, bool), len(opt.Keys))
	for i, k := range opt.Keys {
		part, err := keyFunc(t, k)
		if err != nil {
			return nil, err
		}
		keyParts[i] = part
	}

	order, err := orderFunc(t, opt.OrderBy, needFirst)
	if err != nil {
		return nil, err
	}

	type aggState struct {
		sum      float64
		count    int
		max      float64
		hasMax   bool
		firstRow int
		firstOrd float64
		hasFirst bool
	}
	type group struct {
		firstRow int
		states   []aggState
		anyInput bool
	}

	aggVals := make([][]float64, len(opt.Aggs))
	aggValid := make([][]bool, len(opt.Aggs))
	for i, a := range opt.Aggs {
		if vals, valid, ferr := t.Floats(a.Column); ferr == nil {
			aggVals[i], aggValid[i] = vals, valid
			continue
		}
		if a.Op != ReduceFirst && a.Op != ReduceCount {
			return nil, fmt.Errorf("groupby: %s reducer needs a numeric column, %q is not", a.Op, a.Column)
		}
		aggValid[i] = validMask(t, a.Column)
	}

	groups := make(map[string]*group)
	var keyOrder []string

	for row := 0; row < t.Len(); row++ {
		var sb strings.Builder
		ok := true
		for i, part := range keyParts {
			s, valid := part(row)
			if !valid {
				ok = false
				break
			}
			if i > 0 {
				sb.WriteByte(0x1f)
			}
			sb.WriteString(s)
		}
		if !ok {
			continue
		}
		key := sb.String()

		g, exists := groups[key]
		if !exists {
			g = &group{firstRow: row, states: make([]aggState, len(opt.Aggs))}
			groups[key] = g
			keyOrder = append(keyOrder, key)
		}

		for i := range opt.Aggs {
			st := &g.states[i]
			valid := aggValid[i][row]
			if valid {
				g.anyInput = true
			}
			switch opt.Aggs[i].Op {
			case ReduceSum, ReduceMean:
				if valid {
					st.sum += aggVals[i][row]
					st.count++
				}
			case ReduceCount:
				if valid {
					st.count++
				}
			case ReduceMax:
				if valid && (!st.hasMax || aggVals[i][row] > st.max) {
					st.max = aggVals[i][row]
					st.hasMax = true
				}
			case ReduceFirst:
				ord, ordValid := order(row)
				if !ordValid {
					break
				}
				if !st.hasFirst || ord < st.firstOrd {
					st.firstRow = row
					st.firstOrd = ord
					st.hasFirst = true
				}
			default:
				return nil, fmt.Errorf("groupby: unknown reducer %q", opt.Aggs[i].Op)
			}
		}
	}

	// Assemble output rows in first-seen key order, dropping keys whose
	// aggregation inputs were all null.
	var emit []*group
	for _, key := range keyOrder {
		g := groups[key]
		if len(opt.Aggs) > 0 && !g.anyInput {
			continue
		}
		emit = append(emit, g)
	}

	keyRows := make([]int, len(emit))
	for i, g := range emit {
		keyRows[i] = g.firstRow
	}
	out := t.Select(keyRows)
	keep := append([]string(nil), opt.Keys...)
	out = project(out, keep)

	for i, a := range opt.Aggs {
		var col *table.Column
		switch a.Op {
		case ReduceFirst:
			rows := make([]int, len(emit))
			nulls := make([]bool, len(emit))
			for j, g := range emit {
				st := g.states[i]
				if st.hasFirst {
					rows[j] = st.firstRow
				} else {
					rows[j] = g.firstRow
					nulls[j] = true
				}
			}
			col = firstColumn(t, a.Column, a.name(), rows, nulls)
		default:
			col = table.NewColumn(a.name(), table.KindFloat, len(emit))
			for j, g := range emit {
				st := g.states[i]
				switch a.Op {
				case ReduceSum:
					if st.count > 0 {
						col.SetFloat(j, st.sum)
					}
				case ReduceMean:
					if st.count > 0 {
						col.SetFloat(j, st.sum/float64(st.count))
					}
				case ReduceCount:
					col.SetFloat(j, float64(st.count))
				case ReduceMax:
					if st.hasMax {
						col.SetFloat(j, st.max)
					}
				}
			}
		}
		var werr error
		out, werr = out.WithColumn(col)
		if werr != nil {
			return nil, werr
		}
	}
	return out, nil
}

// keyFunc returns a stringifier for one key column; the bool reports whether
// the row's key value is non-null.
func keyFunc(t *table.Table, name string) (func(row int) (string, bool), error) {
	if vals, valid, err := t.Strings(name); err == nil {
		return func(row int) (string, bool) { return vals[row], valid[row] }, nil
	}
	if vals, valid, err := t.Floats(name); err == nil {
		return func(row int) (string, bool) {
			return strconv.FormatFloat(vals[row], 'g', -1, 64), valid[row]
		}, nil
	}
	if vals, valid, err := t.Times(name); err == nil {
		return func(row int) (string, bool) {
			return strconv.FormatInt(vals[row].UnixNano(), 10), valid[row]
		}, nil
	}
	return nil, fmt.Errorf("groupby: unsupported key column %q", name)
}

// orderFunc maps rows to a comparable ordering value from a float or time
// column.
func orderFunc(t *table.Table, name string, need bool) (func(row int) (float64, bool), error) {
	if !need {
		return func(int) (float64, bool) { return math.NaN(), false }, nil
	}
	if vals, valid, err := t.Floats(name); err == nil {
		return func(row int) (float64, bool) { return vals[row], valid[row] }, nil
	}
	if vals, valid, err := t.Times(name); err == nil {
		return func(row int) (float64, bool) {
			return float64(vals[row].UnixNano()), valid[row]
		}, nil
	}
	return nil, fmt.Errorf("groupby: unsupported ordering column %q", name)
}

// validMask returns the validity slice of any column kind.
func validMask(t *table.Table, name string) []bool {
	if _, valid, err := t.Strings(name); err == nil {
		return valid
	}
	if _, valid, err := t.Floats(name); err == nil {
		return valid
	}
	_, valid, _ := t.Times(name)
	return valid
}

// firstColumn materializes a ReduceFirst output preserving the source kind.
func firstColumn(t *table.Table, src, dst string, rows []int, nulls []bool) *table.Column {
	if vals, valid, err := t.Strings(src); err == nil {
		c := table.NewColumn(dst, table.KindString, len(rows))
		for j, r := range rows {
			if !nulls[j] && valid[r] {
				c.SetString(j, vals[r])
			}
		}
		return c
	}
	if vals, valid, err := t.Floats(src); err == nil {
		c := table.NewColumn(dst, table.KindFloat, len(rows))
		for j, r := range rows {
			if !nulls[j] && valid[r] {
				c.SetFloat(j, vals[r])
			}
		}
		return c
	}
	vals, valid, _ := t.Times(src)
	c := table.NewColumn(dst, table.KindTime, len(rows))
	for j, r := range rows {
		if !nulls[j] && valid[r] {
			c.SetTime(j, vals[r])
		}
	}
	return c
}

// project keeps only the named columns, in order.
func project(t *table.Table, names []string) *table.Table {
	// Tables are immutable; rebuild from the kept columns.
	cols := make([]*table.Column, 0, len(names))
	for _, n := range names {
		cols = append(cols, rawColumn(t, n))
	}
	out, _ := table.New(cols...)
	return out
}

func rawColumn(t *table.Table, name string) *table.Column {
	if vals, valid, err := t.Strings(name); err == nil {
		return table.StringColumn(name, vals, valid)
	}
	if vals, valid, err := t.Floats(name); err == nil {
		return table.FloatColumn(name, vals, valid)
	}
	vals, valid, _ := t.Times(name)
	return table.TimeColumn(name, vals, valid)
}

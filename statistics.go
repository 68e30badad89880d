package forcelog

import (
	"fmt"
	"math"
	"sort"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GroupBy selects the grouping key used by Aggregate
type GroupBy int

const (
	ByHeadTarget GroupBy = iota
	ByTableHeadTarget
)

func (g GroupBy) String() string {
	switch g {
	case ByHeadTarget:
		return "head,target"
	case ByTableHeadTarget:
		return "table,head,target"
	}
	return fmt.Sprintf("GroupBy(%d)", int(g))
}

func ParseGroupBy(s string) (GroupBy, error) {
	switch s {
	case "head,target", "head-target", "":
		return ByHeadTarget, nil
	case "table,head,target", "table-head-target":
		return ByTableHeadTarget, nil
	}
	return 0, fmt.Errorf("unknown grouping %q", s)
}

// Filter restricts rows before aggregation. Zero values match everything.
type Filter struct {
	Table string
	Head  int
}

func (f Filter) Match(row Row) bool {
	if f.Table != "" && row.Table != f.Table {
		return false
	}
	if f.Head != 0 && row.Head != f.Head {
		return false
	}
	return true
}

// GroupStatistics summarizes the results of one group. Table is empty when
// grouped by head and target only. ThreeSigma is NaN for single samples, so
// use View for JSON output.
type GroupStatistics struct {
	Table      string
	Head       int
	Target     float64
	Count      int
	Mean       float64
	Max        float64
	Min        float64
	Range      float64
	ThreeSigma float64
	Limits     Limits

	// box summary
	Median      float64
	Q1          float64
	Q3          float64
	WhiskerLow  float64
	WhiskerHigh float64
	Outliers    []float64
}

// SigmaDefined reports whether the sample standard deviation was computable
func (s GroupStatistics) SigmaDefined() bool {
	return !math.IsNaN(s.ThreeSigma)
}

func (s GroupStatistics) MaxOutOfTolerance() bool {
	return s.Limits.Above(s.Max) || s.Limits.Below(s.Max)
}

func (s GroupStatistics) MinOutOfTolerance() bool {
	return s.Limits.Above(s.Min) || s.Limits.Below(s.Min)
}

// OutOfTolerance reports whether any result of the group lies outside its
// limits. Groups without limits are never out of tolerance.
func (s GroupStatistics) OutOfTolerance() bool {
	return s.MaxOutOfTolerance() || s.MinOutOfTolerance()
}

// group accumulates the results of a single group key
type group struct {
	key    groupKey
	values []float64
}

func (g *group) finalize() GroupStatistics {
	s := GroupStatistics{
		Table:  g.key.table,
		Head:   g.key.head,
		Target: g.key.target,
		Count:  len(g.values),
		Limits: ResolveLimits(g.key.target),
	}

	s.Mean = stat.Mean(g.values, nil)
	s.Max = floats.Max(g.values)
	s.Min = floats.Min(g.values)
	s.Range = s.Max - s.Min

	if s.Count < 2 {
		s.ThreeSigma = math.NaN()
	} else {
		s.ThreeSigma = 3 * stat.StdDev(g.values, nil)
	}

	s.Median, s.Q1, s.Q3 = quartiles(g.values)
	s.WhiskerLow, s.WhiskerHigh, s.Outliers = whiskers(g.values, s.Q1, s.Q3)

	return s
}

func quartiles(values []float64) (median, q1, q3 float64) {
	if len(values) < 2 {
		return values[0], values[0], values[0]
	}

	q, err := stats.Quartile(values)
	if err != nil {
		nan := math.NaN()
		return nan, nan, nan
	}
	return q.Q2, q.Q1, q.Q3
}

// whiskers extend to the furthest results within 1.5 IQR of the quartiles
func whiskers(values []float64, q1, q3 float64) (low, high float64, outliers []float64) {
	iqr := q3 - q1
	lowFence := q1 - 1.5*iqr
	highFence := q3 + 1.5*iqr

	low, high = math.Inf(1), math.Inf(-1)
	outliers = make([]float64, 0)
	for _, v := range values {
		if v < lowFence || v > highFence {
			outliers = append(outliers, v)
			continue
		}
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
	}
	sort.Float64s(outliers)

	return low, high, outliers
}

// Aggregate computes statistics for every group of rows matching filter.
// Groups are ordered by table, head and target.
func Aggregate(rows []Row, by GroupBy, filter Filter) []GroupStatistics {
	groups := make(map[groupKey]*group)
	for _, row := range rows {
		if !filter.Match(row) {
			continue
		}

		k := row.key()
		if by == ByHeadTarget {
			k.table = ""
		}

		g, ok := groups[k]
		if !ok {
			g = &group{key: k}
			groups[k] = g
		}
		g.values = append(g.values, row.Result)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].less(keys[j])
	})

	statistics := make([]GroupStatistics, 0, len(keys))
	for _, k := range keys {
		statistics = append(statistics, groups[k].finalize())
	}

	return statistics
}

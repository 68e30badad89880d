package forcelog

import (
	"math"
	"strconv"
)

const (
	DefaultPrecision = 2
	NotComputable    = "n/a"
)

// Round rounds v half away from zero to the given number of decimal digits.
// NaN and infinities are returned unchanged.
func Round(v float64, precision int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}

	scale := math.Pow(10, float64(precision))
	return math.Round(v*scale) / scale
}

// FormatValue renders v with a fixed number of decimal digits
func FormatValue(v float64, precision int) string {
	if math.IsNaN(v) {
		return NotComputable
	}
	return strconv.FormatFloat(Round(v, precision), 'f', precision, 64)
}

// RoundedValue is a presentation value which encodes NaN as JSON null
type RoundedValue float64

func (v RoundedValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
}

// StatisticsView is GroupStatistics rounded for presentation
type StatisticsView struct {
	Table          string       `json:"table,omitempty"`
	Head           int          `json:"head"`
	Target         float64      `json:"target"`
	Count          int          `json:"count"`
	Mean           RoundedValue `json:"mean"`
	Max            RoundedValue `json:"max"`
	Min            RoundedValue `json:"min"`
	Range          RoundedValue `json:"range"`
	ThreeSigma     RoundedValue `json:"three_sigma"`
	LowerLimit     *float64     `json:"lower_limit"`
	UpperLimit     *float64     `json:"upper_limit"`
	MaxOut         bool         `json:"max_out_of_tolerance"`
	MinOut         bool         `json:"min_out_of_tolerance"`
	OutOfTolerance bool         `json:"out_of_tolerance"`
}

func (s GroupStatistics) View(precision int) StatisticsView {
	view := StatisticsView{
		Table:          s.Table,
		Head:           s.Head,
		Target:         s.Target,
		Count:          s.Count,
		Mean:           RoundedValue(Round(s.Mean, precision)),
		Max:            RoundedValue(Round(s.Max, precision)),
		Min:            RoundedValue(Round(s.Min, precision)),
		Range:          RoundedValue(Round(s.Range, precision)),
		ThreeSigma:     RoundedValue(Round(s.ThreeSigma, precision)),
		MaxOut:         s.MaxOutOfTolerance(),
		MinOut:         s.MinOutOfTolerance(),
		OutOfTolerance: s.OutOfTolerance(),
	}
	if s.Limits.Defined {
		lower := Round(s.Limits.Lower, precision)
		upper := Round(s.Limits.Upper, precision)
		view.LowerLimit = &lower
		view.UpperLimit = &upper
	}

	return view
}

func Views(statistics []GroupStatistics, precision int) []StatisticsView {
	views := make([]StatisticsView, 0, len(statistics))
	for _, s := range statistics {
		views = append(views, s.View(precision))
	}
	return views
}

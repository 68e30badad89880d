package forcelog

import (
	"encoding/json"
)

// Calibration ranges of the rig. Targets outside both ranges have no
// tolerance band.
const (
	AbsoluteRangeMin = 2.8
	AbsoluteRangeMax = 5.0
	AbsoluteBand     = 0.5

	RelativeRangeMin = 8.0
	RelativeRangeMax = 35.0
	RelativeLower    = 0.9
	RelativeUpper    = 1.1
)

// Limits is the tolerance band of a target value. When Defined is false the
// target lies outside the known calibration ranges and pass/fail cannot be
// evaluated.
type Limits struct {
	Lower   float64
	Upper   float64
	Defined bool
}

// ResolveLimits maps a nominal target to its tolerance band
func ResolveLimits(target float64) Limits {
	switch {
	case AbsoluteRangeMin <= target && target <= AbsoluteRangeMax:
		return Limits{
			Lower:   target - AbsoluteBand,
			Upper:   target + AbsoluteBand,
			Defined: true,
		}
	case RelativeRangeMin <= target && target <= RelativeRangeMax:
		return Limits{
			Lower:   target * RelativeLower,
			Upper:   target * RelativeUpper,
			Defined: true,
		}
	}

	return Limits{}
}

// Below reports whether v falls under the lower limit. Always false for
// undefined limits.
func (l Limits) Below(v float64) bool {
	return l.Defined && v < l.Lower
}

// Above reports whether v exceeds the upper limit. Always false for undefined
// limits.
func (l Limits) Above(v float64) bool {
	return l.Defined && v > l.Upper
}

func (l Limits) Contains(v float64) bool {
	return !l.Below(v) && !l.Above(v)
}

func (l Limits) MarshalJSON() ([]byte, error) {
	bounds := struct {
		Lower *float64 `json:"lower"`
		Upper *float64 `json:"upper"`
	}{}
	if l.Defined {
		bounds.Lower = &l.Lower
		bounds.Upper = &l.Upper
	}

	return json.Marshal(bounds)
}

// Package plot builds scatter and box figures from normalized rig data and
// renders them with go-chart.
package plot

import (
	"errors"
	"fmt"
)

// Fixed y-axis of scatter figures, in result units
const (
	ScatterYMin = 0.0
	ScatterYMax = 40.0
)

var ErrEmptyFigure = errors.New("figure has no data")

type Range struct {
	Min float64
	Max float64
}

// ScatterTrace is one marker series of a scatter figure
type ScatterTrace struct {
	Name string
	X    []float64
	Y    []float64
}

// BoxTrace summarizes the results of one target
type BoxTrace struct {
	Name        string
	Target      float64
	Median      float64
	Q1          float64
	Q3          float64
	WhiskerLow  float64
	WhiskerHigh float64
	Mean        float64
	Outliers    []float64
}

type Kind int

const (
	KindScatter Kind = iota
	KindBox
)

func (k Kind) String() string {
	switch k {
	case KindScatter:
		return "scatter"
	case KindBox:
		return "box"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Figure is a renderer independent chart description
type Figure struct {
	Kind   Kind
	Title  string
	XLabel string
	YLabel string
	YRange *Range

	Scatter []ScatterTrace
	Boxes   []BoxTrace
}

func (f Figure) Empty() bool {
	return len(f.Scatter) == 0 && len(f.Boxes) == 0
}

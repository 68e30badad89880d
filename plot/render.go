package plot

import (
	"fmt"
	"io"
	"math"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	DefaultWidth  = 640
	DefaultHeight = 400

	boxHalfWidth = 0.3
)

type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPNG, "":
		return FormatPNG, nil
	case FormatSVG:
		return FormatSVG, nil
	}
	return "", fmt.Errorf("unknown format %q", s)
}

func (f Format) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

func (f Format) provider() chart.RendererProvider {
	if f == FormatSVG {
		return chart.SVG
	}
	return chart.PNG
}

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorAlternateGray,
}

func traceColor(i int) drawing.Color {
	return palette[i%len(palette)]
}

// pointStyle renders points only, without connecting lines
func pointStyle(col drawing.Color, width float64) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    width,
		DotColor:    col,
	}
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: 1.5,
		StrokeColor: col,
	}
}

// Render draws fig with go-chart. Width and height fall back to the defaults
// when zero.
func Render(w io.Writer, fig Figure, format Format, width, height int) error {
	if fig.Empty() {
		return ErrEmptyFigure
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	var ch chart.Chart
	switch fig.Kind {
	case KindScatter:
		ch = scatterChart(fig)
	case KindBox:
		ch = boxChart(fig)
	default:
		return fmt.Errorf("unknown figure kind: %s", fig.Kind)
	}

	ch.Title = fig.Title
	ch.Width = width
	ch.Height = height
	ch.Background = chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}

	if err := ch.Render(format.provider(), w); err != nil {
		return fmt.Errorf("render %s: %w", fig.Kind, err)
	}
	return nil
}

func scatterChart(fig Figure) chart.Chart {
	series := make([]chart.Series, 0, len(fig.Scatter))
	maxX := 1.0
	for i, trace := range fig.Scatter {
		for _, x := range trace.X {
			maxX = math.Max(maxX, x)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    trace.Name,
			XValues: trace.X,
			YValues: trace.Y,
			Style:   pointStyle(traceColor(i), 4),
		})
	}

	yRange := &chart.ContinuousRange{Min: ScatterYMin, Max: ScatterYMax}
	if fig.YRange != nil {
		yRange = &chart.ContinuousRange{Min: fig.YRange.Min, Max: fig.YRange.Max}
	}

	return chart.Chart{
		// an explicit x range keeps single point traces renderable
		XAxis:  chart.XAxis{Name: fig.XLabel, Range: &chart.ContinuousRange{Min: 0, Max: maxX + 1}},
		YAxis:  chart.YAxis{Name: fig.YLabel, Range: yRange},
		Series: series,
	}
}

func boxChart(fig Figure) chart.Chart {
	series := make([]chart.Series, 0, len(fig.Boxes)*7)
	// go-chart spans the axis over its ticks, so unlabeled edge ticks keep a
	// single box at a nonzero width
	ticks := make([]chart.Tick, 0, len(fig.Boxes)+2)
	ticks = append(ticks, chart.Tick{Value: 0.5})
	low, high := math.Inf(1), math.Inf(-1)

	for i, box := range fig.Boxes {
		x := float64(i + 1)
		col := traceColor(i)
		ticks = append(ticks, chart.Tick{Value: x, Label: strconv.FormatFloat(box.Target, 'f', -1, 64)})

		left, right := x-boxHalfWidth, x+boxHalfWidth
		capLeft, capRight := x-boxHalfWidth/2, x+boxHalfWidth/2
		series = append(series,
			chart.ContinuousSeries{
				Name:    box.Name,
				XValues: []float64{left, right, right, left, left},
				YValues: []float64{box.Q1, box.Q1, box.Q3, box.Q3, box.Q1},
				Style:   lineStyle(col),
			},
			chart.ContinuousSeries{
				XValues: []float64{left, right},
				YValues: []float64{box.Median, box.Median},
				Style:   lineStyle(col),
			},
			chart.ContinuousSeries{
				XValues: []float64{x, x, capLeft, capRight},
				YValues: []float64{box.Q1, box.WhiskerLow, box.WhiskerLow, box.WhiskerLow},
				Style:   lineStyle(col),
			},
			chart.ContinuousSeries{
				XValues: []float64{x, x, capLeft, capRight},
				YValues: []float64{box.Q3, box.WhiskerHigh, box.WhiskerHigh, box.WhiskerHigh},
				Style:   lineStyle(col),
			},
			chart.ContinuousSeries{
				Name:    box.Name + " mean",
				XValues: []float64{x},
				YValues: []float64{box.Mean},
				Style:   pointStyle(col, 6),
			},
		)

		low = math.Min(low, box.WhiskerLow)
		high = math.Max(high, box.WhiskerHigh)
		if len(box.Outliers) > 0 {
			xs := make([]float64, len(box.Outliers))
			for j := range xs {
				xs[j] = x
			}
			series = append(series, chart.ContinuousSeries{
				Name:    box.Name + " outliers",
				XValues: xs,
				YValues: box.Outliers,
				Style:   pointStyle(col, 3),
			})
			low = math.Min(low, box.Outliers[0])
			high = math.Max(high, box.Outliers[len(box.Outliers)-1])
		}
	}

	ticks = append(ticks, chart.Tick{Value: float64(len(fig.Boxes)) + 0.5})

	pad := (high - low) * 0.05
	if pad == 0 {
		pad = 1
	}

	return chart.Chart{
		XAxis: chart.XAxis{
			Name:  fig.XLabel,
			Range: &chart.ContinuousRange{Min: 0.5, Max: float64(len(fig.Boxes)) + 0.5},
			Ticks: ticks,
		},
		YAxis:  chart.YAxis{Name: fig.YLabel, Range: &chart.ContinuousRange{Min: low - pad, Max: high + pad}},
		Series: series,
	}
}

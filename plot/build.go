package plot

import (
	"fmt"
	"strconv"

	"github.com/subtlepseudonym/forcelog"
)

func targetName(target float64) string {
	return "Target " + strconv.FormatFloat(target, 'f', -1, 64)
}

// BuildScatter plots the results of one head of table against their
// measurement index, one trace per target in order of first appearance
func BuildScatter(rows []forcelog.Row, table string, head int) Figure {
	fig := Figure{
		Kind:   KindScatter,
		Title:  fmt.Sprintf("Head %d measurements", head),
		XLabel: "Measurement",
		YLabel: "Result",
		YRange: &Range{Min: ScatterYMin, Max: ScatterYMax},
	}

	traces := make(map[float64]int)
	filter := forcelog.Filter{Table: table, Head: head}
	for _, row := range rows {
		if !filter.Match(row) {
			continue
		}

		i, ok := traces[row.Target]
		if !ok {
			i = len(fig.Scatter)
			traces[row.Target] = i
			fig.Scatter = append(fig.Scatter, ScatterTrace{Name: targetName(row.Target)})
		}
		fig.Scatter[i].X = append(fig.Scatter[i].X, float64(row.Index))
		fig.Scatter[i].Y = append(fig.Scatter[i].Y, row.Result)
	}

	return fig
}

// BuildScatters returns one scatter figure per head of table, ordered by head
func BuildScatters(ds *forcelog.Dataset, table string) []Figure {
	heads := ds.Heads(table)
	figures := make([]Figure, 0, len(heads))
	for _, head := range heads {
		figures = append(figures, BuildScatter(ds.Rows, table, head))
	}
	return figures
}

// BuildBoxPlot summarizes the results of one head of table per target. Box
// values come from forcelog.Aggregate so the chart agrees with the statistics
// table.
func BuildBoxPlot(rows []forcelog.Row, table string, head int) Figure {
	statistics := forcelog.Aggregate(rows, forcelog.ByTableHeadTarget, forcelog.Filter{Table: table, Head: head})
	return BoxPlotFromStatistics(statistics, head)
}

func BoxPlotFromStatistics(statistics []forcelog.GroupStatistics, head int) Figure {
	fig := Figure{
		Kind:   KindBox,
		Title:  fmt.Sprintf("Head %d box plot", head),
		XLabel: "Target",
		YLabel: "Result",
		Boxes:  make([]BoxTrace, 0, len(statistics)),
	}

	for _, s := range statistics {
		if s.Head != head {
			continue
		}
		fig.Boxes = append(fig.Boxes, BoxTrace{
			Name:        fmt.Sprintf("Head %d %s", head, targetName(s.Target)),
			Target:      s.Target,
			Median:      s.Median,
			Q1:          s.Q1,
			Q3:          s.Q3,
			WhiskerLow:  s.WhiskerLow,
			WhiskerHigh: s.WhiskerHigh,
			Mean:        s.Mean,
			Outliers:    s.Outliers,
		})
	}

	return fig
}

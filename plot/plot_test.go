package plot

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subtlepseudonym/forcelog"
)

func loadDataset(t *testing.T) *forcelog.Dataset {
	t.Helper()
	raw, err := os.ReadFile("../testdata/rig.txt")
	require.NoError(t, err)

	ds, err := forcelog.DefaultPipeline().Run("rig.txt", raw)
	require.NoError(t, err)
	return ds
}

func TestBuildScatter(t *testing.T) {
	ds := loadDataset(t)

	fig := BuildScatter(ds.Rows, "A", 1)
	assert.Equal(t, KindScatter, fig.Kind)
	assert.Equal(t, &Range{Min: 0, Max: 40}, fig.YRange)
	require.Len(t, fig.Scatter, 2)

	assert.Equal(t, "Target 3", fig.Scatter[0].Name)
	assert.Equal(t, []float64{1, 2, 3, 4, 5}, fig.Scatter[0].X)
	assert.Equal(t, []float64{2.6, 3.0, 3.4, 3.6, 2.5}, fig.Scatter[0].Y)

	assert.Equal(t, "Target 20", fig.Scatter[1].Name)
	assert.Equal(t, []float64{1, 2}, fig.Scatter[1].X)
	assert.Equal(t, []float64{19.5, 21.0}, fig.Scatter[1].Y)

	assert.True(t, BuildScatter(ds.Rows, "B", 2).Empty())
}

func TestBuildScatters(t *testing.T) {
	ds := loadDataset(t)

	figures := BuildScatters(ds, "A")
	require.Len(t, figures, 2)
	assert.Equal(t, "Head 1 measurements", figures[0].Title)
	assert.Equal(t, "Head 2 measurements", figures[1].Title)

	assert.Len(t, BuildScatters(ds, "B"), 1)
}

func TestBuildBoxPlotMatchesStatistics(t *testing.T) {
	ds := loadDataset(t)

	fig := BuildBoxPlot(ds.Rows, "A", 1)
	assert.Equal(t, KindBox, fig.Kind)
	require.Len(t, fig.Boxes, 2)

	statistics := forcelog.Aggregate(ds.Rows, forcelog.ByTableHeadTarget, forcelog.Filter{Table: "A", Head: 1})
	require.Len(t, statistics, 2)
	for i, s := range statistics {
		box := fig.Boxes[i]
		assert.Equal(t, s.Target, box.Target)
		assert.Equal(t, s.Mean, box.Mean)
		assert.Equal(t, s.Median, box.Median)
		assert.Equal(t, s.Q1, box.Q1)
		assert.Equal(t, s.Q3, box.Q3)
		assert.Equal(t, s.WhiskerLow, box.WhiskerLow)
		assert.Equal(t, s.WhiskerHigh, box.WhiskerHigh)
	}
	assert.Equal(t, "Head 1 Target 3", fig.Boxes[0].Name)
}

func TestRender(t *testing.T) {
	ds := loadDataset(t)

	tests := []struct {
		name   string
		fig    Figure
		format Format
		prefix []byte
	}{
		{name: "scatter png", fig: BuildScatter(ds.Rows, "A", 1), format: FormatPNG, prefix: []byte("\x89PNG")},
		{name: "scatter svg", fig: BuildScatter(ds.Rows, "A", 1), format: FormatSVG, prefix: []byte("<svg")},
		{name: "single point scatter", fig: BuildScatter(ds.Rows, "A", 2), format: FormatPNG, prefix: []byte("\x89PNG")},
		{name: "box png", fig: BuildBoxPlot(ds.Rows, "A", 1), format: FormatPNG, prefix: []byte("\x89PNG")},
		{name: "single sample box", fig: BuildBoxPlot(ds.Rows, "A", 2), format: FormatSVG, prefix: []byte("<svg")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			require.NoError(t, Render(buf, tt.fig, tt.format, 0, 0))
			assert.True(t, bytes.Contains(buf.Bytes(), tt.prefix))
		})
	}
}

func TestRenderSingleTargetBox(t *testing.T) {
	ds := loadDataset(t)

	fig := BuildBoxPlot(ds.Rows, "B", 1)
	require.Len(t, fig.Boxes, 1)

	for _, format := range []Format{FormatPNG, FormatSVG} {
		t.Run(string(format), func(t *testing.T) {
			buf := new(bytes.Buffer)
			require.NoError(t, Render(buf, fig, format, 0, 0))
			assert.NotZero(t, buf.Len())
		})
	}
}

func TestRenderEveryHead(t *testing.T) {
	ds := loadDataset(t)

	for _, table := range ds.Tables() {
		for _, head := range ds.Heads(table) {
			for _, fig := range []Figure{BuildScatter(ds.Rows, table, head), BuildBoxPlot(ds.Rows, table, head)} {
				err := Render(new(bytes.Buffer), fig, FormatPNG, 0, 0)
				assert.NoError(t, err, "table %s head %d %s", table, head, fig.Kind)
			}
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	err := Render(new(bytes.Buffer), Figure{Kind: KindBox}, FormatPNG, 0, 0)
	assert.ErrorIs(t, err, ErrEmptyFigure)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPNG, f)
	assert.Equal(t, "image/png", f.ContentType())

	f, err = ParseFormat("svg")
	require.NoError(t, err)
	assert.Equal(t, "image/svg+xml", f.ContentType())

	_, err = ParseFormat("gif")
	assert.Error(t, err)
}

package forcelog

import (
	"errors"
	"math/rand"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	raw, err := os.ReadFile("testdata/rig.txt")
	require.NoError(t, err)
	return raw
}

func tsv(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestNormalizeFixture(t *testing.T) {
	rows, err := Normalize(readFixture(t), DefaultReadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 11)

	first := rows[0]
	assert.Equal(t, "A", first.Table)
	assert.Equal(t, 1, first.Head)
	assert.Equal(t, 3.0, first.Target)
	assert.Equal(t, 2.6, first.Result)
	assert.Equal(t, 1, first.Index)
	assert.Equal(t, ResolveLimits(3.0), first.Limits)

	var indices []int
	for _, row := range rows {
		if row.Table == "A" && row.Head == 1 && row.Target == 3.0 {
			indices = append(indices, row.Index)
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, indices)

	last := rows[10]
	assert.Equal(t, 2, last.Head)
	assert.Equal(t, 40.0, last.Target)
	assert.False(t, last.Limits.Defined)
	assert.Equal(t, 1, last.Index)
}

func TestNormalizeRemapsTableAndHead(t *testing.T) {
	rows, err := Normalize(tsv(
		"Table\tHead\tTarget\tResult",
		"0\t0\t3.0\t3.1",
		"1\t3\t20.0\t19.0",
	), DefaultReadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "A", rows[0].Table)
	assert.Equal(t, 1, rows[0].Head)
	assert.Equal(t, "B", rows[1].Table)
	assert.Equal(t, 4, rows[1].Head)
	assert.InDelta(t, 18.0, rows[1].Limits.Lower, 1e-12)
	assert.InDelta(t, 22.0, rows[1].Limits.Upper, 1e-12)
}

func TestNormalizeColumnOrderAndExtras(t *testing.T) {
	rows, err := Normalize(tsv(
		"Result\tNote\tTarget\tHead\tTable",
		"4.2\tok\t4.0\t2\t1",
	), DefaultReadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, Measurement{Table: "B", Head: 3, Target: 4.0, Result: 4.2}, rows[0].Measurement)
}

func TestNormalizeIndexUnaffectedByInterleaving(t *testing.T) {
	target := []string{"3.0\t2.9", "3.0\t3.0", "3.0\t3.1", "3.0\t3.2"}
	others := []string{
		"0\t1\t3.0\t3.3",
		"1\t0\t3.0\t3.4",
		"0\t0\t20.0\t20.1",
		"0\t0\t4.0\t4.1",
		"1\t2\t9.0\t9.5",
	}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		lines := []string{"Table\tHead\tTarget\tResult"}
		next := 0
		pool := append([]string(nil), others...)
		for next < len(target) || len(pool) > 0 {
			if len(pool) == 0 || (next < len(target) && rng.Intn(2) == 0) {
				lines = append(lines, "0\t0\t"+target[next])
				next++
				continue
			}
			i := rng.Intn(len(pool))
			lines = append(lines, pool[i])
			pool = append(pool[:i], pool[i+1:]...)
		}

		rows, err := Normalize(tsv(lines...), DefaultReadOptions())
		require.NoError(t, err)

		var results []float64
		var indices []int
		for _, row := range rows {
			if row.Table == "A" && row.Head == 1 && row.Target == 3.0 {
				results = append(results, row.Result)
				indices = append(indices, row.Index)
			}
		}
		assert.Equal(t, []float64{2.9, 3.0, 3.1, 3.2}, results)
		assert.Equal(t, []int{1, 2, 3, 4}, indices)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := readFixture(t)
	a, err := Normalize(raw, DefaultReadOptions())
	require.NoError(t, err)
	b, err := Normalize(raw, DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

// Normalizing already normalized data must not be a no-op: heads are rebased
// again, which guards against accidental double processing.
func TestNormalizeNotIdempotent(t *testing.T) {
	rows, err := Normalize(tsv(
		"Table\tHead\tTarget\tResult",
		"0\t0\t3.0\t3.1",
	), DefaultReadOptions())
	require.NoError(t, err)

	again, err := Normalize(tsv(
		"Table\tHead\tTarget\tResult",
		"0\t1\t3.0\t3.1",
	), DefaultReadOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, rows[0].Head)
	assert.Equal(t, 2, again[0].Head)
	assert.NotEqual(t, rows[0].Head, again[0].Head)
}

func TestNormalizeUnknownTable(t *testing.T) {
	raw := tsv(
		"Table\tHead\tTarget\tResult",
		"0\t0\t3.0\t3.1",
		"2\t0\t3.0\t3.1",
	)

	_, err := Normalize(raw, DefaultReadOptions())
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
	assert.Equal(t, ColumnTable, perr.Column)
	assert.True(t, errors.Is(err, ErrUnknownTable))

	opts := DefaultReadOptions()
	opts.UnknownTable = "Unknown"
	rows, err := Normalize(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rows[1].Table)

	opts = ReadOptions{TableLabels: map[int]string{0: "A", 1: "B", 2: "C"}}
	rows, err = Normalize(raw, opts)
	require.NoError(t, err)
	assert.Equal(t, "C", rows[1].Table)
}

func TestNormalizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		raw    []byte
		line   int
		column string
	}{
		{
			name: "empty input",
			raw:  []byte(""),
		},
		{
			name:   "missing column",
			raw:    tsv("Table\tHead\tTarget", "0\t0\t3.0"),
			line:   1,
			column: ColumnResult,
		},
		{
			name: "comma delimited",
			raw:  tsv("Table,Head,Target,Result", "0,0,3.0,3.1"),
			line: 1,
			// the whole header is one column
			column: ColumnTable,
		},
		{
			name: "field count",
			raw:  tsv("Table\tHead\tTarget\tResult", "0\t0\t3.0"),
			line: 2,
		},
		{
			name:   "invalid head",
			raw:    tsv("Table\tHead\tTarget\tResult", "0\tx\t3.0\t3.1"),
			line:   2,
			column: ColumnHead,
		},
		{
			name:   "fractional table",
			raw:    tsv("Table\tHead\tTarget\tResult", "0.5\t0\t3.0\t3.1"),
			line:   2,
			column: ColumnTable,
		},
		{
			name:   "invalid result",
			raw:    tsv("Table\tHead\tTarget\tResult", "0\t0\t3.0\t"),
			line:   2,
			column: ColumnResult,
		},
		{
			name:   "nan target",
			raw:    tsv("Table\tHead\tTarget\tResult", "0\t0\tNaN\t3.1"),
			line:   2,
			column: ColumnTarget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Normalize(tt.raw, DefaultReadOptions())
			assert.Nil(t, rows)

			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Equal(t, tt.column, perr.Column)
		})
	}
}

func TestNormalizeDecodeError(t *testing.T) {
	raw := append([]byte("Table\tHead\tTarget\tResult\n0\t0\t3.0\t"), 0xff, 0xfe, '\n')

	_, err := Normalize(raw, DefaultReadOptions())
	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, 33, derr.Offset)
}

func TestNormalizeByteOrderMarkAndCRLF(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Table\tHead\tTarget\tResult\r\n0\t0\t3.0\t3.1\r\n\r\n")...)

	rows, err := Normalize(raw, DefaultReadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 3.1, rows[0].Result)
}

func TestNormalizeIntegerColumnsWithDecimals(t *testing.T) {
	rows, err := Normalize(tsv(
		"Table\tHead\tTarget\tResult",
		"1.0\t2.0\t3\t3",
	), DefaultReadOptions())
	require.NoError(t, err)
	assert.Equal(t, "B", rows[0].Table)
	assert.Equal(t, 3, rows[0].Head)
}

func TestNormalizeMaxRows(t *testing.T) {
	raw := tsv(
		"Table\tHead\tTarget\tResult",
		"0\t0\t3.0\t3.1",
		"0\t0\t3.0\t3.2",
		"0\t0\t3.0\t3.3",
	)

	opts := DefaultReadOptions()
	opts.MaxRows = 2
	_, err := Normalize(raw, opts)
	assert.ErrorIs(t, err, ErrTooManyRows)

	opts.MaxRows = 3
	rows, err := Normalize(raw, opts)
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestNormalizeHeaderOnly(t *testing.T) {
	rows, err := Normalize(tsv("Table\tHead\tTarget\tResult"), DefaultReadOptions())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestHeader(t *testing.T) {
	text, err := Decode(readFixture(t))
	require.NoError(t, err)
	assert.Equal(t, []string{"Date", "Table", "Head", "Target", "Result", "Operator"}, Header(text))

	assert.Nil(t, Header(""))
}

func TestNormalizeQuotesInExtraColumns(t *testing.T) {
	raw := tsv(
		"Table\tHead\tTarget\tResult\tNote",
		"0\t0\t3.0\t2.6\top\"1",
		"0\t0\t3.0\t3.1\t\"checked\"",
		"1\t0\t20.0\t19.5\t5\" gauge",
	)

	rows, err := Normalize(raw, DefaultReadOptions())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, 3.1, rows[1].Result)
	assert.Equal(t, 2, rows[1].Index)
	assert.Equal(t, "B", rows[2].Table)

	text, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Table", "Head", "Target", "Result", "Note"}, Header(text))
}

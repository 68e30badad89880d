package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subtlepseudonym/forcelog"
)

func loadFixture(t *testing.T) *forcelog.Dataset {
	t.Helper()
	ds, err := load(forcelog.DefaultPipeline(), "../../testdata/rig.txt")
	require.NoError(t, err)
	return ds
}

func TestSummaryHashIgnoresLoadTime(t *testing.T) {
	tags := map[string]string{"device": "cell", "rig": "r1"}

	first := loadFixture(t)
	second := *first
	second.LoadedAt = first.LoadedAt.Add(time.Hour)

	a, err := newSummary(first, tags).Hash()
	require.NoError(t, err)
	b, err := newSummary(&second, tags).Hash()
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := newSummary(first, map[string]string{"device": "other", "rig": "r1"}).Hash()
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestBuildDatasetQuery(t *testing.T) {
	ds := loadFixture(t)
	summary := newSummary(ds, map[string]string{"device": "cell"})

	query, err := buildDatasetQuery("rig_dataset", ds, summary)
	require.NoError(t, err)
	assert.True(t, strings.Contains(query.SQL, "INSERT INTO rig_dataset"))
	assert.Contains(t, query.SQL, "RETURNING id")
	require.Len(t, query.Args, 7)
	assert.Len(t, query.Args[0], 26)
	assert.Equal(t, "rig.txt", query.Args[2])
	assert.Equal(t, "table,head,target", query.Args[3])
	assert.Equal(t, 11, query.Args[4])
	assert.JSONEq(t, `{"device":"cell"}`, query.Args[6].(string))

	hash, err := summary.Hash()
	require.NoError(t, err)
	assert.Equal(t, hash, query.Args[1])

	again, err := buildDatasetQuery("rig_dataset", ds, summary)
	require.NoError(t, err)
	assert.NotEqual(t, query.Args[0], again.Args[0])
}

func TestBuildStatisticQueries(t *testing.T) {
	ds := loadFixture(t)
	summary := newSummary(ds, nil)
	require.Len(t, summary.Statistics, 5)

	queries, err := buildStatisticQueries("statistic", "dataset-id", summary.Statistics)
	require.NoError(t, err)
	require.Len(t, queries, 5)

	ids := make(map[interface{}]bool)
	for _, q := range queries {
		assert.Contains(t, q.SQL, "INSERT INTO statistic")
		require.Len(t, q.Args, 14)
		assert.Equal(t, "dataset-id", q.Args[1])
		ids[q.Args[0]] = true
	}
	assert.Len(t, ids, 5)

	// A head 1 target 3
	first := queries[0].Args
	assert.Equal(t, "A", first[2])
	assert.Equal(t, 1, first[3])
	assert.Equal(t, 3.0, first[4])
	assert.Equal(t, 2.5, first[11])
	assert.Equal(t, 3.5, first[12])
	assert.Equal(t, true, first[13])

	// A head 2 target 40 is a single sample without tolerance
	last := queries[3].Args
	assert.Equal(t, 40.0, last[4])
	assert.Nil(t, last[10])
	assert.Nil(t, last[11])
	assert.Nil(t, last[12])
	assert.Equal(t, false, last[13])
}

func TestBuildSetupQuery(t *testing.T) {
	query := buildSetupQuery("ds", "st")
	assert.Contains(t, query, "CREATE TABLE IF NOT EXISTS ds (")
	assert.Contains(t, query, "CREATE TABLE IF NOT EXISTS st (")
	assert.Contains(t, query, "REFERENCES ds (id)")
}

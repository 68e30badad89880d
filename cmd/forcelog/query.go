package main

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/mitchellh/hashstructure"
	"github.com/scru128/go-scru128"

	"github.com/subtlepseudonym/forcelog"
)

const setupFormat = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	hash BIGINT NOT NULL UNIQUE,
	name TEXT NOT NULL,
	group_by TEXT NOT NULL,
	row_count INTEGER NOT NULL,
	loaded_at TIMESTAMPTZ NOT NULL,
	tags JSONB NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES %[1]s (id) ON DELETE CASCADE,
	table_label TEXT NOT NULL,
	head INTEGER NOT NULL,
	target DOUBLE PRECISION NOT NULL,
	count INTEGER NOT NULL,
	mean DOUBLE PRECISION NOT NULL,
	maximum DOUBLE PRECISION NOT NULL,
	minimum DOUBLE PRECISION NOT NULL,
	range DOUBLE PRECISION NOT NULL,
	three_sigma DOUBLE PRECISION,
	lower_limit DOUBLE PRECISION,
	upper_limit DOUBLE PRECISION,
	out_of_tolerance BOOLEAN NOT NULL,
	UNIQUE (dataset_id, table_label, head, target)
);
`

func buildSetupQuery(datasetTable, statisticTable string) string {
	return fmt.Sprintf(setupFormat, datasetTable, statisticTable)
}

const insertDatasetFormat = `
INSERT INTO %s
(
	id,
	hash,
	name,
	group_by,
	row_count,
	loaded_at,
	tags
) VALUES (
	$1, $2, $3, $4, $5, $6, $7
) ON CONFLICT (hash)
DO UPDATE SET
	name = EXCLUDED.name,
	loaded_at = EXCLUDED.loaded_at,
	tags = EXCLUDED.tags
RETURNING id;
`

const insertStatisticFormat = `
INSERT INTO %s
(
	id,
	dataset_id,
	table_label,
	head,
	target,
	count,
	mean,
	maximum,
	minimum,
	range,
	three_sigma,
	lower_limit,
	upper_limit,
	out_of_tolerance
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13, $14
) ON CONFLICT (dataset_id, table_label, head, target)
DO UPDATE SET
	count = EXCLUDED.count,
	mean = EXCLUDED.mean,
	maximum = EXCLUDED.maximum,
	minimum = EXCLUDED.minimum,
	range = EXCLUDED.range,
	three_sigma = EXCLUDED.three_sigma,
	lower_limit = EXCLUDED.lower_limit,
	upper_limit = EXCLUDED.upper_limit,
	out_of_tolerance = EXCLUDED.out_of_tolerance;
`

// Query is a statement with its positional arguments
type Query struct {
	SQL  string
	Args []interface{}
}

// Summary is the content of an ETL run which identifies a dataset. The
// load time is not part of it so that reloading a file is deduplicated.
type Summary struct {
	Name       string
	GroupBy    string
	Tags       map[string]string
	Statistics []forcelog.GroupStatistics
}

func newSummary(ds *forcelog.Dataset, tags map[string]string) *Summary {
	return &Summary{
		Name:       ds.Name,
		GroupBy:    forcelog.ByTableHeadTarget.String(),
		Tags:       tags,
		Statistics: forcelog.Aggregate(ds.Rows, forcelog.ByTableHeadTarget, forcelog.Filter{}),
	}
}

func (s *Summary) Hash() (int64, error) {
	hash, err := hashstructure.Hash(s, nil)
	if err != nil {
		return 0, fmt.Errorf("hash summary: %w", err)
	}
	return int64(hash), nil
}

func buildDatasetQuery(table string, ds *forcelog.Dataset, summary *Summary) (Query, error) {
	datasetID, err := scru128.NewGenerator().Generate()
	if err != nil {
		return Query{}, fmt.Errorf("generate dataset ID: %w", err)
	}

	hash, err := summary.Hash()
	if err != nil {
		return Query{}, err
	}

	tags, err := json.Marshal(summary.Tags)
	if err != nil {
		return Query{}, fmt.Errorf("marshal json tags: %w", err)
	}

	return Query{
		SQL: fmt.Sprintf(insertDatasetFormat, table),
		Args: []interface{}{
			datasetID.String(),
			hash,
			summary.Name,
			summary.GroupBy,
			len(ds.Rows),
			ds.LoadedAt.Format(time.RFC3339Nano),
			string(tags),
		},
	}, nil
}

func buildStatisticQueries(table, datasetID string, statistics []forcelog.GroupStatistics) ([]Query, error) {
	scruGenerator := scru128.NewGenerator()
	queries := make([]Query, 0, len(statistics))

	for _, s := range statistics {
		id, err := scruGenerator.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate scru ID: %w", err)
		}

		var lower, upper interface{}
		if s.Limits.Defined {
			lower, upper = s.Limits.Lower, s.Limits.Upper
		}

		queries = append(queries, Query{
			SQL: fmt.Sprintf(insertStatisticFormat, table),
			Args: []interface{}{
				id.String(),
				datasetID,
				s.Table,
				s.Head,
				s.Target,
				s.Count,
				s.Mean,
				s.Max,
				s.Min,
				s.Range,
				nullable(s.ThreeSigma),
				lower,
				upper,
				s.OutOfTolerance(),
			},
		})
	}

	return queries, nil
}

// nullable maps NaN to SQL NULL
func nullable(v float64) interface{} {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

package forcelog

import (
	"fmt"
	"time"
)

// Pipeline turns raw rig logs into datasets and statistics. The grouping key
// and presentation precision are part of the pipeline so every caller
// aggregates the same way.
type Pipeline struct {
	GroupBy   GroupBy
	Precision int
	Read      ReadOptions

	now func() time.Time
}

func DefaultPipeline() *Pipeline {
	return &Pipeline{
		GroupBy:   ByHeadTarget,
		Precision: DefaultPrecision,
		Read:      DefaultReadOptions(),
	}
}

// Run normalizes raw into a new Dataset
func (p *Pipeline) Run(name string, raw []byte) (*Dataset, error) {
	rows, err := Normalize(raw, p.Read)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", name, err)
	}

	now := time.Now
	if p.now != nil {
		now = p.now
	}

	return &Dataset{
		Name:     name,
		LoadedAt: now().UTC(),
		Rows:     rows,
	}, nil
}

func (p *Pipeline) Statistics(ds *Dataset, filter Filter) []GroupStatistics {
	return Aggregate(ds.Rows, p.GroupBy, filter)
}

func (p *Pipeline) Views(ds *Dataset, filter Filter) []StatisticsView {
	return Views(p.Statistics(ds, filter), p.Precision)
}

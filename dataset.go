package forcelog

import (
	"sort"
	"time"
)

// Dataset is the normalized snapshot of one uploaded rig log. A Dataset is
// never modified after it is built; a new upload produces a new Dataset.
type Dataset struct {
	Name     string    `json:"name"`
	LoadedAt time.Time `json:"loaded_at"`
	Rows     []Row     `json:"rows" hash:"ignore"`
}

// Tables returns the distinct table labels in order of first appearance
func (d *Dataset) Tables() []string {
	seen := make(map[string]struct{})
	tables := make([]string, 0, 2)
	for _, row := range d.Rows {
		if _, ok := seen[row.Table]; ok {
			continue
		}
		seen[row.Table] = struct{}{}
		tables = append(tables, row.Table)
	}

	return tables
}

// Heads returns the sorted distinct heads of table. An empty table matches
// every table.
func (d *Dataset) Heads(table string) []int {
	seen := make(map[int]struct{})
	heads := make([]int, 0, 8)
	for _, row := range d.Rows {
		if table != "" && row.Table != table {
			continue
		}
		if _, ok := seen[row.Head]; ok {
			continue
		}
		seen[row.Head] = struct{}{}
		heads = append(heads, row.Head)
	}
	sort.Ints(heads)

	return heads
}

func (d *Dataset) HasTable(table string) bool {
	for _, t := range d.Tables() {
		if t == table {
			return true
		}
	}
	return false
}

func (d *Dataset) HasHead(table string, head int) bool {
	for _, h := range d.Heads(table) {
		if h == head {
			return true
		}
	}
	return false
}

// Select returns the rows matching filter in input order
func (d *Dataset) Select(filter Filter) []Row {
	rows := make([]Row, 0, len(d.Rows))
	for _, row := range d.Rows {
		if filter.Match(row) {
			rows = append(rows, row)
		}
	}
	return rows
}

package forcelog

// Required column names of a rig log
const (
	ColumnTable  = "Table"
	ColumnHead   = "Head"
	ColumnTarget = "Target"
	ColumnResult = "Result"
)

var RequiredColumns = []string{ColumnTable, ColumnHead, ColumnTarget, ColumnResult}

// DefaultTableLabels maps raw rig table codes to their labels
var DefaultTableLabels = map[int]string{
	0: "A",
	1: "B",
}

// Measurement is one logged observation of the rig
type Measurement struct {
	Table  string  `json:"table"`
	Head   int     `json:"head"`
	Target float64 `json:"target"`
	Result float64 `json:"result"`
}

// Row is a normalized measurement. Index counts occurrences of the row's
// (Table, Head, Target) group in input order, starting at 1.
type Row struct {
	Measurement
	Limits Limits `json:"limits"`
	Index  int    `json:"index"`
}

// OutOfTolerance reports whether the row's result falls outside its limits
func (r Row) OutOfTolerance() bool {
	return !r.Limits.Contains(r.Result)
}

type groupKey struct {
	table  string
	head   int
	target float64
}

func (r Row) key() groupKey {
	return groupKey{table: r.Table, head: r.Head, target: r.Target}
}

func (k groupKey) less(o groupKey) bool {
	if k.table != o.table {
		return k.table < o.table
	}
	if k.head != o.head {
		return k.head < o.head
	}
	return k.target < o.target
}

package forcelog

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	lp "github.com/influxdata/line-protocol/v2/lineprotocol"
)

const LineMeasurement = "result"

// AddFunc receives one named field value of a row
type AddFunc func(key string, value interface{})

// ReadRow emits the fields of a row. Limit fields are omitted when the row
// target has no tolerance band.
func ReadRow(row Row, add AddFunc) {
	add("result", row.Result)
	add("index", row.Index)
	if row.Limits.Defined {
		add("lower", row.Limits.Lower)
		add("upper", row.Limits.Upper)
	}
}

func EncodeFunc(encoder *lp.Encoder) AddFunc {
	return func(key string, value interface{}) {
		var val lp.Value
		switch v := value.(type) {
		case int:
			val = lp.IntValue(int64(v))
		case int64:
			val = lp.IntValue(v)
		case float64:
			fv, ok := lp.FloatValue(v)
			if !ok {
				return
			}
			val = fv
		default:
			return
		}

		encoder.AddField(key, val)
	}
}

func rowTags(row Row, tags map[string]string) map[string]string {
	merged := make(map[string]string, len(tags)+3)
	for key, value := range tags {
		merged[key] = value
	}
	merged["table"] = row.Table
	merged["head"] = strconv.Itoa(row.Head)
	merged["target"] = strconv.FormatFloat(row.Target, 'f', -1, 64)

	return merged
}

// WriteLineProtocol writes every row of ds as an influx line. Rows carry no
// timestamp of their own, so each line is stamped LoadedAt plus its position
// in nanoseconds.
func WriteLineProtocol(out io.Writer, ds *Dataset, tags map[string]string) error {
	var encoder lp.Encoder
	encoder.SetPrecision(lp.Nanosecond)

	encode := EncodeFunc(&encoder)
	for i, row := range ds.Rows {
		encoder.StartLine(LineMeasurement)

		// Line protocol requires tags to be added in lexical order
		merged := rowTags(row, tags)
		keys := make([]string, 0, len(merged))
		for key := range merged {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if merged[key] == "" {
				continue
			}
			encoder.AddTag(key, merged[key])
		}

		ReadRow(row, encode)

		encoder.EndLine(ds.LoadedAt.Add(time.Duration(i)))
		if err := encoder.Err(); err != nil {
			return fmt.Errorf("encoder: %w", err)
		}
	}

	_, err := out.Write(encoder.Bytes())
	if err != nil {
		return fmt.Errorf("write: %w", err)
	}

	return nil
}

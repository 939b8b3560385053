// Package clean implements the cleaning pass over the core subset:
// sparse-column drop, critical-row drop, text normalization, and epoch
// timestamp conversion.
package clean

import (
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/jobsignals/postpipe/table"
)

// SparseColumns is the hand-picked drop list for columns with excessive
// missingness. The list is fixed and applied unconditionally; the
// missingness audit does not gate it.
var SparseColumns = []string{
	"med_salary",
	"remote_allowed",
	"min_salary",
	"max_salary",
	"pay_period",
	"currency",
}

// CriticalColumns are the identifying fields a row must have. A single
// null in any of them disqualifies the row.
var CriticalColumns = []string{"job_id", "title", "company_name", "location"}

// TextColumns are normalized to trimmed lowercase.
var TextColumns = []string{"company_name", "title", "location", "work_type"}

// DropSparseColumns removes the fixed sparse-column list.
func DropSparseColumns(t *table.Table) *table.Table {
	return t.Drop(SparseColumns...)
}

// DropIncompleteRows removes every row holding a null in any critical
// column. The surviving row positions are tracked as a roaring bitmap
// keep-mask.
func DropIncompleteRows(t *table.Table) (*table.Table, error) {
	keep := roaring.New()
	keep.AddRange(0, uint64(t.NumRows()))

	for _, name := range CriticalColumns {
		col, err := t.Column(name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < col.Len(); i++ {
			if col.IsNull(i) {
				keep.Remove(uint32(i))
			}
		}
	}
	return t.FilterRows(keep)
}

// Normalize coerces one text value to its canonical form: trimmed of
// surrounding whitespace and lowercased. Idempotent.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeText rewrites every text column in canonical form. Nulls
// stringify to the literal "nan", matching the source system's coercion
// of missing values before trimming and lowering.
func NormalizeText(t *table.Table) (*table.Table, error) {
	out := t
	for _, name := range TextColumns {
		src, err := out.Strings(name)
		if err != nil {
			return nil, err
		}

		builder := array.NewStringBuilder(table.Pool)
		for i := 0; i < src.Len(); i++ {
			if src.IsNull(i) {
				builder.Append("nan")
				continue
			}
			builder.Append(Normalize(src.Value(i)))
		}
		col := builder.NewArray()
		builder.Release()

		out, err = out.WithColumn(name, col)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ConvertEpoch converts a string column of epoch values in the given
// unit to a timestamp[ms] column. Unparseable cells degrade to null
// rather than failing the conversion.
func ConvertEpoch(col *array.String, unit arrow.TimeUnit) arrow.Array {
	builder := array.NewTimestampBuilder(table.Pool, table.TimestampMS)
	defer builder.Release()

	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			builder.AppendNull()
			continue
		}
		ms, ok := epochToMillis(col.Value(i), unit)
		if !ok {
			builder.AppendNull()
			continue
		}
		builder.Append(arrow.Timestamp(ms))
	}
	return builder.NewArray()
}

// ConvertListedTime replaces the named epoch column with its timestamp
// conversion. The unit is an explicit parameter: the source data is
// epoch milliseconds, and reading it in the wrong unit silently produces
// 1970 dates.
func ConvertListedTime(t *table.Table, column string, unit arrow.TimeUnit) (*table.Table, error) {
	src, err := t.Strings(column)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(column, ConvertEpoch(src, unit))
}

func epochToMillis(raw string, unit arrow.TimeUnit) (int64, bool) {
	s := strings.TrimSpace(raw)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some exports write integral epochs in float notation.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, false
		}
		v = int64(f)
	}

	switch unit {
	case arrow.Second:
		return v * 1000, true
	case arrow.Millisecond:
		return v, true
	case arrow.Microsecond:
		return v / 1_000, true
	case arrow.Nanosecond:
		return v / 1_000_000, true
	default:
		return 0, false
	}
}

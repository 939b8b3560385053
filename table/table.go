// Package table implements the in-memory posting table backed by an
// Apache Arrow record batch. Every operation returns a new Table; stages
// thread tables explicitly instead of sharing one mutable structure.
package table

import (
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/jobsignals/postpipe/errdefs"
)

// Table wraps a single Arrow record batch with column access by name.
type Table struct {
	rec arrow.Record
}

// New wraps a record batch. The table takes ownership of the caller's
// reference; call Release when the table is no longer needed.
func New(rec arrow.Record) *Table {
	return &Table{rec: rec}
}

// Record exposes the underlying record batch.
func (t *Table) Record() arrow.Record {
	return t.rec
}

// NumRows returns the number of rows.
func (t *Table) NumRows() int {
	return int(t.rec.NumRows())
}

// ColumnNames returns the column names in schema order.
func (t *Table) ColumnNames() []string {
	fields := t.rec.Schema().Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// HasColumn reports whether a column exists.
func (t *Table) HasColumn(name string) bool {
	return len(t.rec.Schema().FieldIndices(name)) > 0
}

func (t *Table) columnIndex(name string) (int, error) {
	indices := t.rec.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return 0, errdefs.Schema(fmt.Sprintf("column %q not present", name), nil)
	}
	return indices[0], nil
}

// Column returns the named column.
func (t *Table) Column(name string) (arrow.Array, error) {
	idx, err := t.columnIndex(name)
	if err != nil {
		return nil, err
	}
	return t.rec.Column(idx), nil
}

// Strings returns the named column asserted to a string array.
func (t *Table) Strings(name string) (*array.String, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	arr, ok := col.(*array.String)
	if !ok {
		return nil, fmt.Errorf("unexpected type for column %q: %T", name, col)
	}
	return arr, nil
}

// Booleans returns the named column asserted to a boolean array.
func (t *Table) Booleans(name string) (*array.Boolean, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	arr, ok := col.(*array.Boolean)
	if !ok {
		return nil, fmt.Errorf("unexpected type for column %q: %T", name, col)
	}
	return arr, nil
}

// Int64s returns the named column asserted to an int64 array.
func (t *Table) Int64s(name string) (*array.Int64, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	arr, ok := col.(*array.Int64)
	if !ok {
		return nil, fmt.Errorf("unexpected type for column %q: %T", name, col)
	}
	return arr, nil
}

// Timestamps returns the named column asserted to a timestamp array.
func (t *Table) Timestamps(name string) (*array.Timestamp, error) {
	col, err := t.Column(name)
	if err != nil {
		return nil, err
	}
	arr, ok := col.(*array.Timestamp)
	if !ok {
		return nil, fmt.Errorf("unexpected type for column %q: %T", name, col)
	}
	return arr, nil
}

// NullCount returns the number of null values in the named column.
func (t *Table) NullCount(name string) (int, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	return col.NullN(), nil
}

// Select projects the table down to the named columns, in the given
// order. All-or-nothing: every name must resolve or a schema error is
// returned and no view is produced.
func (t *Table) Select(names ...string) (*Table, error) {
	fields := make([]arrow.Field, 0, len(names))
	cols := make([]arrow.Array, 0, len(names))
	for _, name := range names {
		idx, err := t.columnIndex(name)
		if err != nil {
			return nil, err
		}
		fields = append(fields, t.rec.Schema().Field(idx))
		cols = append(cols, t.rec.Column(idx))
	}
	schema := arrow.NewSchema(fields, nil)
	return New(array.NewRecord(schema, cols, t.rec.NumRows())), nil
}

// Drop removes the named columns. Names not present are ignored, matching
// an unconditional drop list that may outlive the data it was picked for.
func (t *Table) Drop(names ...string) *Table {
	dropped := make(map[string]bool, len(names))
	for _, name := range names {
		dropped[name] = true
	}

	fields := make([]arrow.Field, 0, t.rec.NumCols())
	cols := make([]arrow.Array, 0, t.rec.NumCols())
	for i, f := range t.rec.Schema().Fields() {
		if dropped[f.Name] {
			continue
		}
		fields = append(fields, f)
		cols = append(cols, t.rec.Column(i))
	}
	schema := arrow.NewSchema(fields, nil)
	return New(array.NewRecord(schema, cols, t.rec.NumRows()))
}

// WithColumn returns a table with the named column replaced by arr, or
// appended if no column of that name exists. The array length must match
// the row count.
func (t *Table) WithColumn(name string, arr arrow.Array) (*Table, error) {
	if int64(arr.Len()) != t.rec.NumRows() {
		return nil, fmt.Errorf("column %q length %d does not match %d rows", name, arr.Len(), t.rec.NumRows())
	}

	field := arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
	fields := make([]arrow.Field, 0, t.rec.NumCols()+1)
	cols := make([]arrow.Array, 0, t.rec.NumCols()+1)

	replaced := false
	for i, f := range t.rec.Schema().Fields() {
		if f.Name == name && !replaced {
			fields = append(fields, field)
			cols = append(cols, arr)
			replaced = true
			continue
		}
		fields = append(fields, f)
		cols = append(cols, t.rec.Column(i))
	}
	if !replaced {
		fields = append(fields, field)
		cols = append(cols, arr)
	}
	schema := arrow.NewSchema(fields, nil)
	return New(array.NewRecord(schema, cols, t.rec.NumRows())), nil
}

// FilterRows keeps only the row positions set in the bitmap, preserving
// row order, and rebuilds every column.
func (t *Table) FilterRows(keep *roaring.Bitmap) (*Table, error) {
	cols := make([]arrow.Array, t.rec.NumCols())
	for i := int64(0); i < t.rec.NumCols(); i++ {
		filtered, err := filterArray(t.rec.Column(int(i)), keep, t.NumRows())
		if err != nil {
			return nil, fmt.Errorf("filter column %q: %w", t.rec.Schema().Field(int(i)).Name, err)
		}
		cols[i] = filtered
	}
	return New(array.NewRecord(t.rec.Schema(), cols, int64(keep.GetCardinality()))), nil
}

// Head returns a view of the first n rows (or all rows if fewer).
func (t *Table) Head(n int) *Table {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	return New(t.rec.NewSlice(0, int64(n)))
}

// Release releases the underlying record batch.
func (t *Table) Release() {
	t.rec.Release()
}

func filterArray(arr arrow.Array, keep *roaring.Bitmap, rows int) (arrow.Array, error) {
	switch col := arr.(type) {
	case *array.String:
		b := array.NewStringBuilder(Pool)
		defer b.Release()
		for i := 0; i < rows; i++ {
			if !keep.Contains(uint32(i)) {
				continue
			}
			if col.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(col.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Boolean:
		b := array.NewBooleanBuilder(Pool)
		defer b.Release()
		for i := 0; i < rows; i++ {
			if !keep.Contains(uint32(i)) {
				continue
			}
			if col.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(col.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Int64:
		b := array.NewInt64Builder(Pool)
		defer b.Release()
		for i := 0; i < rows; i++ {
			if !keep.Contains(uint32(i)) {
				continue
			}
			if col.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(col.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Float64:
		b := array.NewFloat64Builder(Pool)
		defer b.Release()
		for i := 0; i < rows; i++ {
			if !keep.Contains(uint32(i)) {
				continue
			}
			if col.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(col.Value(i))
			}
		}
		return b.NewArray(), nil
	case *array.Timestamp:
		b := array.NewTimestampBuilder(Pool, col.DataType().(*arrow.TimestampType))
		defer b.Release()
		for i := 0; i < rows; i++ {
			if !keep.Contains(uint32(i)) {
				continue
			}
			if col.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(col.Value(i))
			}
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("unsupported column type: %T", arr)
	}
}

// Package derive computes the analytical feature columns on the
// full-feature posting table.
package derive

import (
	"strconv"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/jobsignals/postpipe/clean"
	"github.com/jobsignals/postpipe/table"
)

// Derived column names.
const (
	ColIsRemote     = "is_remote"
	ColListedTimeDT = "original_listed_time_dt"
	ColPostingAge   = "posting_age_days"
)

const millisPerDay = 24 * 60 * 60 * 1000

// WithIsRemote appends a strict boolean is_remote column: true iff the
// source indicator parses to exactly 1. Null, unparseable, or any other
// value yields false, never null.
func WithIsRemote(t *table.Table, source string) (*table.Table, error) {
	src, err := t.Strings(source)
	if err != nil {
		return nil, err
	}

	builder := array.NewBooleanBuilder(table.Pool)
	defer builder.Release()
	for i := 0; i < src.Len(); i++ {
		if src.IsNull(i) {
			builder.Append(false)
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(src.Value(i)), 64)
		builder.Append(err == nil && v == 1)
	}
	return t.WithColumn(ColIsRemote, builder.NewArray())
}

// WithListedTimeDT appends the timestamp conversion of the raw epoch
// column, leaving the raw column in place. The source unit is epoch
// milliseconds.
func WithListedTimeDT(t *table.Table, source string) (*table.Table, error) {
	src, err := t.Strings(source)
	if err != nil {
		return nil, err
	}
	return t.WithColumn(ColListedTimeDT, clean.ConvertEpoch(src, arrow.Millisecond))
}

// WithPostingAge appends the posting age in whole days relative to the
// newest posting in the table. Rows with a null timestamp get a null
// age; rows at the maximum get 0.
func WithPostingAge(t *table.Table) (*table.Table, error) {
	dt, err := t.Timestamps(ColListedTimeDT)
	if err != nil {
		return nil, err
	}

	var maxMS int64
	found := false
	for i := 0; i < dt.Len(); i++ {
		if dt.IsNull(i) {
			continue
		}
		if v := int64(dt.Value(i)); !found || v > maxMS {
			maxMS = v
			found = true
		}
	}

	builder := array.NewInt64Builder(table.Pool)
	defer builder.Release()
	for i := 0; i < dt.Len(); i++ {
		if dt.IsNull(i) || !found {
			builder.AppendNull()
			continue
		}
		builder.Append((maxMS - int64(dt.Value(i))) / millisPerDay)
	}
	return t.WithColumn(ColPostingAge, builder.NewArray())
}

package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"

	"github.com/jobsignals/postpipe/analytics"
	"github.com/jobsignals/postpipe/errdefs"
	"github.com/jobsignals/postpipe/table"
)

// Artifact file names written to the output directory.
const (
	SampleFile        = "clean_postings_sample.csv"
	WorkTypeShareFile = "remote_share_by_work_type.csv"
	AgeByRemoteFile   = "posting_age_by_remote.csv"
)

// EnsureOutputDir creates the output directory if it is absent.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errdefs.IO(fmt.Sprintf("create output directory %q", dir), err)
	}
	return nil
}

// WriteSample writes the first min(limit, rows) rows of the table, all
// columns, to the sample artifact. An existing file is overwritten.
func WriteSample(dir string, t *table.Table, limit int) error {
	head := t.Head(limit)
	defer head.Release()
	return writeRecord(filepath.Join(dir, SampleFile), head.Record())
}

// WriteWorkTypeShares writes the remote-share-by-work-type artifact in
// the order given by the caller.
func WriteWorkTypeShares(dir string, shares []analytics.WorkTypeShare) error {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "work_type", Type: arrow.BinaryTypes.String, Nullable: true},
		{Name: "remote_share", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	builder := array.NewRecordBuilder(table.Pool, schema)
	defer builder.Release()

	workTypes := builder.Field(0).(*array.StringBuilder)
	proportions := builder.Field(1).(*array.Float64Builder)
	for _, share := range shares {
		workTypes.Append(share.WorkType)
		proportions.Append(share.RemoteShare)
	}

	rec := builder.NewRecord()
	defer rec.Release()
	return writeRecord(filepath.Join(dir, WorkTypeShareFile), rec)
}

// WritePostingAgeByRemote writes the average-posting-age-by-remote-status
// artifact in the order given by the caller.
func WritePostingAgeByRemote(dir string, ages []analytics.AgeByRemote) error {
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "is_remote", Type: arrow.FixedWidthTypes.Boolean, Nullable: true},
		{Name: "avg_posting_age_days", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
	}, nil)

	builder := array.NewRecordBuilder(table.Pool, schema)
	defer builder.Release()

	remotes := builder.Field(0).(*array.BooleanBuilder)
	avgs := builder.Field(1).(*array.Float64Builder)
	for _, age := range ages {
		remotes.Append(age.IsRemote)
		avgs.Append(age.AvgPostingAgeDays)
	}

	rec := builder.NewRecord()
	defer rec.Release()
	return writeRecord(filepath.Join(dir, AgeByRemoteFile), rec)
}

// writeRecord writes one record batch as a headed CSV file. Each artifact
// is an independent, overwriting write; there is no append and no atomic
// swap.
func writeRecord(path string, rec arrow.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return errdefs.IO(fmt.Sprintf("create %q", path), err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := csv.NewWriter(f, rec.Schema(),
		csv.WithHeader(true),
		csv.WithComma(','),
		csv.WithNullWriter(""),
	)
	if err := writer.Write(rec); err != nil {
		return errdefs.IO(fmt.Sprintf("write %q", path), err)
	}
	if err := writer.Flush(); err != nil {
		return errdefs.IO(fmt.Sprintf("flush %q", path), err)
	}
	return nil
}

// Package storage handles disk I/O for the pipeline: loading the source
// postings CSV and writing the exported artifacts.
package storage

import (
	stdcsv "encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/csv"

	"github.com/jobsignals/postpipe/errdefs"
	"github.com/jobsignals/postpipe/table"
)

// LoadPostings reads a comma-delimited UTF-8 file with a header row into
// a posting table. Every column is loaded as a nullable string; empty
// cells become nulls. No schema is enforced here; column presence is
// validated lazily by later stages.
func LoadPostings(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errdefs.IO(fmt.Sprintf("open %q", path), err)
	}
	defer func() {
		_ = f.Close()
	}()

	header, err := readHeader(f)
	if err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errdefs.IO(fmt.Sprintf("rewind %q", path), err)
	}

	schema := table.StringSchema(header)
	reader := csv.NewReader(f, schema,
		csv.WithHeader(true),
		csv.WithComma(','),
		csv.WithChunk(-1),
		csv.WithNullReader(true, ""),
	)
	defer reader.Release()

	if !reader.Next() {
		if err := reader.Err(); err != nil && err != io.EOF {
			return nil, errdefs.Parse(fmt.Sprintf("read %q", path), err)
		}
		// Header-only file: an empty table is still a valid load.
		builder := array.NewRecordBuilder(table.Pool, schema)
		defer builder.Release()
		return table.New(builder.NewRecord()), nil
	}

	rec := reader.Record()
	rec.Retain()
	if err := reader.Err(); err != nil && err != io.EOF {
		rec.Release()
		return nil, errdefs.Parse(fmt.Sprintf("read %q", path), err)
	}
	return table.New(rec), nil
}

// readHeader sniffs the header row so the string schema can be built
// before the Arrow reader makes its pass over the file.
func readHeader(r io.Reader) ([]string, error) {
	header, err := stdcsv.NewReader(r).Read()
	if err == io.EOF {
		return nil, errdefs.Parse("missing header row", nil)
	}
	if err != nil {
		return nil, errdefs.Parse("malformed header row", err)
	}
	return header, nil
}

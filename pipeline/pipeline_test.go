package pipeline_test

import (
	"context"
	stdcsv "encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jobsignals/postpipe/errdefs"
	"github.com/jobsignals/postpipe/pipeline"
	"github.com/jobsignals/postpipe/storage"
)

// header covers the full working column set plus an extra column that the
// selection stage must prune.
var header = []string{
	"job_id", "company_name", "title", "description", "location",
	"work_type", "formatted_experience_level", "remote_allowed",
	"min_salary", "med_salary", "max_salary", "pay_period", "currency",
	"original_listed_time", "listed_time",
}

func writePostings(tb testing.TB, dir string, rows [][]string) string {
	tb.Helper()

	var sb strings.Builder
	w := stdcsv.NewWriter(&sb)
	require.NoError(tb, w.Write(header))
	require.NoError(tb, w.WriteAll(rows))

	path := filepath.Join(dir, "postings.csv")
	require.NoError(tb, os.WriteFile(path, []byte(sb.String()), 0o644))
	return path
}

func readCSV(tb testing.TB, path string) [][]string {
	tb.Helper()
	f, err := os.Open(path)
	require.NoError(tb, err)
	defer f.Close()

	rows, err := stdcsv.NewReader(f).ReadAll()
	require.NoError(tb, err)
	return rows
}

func TestRunEndToEnd(t *testing.T) {
	const tMax = "1713553445000"
	const tMinusDay = "1713467045000"

	dir := t.TempDir()
	input := writePostings(t, dir, [][]string{
		{"1", "Acme", "Engineer", "build things", "Austin", "Full-Time", "Mid", "1", "", "", "", "", "", tMax, ""},
		{"2", "Globex", "Analyst", "analyze things", "Denver", "Contract", "", "0", "", "", "", "", "", tMinusDay, ""},
		{"", "Initech", "Manager", "manage things", "Remote", "full-time", "", "1", "", "", "", "", "", tMax, ""},
	})
	outDir := filepath.Join(dir, "output")

	cfg := pipeline.Config{InputPath: input, OutputDir: outDir, SampleRows: 5000}
	err := pipeline.New(cfg, zap.NewNop()).Run(context.Background())
	require.NoError(t, err)

	// Sample: all three rows survive on the full-feature table, including
	// the row with a null job_id that the core cleaning drops.
	sample := readCSV(t, filepath.Join(outDir, storage.SampleFile))
	require.Len(t, sample, 4)

	cols := make(map[string]int, len(sample[0]))
	for i, name := range sample[0] {
		cols[name] = i
	}
	require.Contains(t, cols, "is_remote")
	require.Contains(t, cols, "original_listed_time_dt")
	require.Contains(t, cols, "posting_age_days")

	var isRemote, age []string
	for _, row := range sample[1:] {
		isRemote = append(isRemote, row[cols["is_remote"]])
		age = append(age, row[cols["posting_age_days"]])
	}
	assert.Equal(t, []string{"true", "false", "true"}, isRemote)
	assert.Equal(t, []string{"0", "1", "0"}, age)

	// Average posting age by remote status, ascending by age.
	ages := readCSV(t, filepath.Join(outDir, storage.AgeByRemoteFile))
	require.Len(t, ages, 3)
	assert.Equal(t, []string{"is_remote", "avg_posting_age_days"}, ages[0])
	assert.Equal(t, []string{"true", "0"}, ages[1])
	assert.Equal(t, []string{"false", "1"}, ages[2])

	// Remote share by work type, descending, with normalized keys.
	shares := readCSV(t, filepath.Join(outDir, storage.WorkTypeShareFile))
	require.Len(t, shares, 3)
	assert.Equal(t, []string{"work_type", "remote_share"}, shares[0])
	assert.Equal(t, []string{"full-time", "1"}, shares[1])
	assert.Equal(t, []string{"contract", "0"}, shares[2])
}

func TestRunSampleRowLimit(t *testing.T) {
	dir := t.TempDir()
	rows := make([][]string, 10)
	for i := range rows {
		rows[i] = []string{"1", "Acme", "Engineer", "", "Austin", "Full-Time", "", "1", "", "", "", "", "", "1713553445000", ""}
	}
	input := writePostings(t, dir, rows)
	outDir := filepath.Join(dir, "output")

	cfg := pipeline.Config{InputPath: input, OutputDir: outDir, SampleRows: 4}
	require.NoError(t, pipeline.New(cfg, zap.NewNop()).Run(context.Background()))

	sample := readCSV(t, filepath.Join(outDir, storage.SampleFile))
	assert.Len(t, sample, 5, "header plus min(limit, rows) data rows")
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	cfg := pipeline.Config{
		InputPath:  filepath.Join(dir, "absent.csv"),
		OutputDir:  filepath.Join(dir, "output"),
		SampleRows: pipeline.DefaultSampleRows,
	}

	err := pipeline.New(cfg, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsIO(err))

	_, statErr := os.Stat(cfg.OutputDir)
	assert.True(t, os.IsNotExist(statErr), "no partial output on failure")
}

func TestRunMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "postings.csv")
	require.NoError(t, os.WriteFile(path, []byte("job_id,title\n1,Engineer\n"), 0o644))

	cfg := pipeline.Config{
		InputPath:  path,
		OutputDir:  filepath.Join(dir, "output"),
		SampleRows: pipeline.DefaultSampleRows,
	}

	err := pipeline.New(cfg, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errdefs.IsSchema(err))
}

func TestDefaultConfig(t *testing.T) {
	cfg := pipeline.DefaultConfig()
	assert.Equal(t, "data/postings.csv", cfg.InputPath)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 5000, cfg.SampleRows)
}

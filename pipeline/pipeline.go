// Package pipeline runs the batch transform end to end: load, select,
// audit, clean, derive, aggregate, export. Stages are strictly
// sequential; each consumes the table the previous stage returned.
package pipeline

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/jobsignals/postpipe/analytics"
	"github.com/jobsignals/postpipe/audit"
	"github.com/jobsignals/postpipe/clean"
	"github.com/jobsignals/postpipe/derive"
	"github.com/jobsignals/postpipe/storage"
	"github.com/jobsignals/postpipe/table"
)

// WorkingColumns is the fixed selection applied to the loaded table.
// All-or-nothing: a missing name aborts the run with a schema error.
var WorkingColumns = []string{
	"job_id",
	"company_name",
	"title",
	"description",
	"location",
	"work_type",
	"formatted_experience_level",
	"remote_allowed",
	"min_salary",
	"med_salary",
	"max_salary",
	"pay_period",
	"currency",
	"original_listed_time",
}

var stageLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "postpipe_stage_latency_seconds",
	Help: "Pipeline stage latency distribution",
}, []string{"stage"})

func init() {
	// Register Prometheus metrics.
	prometheus.MustRegister(stageLatency)
}

// Defaults match the fixed relative paths of the batch run.
const (
	DefaultInputPath  = "data/postings.csv"
	DefaultOutputDir  = "output"
	DefaultSampleRows = 5000
)

// Config holds the run parameters.
type Config struct {
	InputPath  string
	OutputDir  string
	SampleRows int
}

// DefaultConfig returns the standard batch configuration.
func DefaultConfig() Config {
	return Config{
		InputPath:  DefaultInputPath,
		OutputDir:  DefaultOutputDir,
		SampleRows: DefaultSampleRows,
	}
}

// Pipeline executes one run over one dataset held entirely in memory.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a pipeline with the given configuration and logger.
func New(cfg Config, logger *zap.Logger) *Pipeline {
	return &Pipeline{cfg: cfg, logger: logger}
}

// Run executes the whole transform. The first failing stage aborts the
// run; no partial-success signaling is attempted.
func (p *Pipeline) Run(ctx context.Context) error {
	loaded, err := p.load()
	if err != nil {
		return err
	}
	defer loaded.Release()

	working, err := p.selectWorking(loaded)
	if err != nil {
		return err
	}
	defer working.Release()

	p.auditMissingness(working)

	core, err := p.cleanCore(working)
	if err != nil {
		return err
	}
	// The core subset exists for the audit and cleaning invariants only;
	// downstream features and exports derive from the working table.
	p.logger.Info("cleaned core subset",
		zap.Int("rows", core.NumRows()),
		zap.Strings("columns", core.ColumnNames()))
	core.Release()

	full, err := p.deriveFeatures(working)
	if err != nil {
		return err
	}
	defer full.Release()

	if err := p.aggregateAndExport(full); err != nil {
		return err
	}

	p.logger.Info("pipeline complete", zap.String("output_dir", p.cfg.OutputDir))
	return nil
}

func (p *Pipeline) load() (*table.Table, error) {
	start := time.Now()
	loaded, err := storage.LoadPostings(p.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	stageLatency.WithLabelValues("load").Observe(time.Since(start).Seconds())

	p.logger.Info("loaded postings",
		zap.String("path", p.cfg.InputPath),
		zap.Int("rows", loaded.NumRows()),
		zap.Int("columns", len(loaded.ColumnNames())))
	return loaded, nil
}

func (p *Pipeline) selectWorking(loaded *table.Table) (*table.Table, error) {
	start := time.Now()
	working, err := loaded.Select(WorkingColumns...)
	if err != nil {
		return nil, err
	}
	stageLatency.WithLabelValues("select").Observe(time.Since(start).Seconds())

	p.logger.Info("selected working columns", zap.Int("columns", len(WorkingColumns)))
	return working, nil
}

func (p *Pipeline) auditMissingness(working *table.Table) {
	start := time.Now()
	report := audit.Missingness(working)
	stageLatency.WithLabelValues("audit").Observe(time.Since(start).Seconds())

	for _, entry := range report {
		p.logger.Info("missing values",
			zap.String("column", entry.Column),
			zap.Int("count", entry.MissingCount),
			zap.Float64("pct", entry.MissingPct))
	}
}

func (p *Pipeline) cleanCore(working *table.Table) (*table.Table, error) {
	start := time.Now()

	core := clean.DropSparseColumns(working)
	core, err := clean.DropIncompleteRows(core)
	if err != nil {
		return nil, err
	}
	core, err = clean.NormalizeText(core)
	if err != nil {
		return nil, err
	}
	core, err = clean.ConvertListedTime(core, "original_listed_time", arrow.Millisecond)
	if err != nil {
		return nil, err
	}

	stageLatency.WithLabelValues("clean").Observe(time.Since(start).Seconds())
	return core, nil
}

func (p *Pipeline) deriveFeatures(working *table.Table) (*table.Table, error) {
	start := time.Now()

	full, err := derive.WithIsRemote(working, "remote_allowed")
	if err != nil {
		return nil, err
	}
	full, err = derive.WithListedTimeDT(full, "original_listed_time")
	if err != nil {
		return nil, err
	}
	full, err = derive.WithPostingAge(full)
	if err != nil {
		return nil, err
	}

	stageLatency.WithLabelValues("derive").Observe(time.Since(start).Seconds())
	p.logger.Info("derived features",
		zap.Int("rows", full.NumRows()),
		zap.Strings("columns", []string{derive.ColIsRemote, derive.ColListedTimeDT, derive.ColPostingAge}))
	return full, nil
}

func (p *Pipeline) aggregateAndExport(full *table.Table) error {
	start := time.Now()

	share, err := analytics.RemoteShare(full)
	if err != nil {
		return err
	}
	ages, err := analytics.PostingAgeByRemote(full)
	if err != nil {
		return err
	}
	shares, err := analytics.RemoteShareByWorkType(full)
	if err != nil {
		return err
	}
	stageLatency.WithLabelValues("aggregate").Observe(time.Since(start).Seconds())

	p.logger.Info("remote share", zap.Float64("pct", share))
	for _, entry := range ages {
		p.logger.Info("avg posting age",
			zap.Bool("is_remote", entry.IsRemote),
			zap.Float64("days", entry.AvgPostingAgeDays))
	}

	start = time.Now()
	if err := storage.EnsureOutputDir(p.cfg.OutputDir); err != nil {
		return err
	}
	if err := storage.WriteSample(p.cfg.OutputDir, full, p.cfg.SampleRows); err != nil {
		return err
	}
	if err := storage.WriteWorkTypeShares(p.cfg.OutputDir, shares); err != nil {
		return err
	}
	if err := storage.WritePostingAgeByRemote(p.cfg.OutputDir, ages); err != nil {
		return err
	}
	stageLatency.WithLabelValues("export").Observe(time.Since(start).Seconds())

	p.logger.Info("exported artifacts",
		zap.String("dir", p.cfg.OutputDir),
		zap.Int("sample_rows", min(p.cfg.SampleRows, full.NumRows())),
		zap.Int("work_types", len(shares)))
	return nil
}

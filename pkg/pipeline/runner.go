package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/saturnines/domo-export/pkg/combine"
	"github.com/saturnines/domo-export/pkg/config"
	"github.com/saturnines/domo-export/pkg/output"
)

// Stage is the furthest point a run reached
type Stage int

const (
	StageInit Stage = iota
	StageAuthenticated
	StageListed
	StageExporting
	StageCombined
	StageSaved
	StagePreviewed
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageAuthenticated:
		return "authenticated"
	case StageListed:
		return "listed"
	case StageExporting:
		return "exporting"
	case StageCombined:
		return "combined"
	case StageSaved:
		return "saved"
	case StagePreviewed:
		return "previewed"
	default:
		return "unknown"
	}
}

// Source is the remote side of a run
type Source interface {
	Authenticate(ctx context.Context) (string, error)
	ListDatasets(ctx context.Context) ([]string, error)
	combine.Exporter
}

// Result describes a finished or aborted run
type Result struct {
	Stage    Stage
	Datasets []string
	Summary  combine.Summary
	Path     string
	Written  bool
	Preview  []string
}

// Runner orchestrates one run: authenticate → list → export each → combine → save → preview.
type Runner struct {
	cfg    *config.Config
	source Source
	writer *output.Writer
	logger *zap.Logger
}

// NewRunner creates a Runner
func NewRunner(cfg *config.Config, source Source, writer *output.Writer, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:    cfg,
		source: source,
		writer: writer,
		logger: logger,
	}
}

// Run executes the whole flow. Errors before the export loop abort the run;
// a failed export only drops that dataset.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res := &Result{Stage: StageInit, Path: r.cfg.Output.Path}

	if _, err := r.source.Authenticate(ctx); err != nil {
		r.logger.Error("Authentication failed", zap.Error(err))
		return res, err
	}
	res.Stage = StageAuthenticated

	ids, err := r.source.ListDatasets(ctx)
	if err != nil {
		r.logger.Error("Listing datasets failed", zap.Error(err))
		return res, err
	}
	res.Stage = StageListed
	res.Datasets = ids

	if len(ids) == 0 {
		r.logger.Info("no datasets found")
		return res, nil
	}
	r.logger.Info("datasets found", zap.Int("count", len(ids)))

	res.Stage = StageExporting
	combined, summary, err := combine.Combine(ctx, r.source, ids, r.cfg.Export)
	res.Summary = summary
	if err != nil {
		r.logger.Error("Export interrupted", zap.Error(err), zap.Int("exported", summary.Exported))
		return res, err
	}
	res.Stage = StageCombined

	if summary.Exported == 0 {
		r.logger.Warn("every export was empty, writing an empty file", zap.Int("datasets", summary.Datasets))
	} else if len(summary.Skipped) > 0 {
		r.logger.Warn("datasets skipped", zap.Strings("dataset_ids", summary.Skipped))
	}

	if err := r.writer.Save(res.Path, combined); err != nil {
		r.logger.Error("Saving combined CSV failed", zap.Error(err))
		return res, err
	}
	res.Stage = StageSaved
	res.Written = true
	r.logger.Info("combined CSV saved",
		zap.String("path", res.Path),
		zap.Int("datasets", summary.Exported),
		zap.Int("rows", summary.Rows),
	)

	n := r.cfg.Output.PreviewLines()
	if n <= 0 {
		return res, nil
	}
	preview, err := r.writer.Preview(res.Path, n)
	if err != nil {
		r.logger.Error("Preview failed", zap.Error(err))
		return res, err
	}
	res.Preview = preview
	res.Stage = StagePreviewed

	return res, nil
}

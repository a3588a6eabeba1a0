package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/score"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

// ScoreOptions control one scoring run.
type ScoreOptions struct {
	Offset      int    // skip this many rows of the window
	Limit       int    // cap the window at this many rows, 0 = no cap
	BatchSize   int    // records per backend call
	Parallelism int    // concurrent backend calls, <= 1 = sequential
	Rescore     bool   // window all rows, overwriting existing scores
	Profile     string // candidate profile text for the prompt
}

// RunStats summarizes one scoring run.
type RunStats struct {
	Batches   int // batches merged into the table
	Scored    int // rows that received a score
	Unmatched int // backend results that matched no row
	Remaining int // unscored rows left in the table
}

// Runner drives batched scoring: plan windows over the unscored rows, call
// the backend per batch, and merge results back into the table on disk.
type Runner struct {
	scorer     *score.Scorer
	inputPath  string
	outputPath string
	timeout    time.Duration
	logger     *slog.Logger
}

// NewRunner creates a scoring runner. timeout bounds each backend call.
func NewRunner(scorer *score.Scorer, inputPath, outputPath string, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{
		scorer:     scorer,
		inputPath:  inputPath,
		outputPath: outputPath,
		timeout:    timeout,
		logger:     logger,
	}
}

// Run executes one scoring run. Batches merge in plan order, and every
// merged batch is persisted before a later batch's failure surfaces, so a
// failed run resumes where it stopped.
func (r *Runner) Run(ctx context.Context, opts ScoreOptions) (RunStats, error) {
	var stats RunStats

	tbl, err := table.Load(r.inputPath)
	if err != nil {
		return stats, err
	}
	if r.outputPath != r.inputPath {
		if err := overlayScores(tbl, r.outputPath); err != nil {
			return stats, err
		}
	}

	batches := score.Plan(tbl, opts.Offset, opts.Limit, opts.BatchSize, opts.Rescore)
	if len(batches) == 0 {
		r.logger.Info("nothing to score", "rows", tbl.Len(), "unscored", len(tbl.Unscored()))
		return stats, nil
	}

	if opts.Parallelism > 1 {
		err = r.runParallel(ctx, tbl, batches, opts, &stats)
	} else {
		err = r.runSequential(ctx, tbl, batches, opts, &stats)
	}
	stats.Remaining = len(tbl.Unscored())
	if err != nil {
		return stats, err
	}

	r.logger.Info("scoring complete",
		"batches", stats.Batches,
		"scored", stats.Scored,
		"unmatched", stats.Unmatched,
		"remaining", stats.Remaining,
	)
	return stats, nil
}

func (r *Runner) runSequential(ctx context.Context, tbl *table.Table, batches []score.Batch, opts ScoreOptions, stats *RunStats) error {
	for _, batch := range batches {
		results, err := r.scoreBatch(ctx, batch, opts.Profile)
		if err != nil {
			return &model.ScoringError{Offset: batch.Offset, Err: err}
		}

		merged := score.Merge(tbl, results, opts.Rescore)
		stats.Batches++
		stats.Scored += merged.Applied
		stats.Unmatched += merged.Unmatched
		if err := tbl.Save(r.outputPath); err != nil {
			return err
		}

		r.logger.Info("batch scored",
			"offset", batch.Offset,
			"size", len(batch.Records),
			"applied", merged.Applied,
		)
	}
	return nil
}

type batchOutcome struct {
	results []model.ScoreResult
	err     error
}

// runParallel scores batches concurrently but merges strictly in plan
// order, stopping at the first failed batch. What lands on disk is always
// a clean prefix of the run, the same as a sequential run that stopped
// there.
func (r *Runner) runParallel(ctx context.Context, tbl *table.Table, batches []score.Batch, opts ScoreOptions, stats *RunStats) error {
	outcomes := make([]batchOutcome, len(batches))
	var g errgroup.Group
	g.SetLimit(opts.Parallelism)
	for i, batch := range batches {
		g.Go(func() error {
			results, err := r.scoreBatch(ctx, batch, opts.Profile)
			outcomes[i] = batchOutcome{results: results, err: err}
			return nil
		})
	}
	_ = g.Wait() // per-batch errors live in outcomes

	var failed *model.ScoringError
	for i, out := range outcomes {
		if out.err != nil {
			failed = &model.ScoringError{Offset: batches[i].Offset, Err: out.err}
			break
		}
		merged := score.Merge(tbl, out.results, opts.Rescore)
		stats.Batches++
		stats.Scored += merged.Applied
		stats.Unmatched += merged.Unmatched
	}

	if err := tbl.Save(r.outputPath); err != nil {
		return err
	}
	if failed != nil {
		return failed
	}
	return nil
}

// overlayScores copies scores persisted by earlier runs at path onto the
// freshly loaded input rows. Ids absent from the input are dropped, so the
// input stays authoritative for table membership.
func overlayScores(tbl *table.Table, path string) error {
	prev, err := table.Load(path)
	if err != nil {
		return err
	}
	for _, rec := range prev.Rows() {
		if rec.Scored() {
			tbl.SetScore(rec.ID, *rec.Score, rec.ScoreReason)
		}
	}
	return nil
}

func (r *Runner) scoreBatch(ctx context.Context, batch score.Batch, profile string) ([]model.ScoreResult, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.scorer.Score(ctx, batch, profile)
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/normalize"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

// Collector owns the full collection pipeline: fetch from every source,
// filter, normalize, merge into the table on disk, and notify about records
// the seen store has not recorded yet.
type Collector struct {
	sources      []model.PostingSource
	filter       model.PostingFilter
	seen         model.SeenStore
	notifier     model.Notifier
	tablePath    string
	maxPerSource int
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewCollector creates a collector wired with all its dependencies.
// maxPerSource caps how many postings are taken from one source per run;
// zero means no cap.
func NewCollector(
	sources []model.PostingSource,
	filter model.PostingFilter,
	seen model.SeenStore,
	notifier model.Notifier,
	tablePath string,
	maxPerSource int,
	fetchTimeout time.Duration,
	logger *slog.Logger,
) *Collector {
	return &Collector{
		sources:      sources,
		filter:       filter,
		seen:         seen,
		notifier:     notifier,
		tablePath:    tablePath,
		maxPerSource: maxPerSource,
		fetchTimeout: fetchTimeout,
		logger:       logger,
	}
}

// CollectStats summarizes one collection pass.
type CollectStats struct {
	Fetched  int // raw postings returned by all sources
	Failed   int // sources that returned an error
	Matched  int // postings that passed the keyword filter
	Skipped  int // matched postings dropped as malformed
	Added    int // new rows inserted into the table
	Notified int // records sent to the notifier
}

type fetchResult struct {
	source   string
	postings []model.RawPosting
	err      error
}

// Run executes one collection pass. Source failures and malformed postings
// are logged and skipped; only table IO and seen-store failures abort the
// run, and the table is saved before notifications go out.
func (c *Collector) Run(ctx context.Context) (CollectStats, error) {
	var stats CollectStats

	fetched := c.fetchAll(ctx)

	tbl, err := table.Load(c.tablePath)
	if err != nil {
		return stats, err
	}

	var fresh []model.JobRecord
	inRun := make(map[string]bool)
	for _, res := range fetched {
		if res.err != nil {
			c.logger.Warn("source fetch failed", "source", res.source, "error", res.err)
			stats.Failed++
			continue
		}
		postings := res.postings
		if c.maxPerSource > 0 && len(postings) > c.maxPerSource {
			postings = postings[:c.maxPerSource]
		}
		stats.Fetched += len(postings)
		for _, p := range postings {
			if !c.filter.Match(p) {
				continue
			}
			stats.Matched++
			rec, err := normalize.Normalize(p)
			if err != nil {
				c.logger.Warn("skipping malformed posting", "source", p.Source, "error", err)
				stats.Skipped++
				continue
			}
			if inRun[rec.ID] {
				continue
			}
			inRun[rec.ID] = true
			fresh = append(fresh, rec)
		}
	}

	stats.Added = tbl.Upsert(fresh...)
	if err := tbl.Save(c.tablePath); err != nil {
		return stats, err
	}

	stats.Notified, err = c.notifyNew(fresh)
	if err != nil {
		return stats, err
	}

	c.logger.Info("collection complete",
		"sources", len(c.sources),
		"failed", stats.Failed,
		"fetched", stats.Fetched,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"added", stats.Added,
		"total", tbl.Len(),
		"notified", stats.Notified,
	)
	return stats, nil
}

// fetchAll queries every source concurrently. Each source gets its own slot
// and its own timeout so one slow or broken feed cannot take down the rest.
func (c *Collector) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(c.sources))
	var g errgroup.Group
	for i, src := range c.sources {
		g.Go(func() error {
			fctx := ctx
			if c.fetchTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(ctx, c.fetchTimeout)
				defer cancel()
			}
			postings, err := src.Fetch(fctx)
			results[i] = fetchResult{source: src.Name(), postings: postings, err: err}
			return nil
		})
	}
	_ = g.Wait() // per-source errors live in results
	return results
}

// notifyNew sends records the seen store has not recorded yet. An empty
// store means a first run: everything is marked seen without notifying so
// the initial collection does not flood the channel. Notification failures
// are logged, not fatal; unsent records stay unmarked and go out next run.
func (c *Collector) notifyNew(records []model.JobRecord) (int, error) {
	empty, err := c.seen.IsEmpty()
	if err != nil {
		return 0, fmt.Errorf("checking seen store: %w", err)
	}
	if empty {
		for _, rec := range records {
			if err := c.seen.MarkSeen(rec.ID); err != nil {
				return 0, fmt.Errorf("seeding seen store: %w", err)
			}
		}
		if len(records) > 0 {
			c.logger.Info("first run, seeding seen store without notifying", "records", len(records))
		}
		return 0, nil
	}

	var unseen []model.JobRecord
	for _, rec := range records {
		seen, err := c.seen.HasSeen(rec.ID)
		if err != nil {
			return 0, fmt.Errorf("checking seen status for %s: %w", rec.ID, err)
		}
		if !seen {
			unseen = append(unseen, rec)
		}
	}
	if len(unseen) == 0 {
		return 0, nil
	}

	if err := c.notifier.Notify(unseen); err != nil {
		c.logger.Error("notification failed", "records", len(unseen), "error", err)
		return 0, nil
	}
	for _, rec := range unseen {
		if err := c.seen.MarkSeen(rec.ID); err != nil {
			return len(unseen), fmt.Errorf("marking seen: %w", err)
		}
	}
	return len(unseen), nil
}

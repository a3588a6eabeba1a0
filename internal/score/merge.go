package score

import (
	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

// MergeStats summarizes one merge pass.
type MergeStats struct {
	Applied       int // results written onto rows
	Unmatched     int // results whose id is not in the table
	AlreadyScored int // results skipped because the row was already scored
}

// Merge writes results onto their table rows in place. Rows are never
// added, removed, or reordered. A result whose id is not in the table is
// counted and skipped, and an already-scored row keeps its existing score
// unless rescore is set, so merging the same results twice changes nothing
// and disjoint result sets can merge in any order.
func Merge(t *table.Table, results []model.ScoreResult, rescore bool) MergeStats {
	var stats MergeStats
	for _, res := range results {
		rec, ok := t.Get(res.ID)
		if !ok {
			stats.Unmatched++
			continue
		}
		if rec.Scored() && !rescore {
			stats.AlreadyScored++
			continue
		}
		t.SetScore(res.ID, res.Score, res.Reason)
		stats.Applied++
	}
	return stats
}

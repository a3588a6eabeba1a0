package score

import (
	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

// Batch is a consecutive window of records selected for one scoring call.
// Offset is the batch's position in the same coordinates the caller's
// offset uses, so a failed batch names its own resume point.
type Batch struct {
	Records []model.JobRecord
	Offset  int
}

// SelectBatch returns the next batch of up to maxSize unscored records,
// skipping the first offset unscored rows. An offset at or past the end of
// the unscored rows yields an empty batch.
func SelectBatch(t *table.Table, offset, maxSize int) Batch {
	batches := Plan(t, offset, maxSize, maxSize, false)
	if len(batches) == 0 {
		return Batch{Offset: offset}
	}
	return batches[0]
}

// Plan splits a scoring window into consecutive batches of batchSize
// records. The window is the table's unscored rows in table order (all rows
// when rescore is set), skipping the first offset rows and capped at limit
// rows when limit is positive.
func Plan(t *table.Table, offset, limit, batchSize int, rescore bool) []Batch {
	if batchSize < 1 {
		return nil
	}
	if offset < 0 {
		offset = 0
	}

	window := t.Unscored()
	if rescore {
		window = t.Rows()
	}
	if offset >= len(window) {
		return nil
	}
	window = window[offset:]
	if limit > 0 && limit < len(window) {
		window = window[:limit]
	}

	var batches []Batch
	for start := 0; start < len(window); start += batchSize {
		end := start + batchSize
		if end > len(window) {
			end = len(window)
		}
		batches = append(batches, Batch{
			Records: window[start:end],
			Offset:  offset + start,
		})
	}
	return batches
}

package score

import (
	"testing"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

func result(id string, score float64, reason string) model.ScoreResult {
	return model.ScoreResult{ID: id, Score: score, Reason: reason}
}

// sameRows compares two tables field by field, including score values.
func sameRows(t *testing.T, a, b *table.Table) {
	t.Helper()
	ra, rb := a.Rows(), b.Rows()
	if len(ra) != len(rb) {
		t.Fatalf("row counts differ: %d vs %d", len(ra), len(rb))
	}
	for i := range ra {
		if ra[i].ID != rb[i].ID || ra[i].ScoreReason != rb[i].ScoreReason {
			t.Errorf("row %d differs: %+v vs %+v", i, ra[i], rb[i])
		}
		switch {
		case ra[i].Score == nil && rb[i].Score == nil:
		case ra[i].Score != nil && rb[i].Score != nil && *ra[i].Score == *rb[i].Score:
		default:
			t.Errorf("row %d scores differ: %v vs %v", i, ra[i].Score, rb[i].Score)
		}
	}
}

func TestMerge_AppliesScores(t *testing.T) {
	tbl := tableOf(unscoredRec("a"), unscoredRec("b"))

	stats := Merge(tbl, []model.ScoreResult{result("a", 72, "good fit")}, false)
	if stats.Applied != 1 || stats.Unmatched != 0 || stats.AlreadyScored != 0 {
		t.Errorf("stats = %+v, want 1 applied", stats)
	}

	rec, _ := tbl.Get("a")
	if !rec.Scored() || *rec.Score != 72 || rec.ScoreReason != "good fit" {
		t.Errorf("a = %+v, want score 72", rec)
	}
	if rec, _ := tbl.Get("b"); rec.Scored() {
		t.Errorf("b = %+v, want unscored", rec)
	}
}

func TestMerge_UnmatchedIDSkipped(t *testing.T) {
	tbl := tableOf(unscoredRec("a"))

	stats := Merge(tbl, []model.ScoreResult{result("ghost", 90, "not in table")}, false)
	if stats.Unmatched != 1 || stats.Applied != 0 {
		t.Errorf("stats = %+v, want 1 unmatched", stats)
	}
	if tbl.Len() != 1 {
		t.Errorf("table len = %d, merge must never add rows", tbl.Len())
	}
}

func TestMerge_KeepsExistingScore(t *testing.T) {
	tbl := tableOf(scoredRec("a", 80))

	stats := Merge(tbl, []model.ScoreResult{result("a", 20, "second opinion")}, false)
	if stats.AlreadyScored != 1 || stats.Applied != 0 {
		t.Errorf("stats = %+v, want 1 already scored", stats)
	}

	rec, _ := tbl.Get("a")
	if *rec.Score != 80 || rec.ScoreReason != "already rated" {
		t.Errorf("a = %+v, existing score must survive", rec)
	}
}

func TestMerge_RescoreOverwrites(t *testing.T) {
	tbl := tableOf(scoredRec("a", 80))

	stats := Merge(tbl, []model.ScoreResult{result("a", 20, "second opinion")}, true)
	if stats.Applied != 1 {
		t.Errorf("stats = %+v, want 1 applied", stats)
	}

	rec, _ := tbl.Get("a")
	if *rec.Score != 20 || rec.ScoreReason != "second opinion" {
		t.Errorf("a = %+v, want overwritten score", rec)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	results := []model.ScoreResult{result("a", 72, "fit"), result("b", 30, "meh")}

	once := tableOf(unscoredRec("a"), unscoredRec("b"), unscoredRec("c"))
	Merge(once, results, false)

	twice := tableOf(unscoredRec("a"), unscoredRec("b"), unscoredRec("c"))
	Merge(twice, results, false)
	Merge(twice, results, false)

	sameRows(t, once, twice)
}

func TestMerge_CommutesOverDisjointIDs(t *testing.T) {
	first := []model.ScoreResult{result("a", 72, "fit")}
	second := []model.ScoreResult{result("b", 30, "meh")}

	ab := tableOf(unscoredRec("a"), unscoredRec("b"))
	Merge(ab, first, false)
	Merge(ab, second, false)

	ba := tableOf(unscoredRec("a"), unscoredRec("b"))
	Merge(ba, second, false)
	Merge(ba, first, false)

	sameRows(t, ab, ba)
}

func TestMerge_PreservesRowOrder(t *testing.T) {
	tbl := tableOf(unscoredRec("a"), unscoredRec("b"), unscoredRec("c"))

	Merge(tbl, []model.ScoreResult{result("c", 90, "best"), result("a", 10, "worst")}, false)

	rows := tbl.Rows()
	want := []string{"a", "b", "c"}
	for i, rec := range rows {
		if rec.ID != want[i] {
			t.Errorf("row %d id = %q, want %q", i, rec.ID, want[i])
		}
	}
}

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
	"github.com/cwu339-pixel/web3-job-collector/internal/table"
)

// --- Mock/Fake Implementations ---

// StubSource returns a canned slice of postings or an error.
type StubSource struct {
	SourceName string
	Postings   []model.RawPosting
	Err        error
}

func (s *StubSource) Name() string { return s.SourceName }

func (s *StubSource) Fetch(_ context.Context) ([]model.RawPosting, error) {
	return s.Postings, s.Err
}

// InMemoryStore is a map-based seen store for testing dedup.
type InMemoryStore struct {
	seen map[string]bool
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{seen: make(map[string]bool)}
}

func (s *InMemoryStore) HasSeen(id string) (bool, error) {
	return s.seen[id], nil
}

func (s *InMemoryStore) MarkSeen(id string) error {
	s.seen[id] = true
	return nil
}

func (s *InMemoryStore) Cleanup(_ time.Duration) error { return nil }

func (s *InMemoryStore) IsEmpty() (bool, error) {
	return len(s.seen) == 0, nil
}

// nonEmptyStore returns a store with a dummy entry so it is not treated as a first run.
func nonEmptyStore() *InMemoryStore {
	s := NewInMemoryStore()
	s.MarkSeen("__seed__")
	return s
}

// RecordingNotifier records which records were sent to Notify.
type RecordingNotifier struct {
	Notified []model.JobRecord
	Err      error
}

func (n *RecordingNotifier) Notify(records []model.JobRecord) error {
	if n.Err != nil {
		return n.Err
	}
	n.Notified = append(n.Notified, records...)
	return nil
}

// AcceptAllFilter matches every posting.
type AcceptAllFilter struct{}

func (f *AcceptAllFilter) Match(_ model.RawPosting) bool { return true }

// RejectAllFilter rejects every posting.
type RejectAllFilter struct{}

func (f *RejectAllFilter) Match(_ model.RawPosting) bool { return false }

// --- Helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makePostings(source string, ids ...string) []model.RawPosting {
	postings := make([]model.RawPosting, len(ids))
	for i, id := range ids {
		postings[i] = model.RawPosting{
			Source:     source,
			ExternalID: id,
			Title:      "Solidity Engineer " + id,
			Company:    "testco",
			Location:   "Remote",
			URL:        "https://example.com/" + id,
		}
	}
	return postings
}

func newCollector(t *testing.T, sources []model.PostingSource, filter model.PostingFilter, seen model.SeenStore, notifier model.Notifier) (*Collector, string) {
	t.Helper()
	tablePath := filepath.Join(t.TempDir(), "jobs.csv")
	c := NewCollector(sources, filter, seen, notifier, tablePath, 0, time.Second, discardLogger())
	return c, tablePath
}

// --- Tests ---

func TestCollect_WritesTableAndNotifies(t *testing.T) {
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1", "2")},
		&StubSource{SourceName: "beta", Postings: makePostings("beta", "3")},
	}
	store := nonEmptyStore()
	notifier := &RecordingNotifier{}
	c, tablePath := newCollector(t, sources, &AcceptAllFilter{}, store, notifier)

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Fetched != 3 || stats.Added != 3 || stats.Notified != 3 {
		t.Errorf("stats = %+v, want 3 fetched/added/notified", stats)
	}

	tbl, err := table.Load(tablePath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tbl.Len() != 3 {
		t.Errorf("table len = %d, want 3", tbl.Len())
	}
	if _, ok := tbl.Get("alpha-1"); !ok {
		t.Error("expected alpha-1 in table")
	}

	if len(notifier.Notified) != 3 {
		t.Errorf("notified = %d, want 3", len(notifier.Notified))
	}
	for _, id := range []string{"alpha-1", "alpha-2", "beta-3"} {
		if seen, _ := store.HasSeen(id); !seen {
			t.Errorf("record %s should be marked seen", id)
		}
	}
}

func TestCollect_SourceFailureIsIsolated(t *testing.T) {
	sources := []model.PostingSource{
		&StubSource{SourceName: "broken", Err: errors.New("network down")},
		&StubSource{SourceName: "healthy", Postings: makePostings("healthy", "1")},
	}
	c, tablePath := newCollector(t, sources, &AcceptAllFilter{}, nonEmptyStore(), &RecordingNotifier{})

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Failed != 1 || stats.Added != 1 {
		t.Errorf("stats = %+v, want 1 failed source and 1 added row", stats)
	}

	tbl, _ := table.Load(tablePath)
	if tbl.Len() != 1 {
		t.Errorf("table len = %d, want 1 row from the healthy source", tbl.Len())
	}
}

func TestCollect_MalformedPostingSkipped(t *testing.T) {
	postings := makePostings("alpha", "1")
	postings = append(postings, model.RawPosting{Source: "alpha", ExternalID: "2"}) // no title
	sources := []model.PostingSource{&StubSource{SourceName: "alpha", Postings: postings}}
	c, tablePath := newCollector(t, sources, &AcceptAllFilter{}, nonEmptyStore(), &RecordingNotifier{})

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Skipped != 1 || stats.Added != 1 {
		t.Errorf("stats = %+v, want 1 skipped and 1 added", stats)
	}

	tbl, _ := table.Load(tablePath)
	if tbl.Len() != 1 {
		t.Errorf("table len = %d, want 1", tbl.Len())
	}
}

func TestCollect_DedupesWithinRun(t *testing.T) {
	// Two sources hand back the same posting id.
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1")},
		&StubSource{SourceName: "mirror", Postings: makePostings("alpha", "1")},
	}
	c, tablePath := newCollector(t, sources, &AcceptAllFilter{}, nonEmptyStore(), &RecordingNotifier{})

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Added != 1 {
		t.Errorf("added = %d, want 1", stats.Added)
	}

	tbl, _ := table.Load(tablePath)
	if tbl.Len() != 1 {
		t.Errorf("table len = %d, want 1", tbl.Len())
	}
}

func TestCollect_RefetchKeepsExistingScore(t *testing.T) {
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1")},
	}
	c, tablePath := newCollector(t, sources, &AcceptAllFilter{}, nonEmptyStore(), &RecordingNotifier{})

	// Seed the table with an already-scored copy of the posting.
	seeded := table.New()
	score := 85.0
	seeded.Upsert(model.JobRecord{ID: "alpha-1", Title: "Old Title", Source: "alpha", Score: &score, ScoreReason: "good"})
	if err := seeded.Save(tablePath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	tbl, _ := table.Load(tablePath)
	rec, ok := tbl.Get("alpha-1")
	if !ok {
		t.Fatal("alpha-1 missing after refetch")
	}
	if !rec.Scored() || *rec.Score != 85 {
		t.Errorf("score = %v, want 85 preserved across refetch", rec.Score)
	}
	if rec.Title != "Solidity Engineer 1" {
		t.Errorf("title = %q, want refreshed title", rec.Title)
	}
}

func TestCollect_FirstRunSeedsWithoutNotifying(t *testing.T) {
	store := NewInMemoryStore() // empty = first run
	notifier := &RecordingNotifier{}
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1", "2")},
	}
	c, _ := newCollector(t, sources, &AcceptAllFilter{}, store, notifier)

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Notified != 0 || len(notifier.Notified) != 0 {
		t.Error("notifier should not be called on first run (seeding)")
	}
	for _, id := range []string{"alpha-1", "alpha-2"} {
		if seen, _ := store.HasSeen(id); !seen {
			t.Errorf("record %s should be marked seen after seeding", id)
		}
	}
}

func TestCollect_AlreadySeenNotRenotified(t *testing.T) {
	store := nonEmptyStore()
	store.MarkSeen("alpha-1")
	notifier := &RecordingNotifier{}
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1", "2")},
	}
	c, _ := newCollector(t, sources, &AcceptAllFilter{}, store, notifier)

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Notified != 1 {
		t.Errorf("notified = %d, want 1", stats.Notified)
	}
	if len(notifier.Notified) != 1 || notifier.Notified[0].ID != "alpha-2" {
		t.Errorf("notified records = %+v, want only alpha-2", notifier.Notified)
	}
}

func TestCollect_FilterRejectsAll(t *testing.T) {
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1", "2")},
	}
	c, tablePath := newCollector(t, sources, &RejectAllFilter{}, nonEmptyStore(), &RecordingNotifier{})

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Matched != 0 || stats.Added != 0 {
		t.Errorf("stats = %+v, want nothing matched or added", stats)
	}

	tbl, _ := table.Load(tablePath)
	if tbl.Len() != 0 {
		t.Errorf("table len = %d, want 0", tbl.Len())
	}
}

func TestCollect_NotifierFailureDoesNotFailRun(t *testing.T) {
	store := nonEmptyStore()
	notifier := &RecordingNotifier{Err: errors.New("webhook down")}
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1")},
	}
	c, tablePath := newCollector(t, sources, &AcceptAllFilter{}, store, notifier)

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Notified != 0 {
		t.Errorf("notified = %d, want 0 on failure", stats.Notified)
	}

	// Table still written, record not marked seen so it retries next run.
	tbl, _ := table.Load(tablePath)
	if tbl.Len() != 1 {
		t.Errorf("table len = %d, want 1", tbl.Len())
	}
	if seen, _ := store.HasSeen("alpha-1"); seen {
		t.Error("record should stay unseen after a failed notification")
	}
}

func TestCollect_MaxPerSourceCapsFetch(t *testing.T) {
	sources := []model.PostingSource{
		&StubSource{SourceName: "alpha", Postings: makePostings("alpha", "1", "2", "3", "4")},
		&StubSource{SourceName: "beta", Postings: makePostings("beta", "5")},
	}
	tablePath := filepath.Join(t.TempDir(), "jobs.csv")
	c := NewCollector(sources, &AcceptAllFilter{}, nonEmptyStore(), &RecordingNotifier{}, tablePath, 2, time.Second, discardLogger())

	stats, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Fetched != 3 {
		t.Errorf("fetched = %d, want 3 (alpha capped at 2, beta 1)", stats.Fetched)
	}

	tbl, _ := table.Load(tablePath)
	if tbl.Len() != 3 {
		t.Errorf("table len = %d, want 3", tbl.Len())
	}
	if _, ok := tbl.Get("alpha-3"); ok {
		t.Error("alpha-3 is past the per-source cap, should not be in the table")
	}
}

package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// Columns is the on-disk schema, in order. Load locates columns by header
// name so reordered files still parse; Save always writes this order.
var Columns = []string{
	"id", "title", "company", "location", "description",
	"url", "source", "posted_at", "score", "score_reason",
}

// Table is an in-memory keyed table of job records. Rows keep their
// insertion order; at most one row exists per id.
type Table struct {
	rows  []model.JobRecord
	index map[string]int // id -> position in rows
}

// New returns an empty table.
func New() *Table {
	return &Table{index: make(map[string]int)}
}

// Load reads the table at path. A missing file yields an empty table (first
// run); any other read or schema problem is a TableIOError.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(), nil
		}
		return nil, &model.TableIOError{Op: "load", Path: path, Err: err}
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return New(), nil
	}
	if err != nil {
		return nil, &model.TableIOError{Op: "load", Path: path, Err: fmt.Errorf("read header: %w", err)}
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range Columns {
		if _, ok := col[name]; !ok {
			return nil, &model.TableIOError{Op: "load", Path: path, Err: fmt.Errorf("missing column %q", name)}
		}
	}

	t := New()
	for line := 2; ; line++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &model.TableIOError{Op: "load", Path: path, Err: fmt.Errorf("line %d: %w", line, err)}
		}

		rec, err := parseRow(row, col)
		if err != nil {
			return nil, &model.TableIOError{Op: "load", Path: path, Err: fmt.Errorf("line %d: %w", line, err)}
		}
		// Duplicate ids on disk resolve like an upsert: last row wins.
		t.Upsert(rec)
	}
	return t, nil
}

func parseRow(row []string, col map[string]int) (model.JobRecord, error) {
	field := func(name string) string {
		i := col[name]
		if i >= len(row) {
			return ""
		}
		return row[i]
	}

	rec := model.JobRecord{
		ID:          field("id"),
		Title:       field("title"),
		Company:     field("company"),
		Location:    field("location"),
		Description: field("description"),
		URL:         field("url"),
		Source:      field("source"),
		ScoreReason: field("score_reason"),
	}
	if rec.ID == "" {
		return model.JobRecord{}, fmt.Errorf("empty id")
	}

	if raw := field("posted_at"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return model.JobRecord{}, fmt.Errorf("posted_at %q: %w", raw, err)
		}
		rec.PostedAt = &ts
	}

	if raw := field("score"); raw != "" {
		score, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.JobRecord{}, fmt.Errorf("score %q: %w", raw, err)
		}
		rec.Score = &score
	}

	return rec, nil
}

// Save writes the full table to path atomically: rows go to a temp file in
// the destination directory first, which is then renamed over path. A
// concurrent reader never observes a truncated table.
func (t *Table) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return &model.TableIOError{Op: "save", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	w := csv.NewWriter(tmp)
	if err := w.Write(Columns); err != nil {
		tmp.Close()
		return &model.TableIOError{Op: "save", Path: path, Err: err}
	}
	for _, rec := range t.rows {
		if err := w.Write(formatRow(rec)); err != nil {
			tmp.Close()
			return &model.TableIOError{Op: "save", Path: path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return &model.TableIOError{Op: "save", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &model.TableIOError{Op: "save", Path: path, Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		return &model.TableIOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

func formatRow(rec model.JobRecord) []string {
	postedAt := ""
	if rec.PostedAt != nil {
		postedAt = rec.PostedAt.UTC().Format(time.RFC3339)
	}
	score := ""
	if rec.Score != nil {
		score = strconv.FormatFloat(*rec.Score, 'f', -1, 64)
	}
	return []string{
		rec.ID, rec.Title, rec.Company, rec.Location, rec.Description,
		rec.URL, rec.Source, postedAt, score, rec.ScoreReason,
	}
}

// Upsert inserts records by id, replacing existing rows in place. Insertion
// order is preserved for new rows. When the incoming record is unscored and
// the existing row is scored, the existing score and reason carry over so a
// re-fetch never downgrades a scored row. Returns the number of newly
// inserted rows.
func (t *Table) Upsert(records ...model.JobRecord) int {
	added := 0
	for _, rec := range records {
		if rec.ID == "" {
			continue
		}
		pos, ok := t.index[rec.ID]
		if !ok {
			t.index[rec.ID] = len(t.rows)
			t.rows = append(t.rows, rec)
			added++
			continue
		}
		if !rec.Scored() && t.rows[pos].Scored() {
			rec.Score = t.rows[pos].Score
			rec.ScoreReason = t.rows[pos].ScoreReason
		}
		t.rows[pos] = rec
	}
	return added
}

// Get returns the record with the given id.
func (t *Table) Get(id string) (model.JobRecord, bool) {
	pos, ok := t.index[id]
	if !ok {
		return model.JobRecord{}, false
	}
	return t.rows[pos], true
}

// SetScore sets the score and reason on the row with the given id. Returns
// false when no such row exists.
func (t *Table) SetScore(id string, score float64, reason string) bool {
	pos, ok := t.index[id]
	if !ok {
		return false
	}
	t.rows[pos].Score = &score
	t.rows[pos].ScoreReason = reason
	return true
}

// Rows returns a copy of all rows in table order.
func (t *Table) Rows() []model.JobRecord {
	out := make([]model.JobRecord, len(t.rows))
	copy(out, t.rows)
	return out
}

// Unscored returns the unscored rows in table order.
func (t *Table) Unscored() []model.JobRecord {
	var out []model.JobRecord
	for _, rec := range t.rows {
		if !rec.Scored() {
			out = append(out, rec)
		}
	}
	return out
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

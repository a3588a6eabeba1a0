package model

import (
	"context"
	"time"
)

// JobRecord is the canonical representation of a posting from any source.
type JobRecord struct {
	ID          string     // stable identity: source-provided external id, or derived
	Title       string     // job title
	Company     string     // company name
	Location    string     // location string
	Description string     // plain-text description (HTML stripped)
	URL         string     // direct listing link
	Source      string     // source name
	PostedAt    *time.Time // nullable (not all feeds provide this)
	Score       *float64   // relevance score, nil until scored
	ScoreReason string     // backend rationale for the score
}

// Scored reports whether the record has been scored.
func (r JobRecord) Scored() bool {
	return r.Score != nil
}

// RawPosting is the semi-structured payload a source hands to the normalizer.
// Field values are carried as the source provided them: Description may be
// HTML, PostedAt is unparsed text.
type RawPosting struct {
	Source      string
	ExternalID  string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	PostedAt    string
	Tags        []string
}

// ScoreResult is one record's outcome from the scoring backend.
type ScoreResult struct {
	ID     string
	Score  float64
	Reason string
}

// PostingSource fetches raw postings from a remote feed or API.
type PostingSource interface {
	Name() string
	Fetch(ctx context.Context) ([]RawPosting, error)
}

// PostingFilter decides whether a raw posting matches the user's criteria.
type PostingFilter interface {
	Match(p RawPosting) bool
}

// SeenStore tracks which record IDs have been seen, for notification dedup.
type SeenStore interface {
	HasSeen(id string) (bool, error)
	MarkSeen(id string) error
	Cleanup(olderThan time.Duration) error
	IsEmpty() (bool, error)
}

// Notifier sends notifications for new matching records.
type Notifier interface {
	Notify(records []JobRecord) error
}

package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// postedAtLayouts covers the timestamp formats the configured feeds emit.
// Tried in order; the first match wins.
var postedAtLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalize maps a raw source payload into a canonical JobRecord.
// Title is the only required field; its absence yields a
// MalformedRecordError so the caller can skip the record. The id is
// deterministic: repeated fetches of the same posting collapse to one key.
func Normalize(raw model.RawPosting) (model.JobRecord, error) {
	title := cleanText(raw.Title)
	if title == "" {
		return model.JobRecord{}, &model.MalformedRecordError{Source: raw.Source, Reason: "missing title"}
	}

	rec := model.JobRecord{
		ID:          recordID(raw),
		Title:       title,
		Company:     cleanText(raw.Company),
		Location:    cleanText(raw.Location),
		Description: extractText(raw.Description),
		URL:         strings.TrimSpace(raw.URL),
		Source:      raw.Source,
		PostedAt:    parsePostedAt(raw.PostedAt),
	}
	return rec, nil
}

// recordID prefers the source-provided external id; otherwise it derives a
// stable key by hashing source, title, and company.
func recordID(raw model.RawPosting) string {
	if ext := strings.TrimSpace(raw.ExternalID); ext != "" {
		return raw.Source + "-" + ext
	}
	h := sha256.Sum256([]byte(raw.Source + "|" + cleanText(raw.Title) + "|" + cleanText(raw.Company)))
	return raw.Source + "-" + hex.EncodeToString(h[:])[:12]
}

func parsePostedAt(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range postedAtLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			utc := ts.UTC()
			return &utc
		}
	}
	return nil
}

// extractText converts an HTML or HTML-encoded description to plain text.
// Entities are unescaped first (handles double-encoded feeds; no-op on real
// HTML), then tags are dropped via goquery and whitespace collapsed.
func extractText(content string) string {
	unescaped := html.UnescapeString(content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		return cleanText(unescaped)
	}
	return cleanText(doc.Text())
}

// cleanText collapses runs of whitespace (NBSP included) into single spaces.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}

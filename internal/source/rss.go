package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// RSSSource fetches postings from an RSS or Atom job feed.
type RSSSource struct {
	name    string
	url     string
	company string // set when the whole feed belongs to one company
	parser  *gofeed.Parser
}

// NewRSSSource creates a source for the feed at url. company may be empty;
// per-item company is then taken from the feed author or the common
// "<title> at <company>" title convention.
func NewRSSSource(name, url, company string, client *http.Client) *RSSSource {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = userAgent
	return &RSSSource{
		name:    name,
		url:     url,
		company: company,
		parser:  parser,
	}
}

func (s *RSSSource) Name() string { return s.name }

// Fetch retrieves and parses the feed, mapping each item to a RawPosting.
func (s *RSSSource) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", s.name, err)
	}

	postings := make([]model.RawPosting, 0, len(feed.Items))
	for _, item := range feed.Items {
		postings = append(postings, s.toPosting(item))
	}
	return postings, nil
}

func (s *RSSSource) toPosting(item *gofeed.Item) model.RawPosting {
	title := item.Title
	company := s.company
	if company == "" && item.Author != nil {
		company = item.Author.Name
	}
	if company == "" {
		title, company = splitTitleCompany(item.Title)
	}

	description := item.Content
	if description == "" {
		description = item.Description
	}

	postedAt := item.Published
	if postedAt == "" {
		postedAt = item.Updated
	}

	return model.RawPosting{
		Source:      s.name,
		ExternalID:  item.GUID,
		Title:       title,
		Company:     company,
		Description: description,
		URL:         item.Link,
		PostedAt:    postedAt,
		Tags:        item.Categories,
	}
}

// splitTitleCompany splits the "Senior Engineer at Acme" title convention
// used by several job feeds. Titles without " at " come back unchanged with
// an empty company.
func splitTitleCompany(title string) (string, string) {
	idx := strings.LastIndex(title, " at ")
	if idx <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:idx]), strings.TrimSpace(title[idx+len(" at "):])
}

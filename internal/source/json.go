package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// Names of the per-field extraction expressions a JSON source understands.
const (
	fieldID          = "id"
	fieldTitle       = "title"
	fieldCompany     = "company"
	fieldLocation    = "location"
	fieldDescription = "description"
	fieldURL         = "url"
	fieldPostedAt    = "posted_at"
	fieldTags        = "tags"
)

// defaultJSONFields matches the remoteok API item shape. Sources with a
// different shape override individual expressions in their config.
var defaultJSONFields = map[string]string{
	fieldID:          "id",
	fieldTitle:       "position",
	fieldCompany:     "company",
	fieldLocation:    "location",
	fieldDescription: "description",
	fieldURL:         "url",
	fieldPostedAt:    "date",
	fieldTags:        "tags",
}

// defaultItemsExpr selects the whole document, for APIs that return a bare
// array of items. remoteok configures "[1:]" to skip its legal-notice element.
const defaultItemsExpr = "@"

// JSONSource fetches postings from a JSON API, extracting the item list and
// each field with JMESPath expressions.
type JSONSource struct {
	name   string
	url    string
	items  string
	fields map[string]string
	client *http.Client
}

// NewJSONSource creates a source for the API at url. items selects the item
// array within the response document; fields overrides individual field
// expressions. All expressions are validated here so a bad config fails at
// startup, not mid-cycle.
func NewJSONSource(name, url, items string, fields map[string]string, client *http.Client) (*JSONSource, error) {
	if items == "" {
		items = defaultItemsExpr
	}
	if _, err := jmespath.Compile(items); err != nil {
		return nil, fmt.Errorf("source %s: items expression %q: %w", name, items, err)
	}

	merged := make(map[string]string, len(defaultJSONFields))
	for field, expr := range defaultJSONFields {
		merged[field] = expr
	}
	for field, expr := range fields {
		if _, ok := defaultJSONFields[field]; !ok {
			return nil, fmt.Errorf("source %s: unknown field %q", name, field)
		}
		merged[field] = expr
	}
	for field, expr := range merged {
		if _, err := jmespath.Compile(expr); err != nil {
			return nil, fmt.Errorf("source %s: field %s expression %q: %w", name, field, expr, err)
		}
	}

	return &JSONSource{
		name:   name,
		url:    url,
		items:  items,
		fields: merged,
		client: client,
	}, nil
}

func (s *JSONSource) Name() string { return s.name }

// Fetch retrieves the document and maps each extracted item to a RawPosting.
func (s *JSONSource) Fetch(ctx context.Context) ([]model.RawPosting, error) {
	doc, err := getJSON(ctx, s.client, s.url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", s.name, err)
	}

	itemsVal, err := jmespath.Search(s.items, doc)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: items expression: %w", s.name, err)
	}
	items, ok := itemsVal.([]any)
	if !ok {
		return nil, fmt.Errorf("fetch %s: items expression selected %T, want array", s.name, itemsVal)
	}

	postings := make([]model.RawPosting, 0, len(items))
	for _, item := range items {
		postings = append(postings, model.RawPosting{
			Source:      s.name,
			ExternalID:  s.stringField(item, fieldID),
			Title:       s.stringField(item, fieldTitle),
			Company:     s.stringField(item, fieldCompany),
			Location:    s.stringField(item, fieldLocation),
			Description: s.stringField(item, fieldDescription),
			URL:         s.stringField(item, fieldURL),
			PostedAt:    s.stringField(item, fieldPostedAt),
			Tags:        s.stringsField(item, fieldTags),
		})
	}
	return postings, nil
}

func (s *JSONSource) stringField(item any, field string) string {
	val, err := jmespath.Search(s.fields[field], item)
	if err != nil {
		return ""
	}
	return asString(val)
}

func (s *JSONSource) stringsField(item any, field string) []string {
	val, err := jmespath.Search(s.fields[field], item)
	if err != nil {
		return nil
	}
	switch v := val.(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, el := range v {
			if str := asString(el); str != "" {
				out = append(out, str)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}

// asString renders the scalar shapes APIs use for textual fields. remoteok
// serves numeric ids, so numbers format without an exponent.
func asString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

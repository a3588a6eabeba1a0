package filter

import (
	"strings"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// KeywordFilter matches postings whose text contains at least one topic
// keyword and at least one role keyword. Matching is case-insensitive
// substring over title, description, location, and tags. An empty keyword
// list is treated as "match all".
type KeywordFilter struct {
	topicKeywords []string
	roleKeywords  []string
}

// NewKeywordFilter returns a filter requiring both a topic keyword match and
// a role keyword match.
func NewKeywordFilter(topicKeywords, roleKeywords []string) *KeywordFilter {
	return &KeywordFilter{
		topicKeywords: topicKeywords,
		roleKeywords:  roleKeywords,
	}
}

// Match returns true if the posting matches any topic keyword and any role
// keyword. Empty keyword lists pass all.
func (f *KeywordFilter) Match(p model.RawPosting) bool {
	haystack := strings.ToLower(strings.Join([]string{
		p.Title, p.Description, p.Location, strings.Join(p.Tags, " "),
	}, " "))

	if len(f.topicKeywords) > 0 && !containsAny(haystack, f.topicKeywords) {
		return false
	}
	if len(f.roleKeywords) > 0 && !containsAny(haystack, f.roleKeywords) {
		return false
	}
	return true
}

func containsAny(haystack string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

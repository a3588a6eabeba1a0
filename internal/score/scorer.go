package score

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/cwu339-pixel/web3-job-collector/internal/ai"
	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// excerptLen caps how much of a description goes into the prompt so a full
// batch stays inside the model's context window.
const excerptLen = 600

// Scorer turns batches of records into score results via an LLM provider.
type Scorer struct {
	provider ai.LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewScorer creates a scorer using the given provider and prompt template.
func NewScorer(provider ai.LLMProvider, tmpl *template.Template, logger *slog.Logger) *Scorer {
	return &Scorer{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

type promptJob struct {
	ID       string
	Title    string
	Company  string
	Location string
	Excerpt  string
}

type promptData struct {
	Profile string
	Jobs    []promptJob
}

// Score sends one batch to the backend and returns the parsed results.
// Results that reference an id outside the batch, lack a numeric score, or
// repeat an id are dropped with a warning; the backend does not get to
// invent or duplicate records. A response with no usable JSON array at all
// is an error, since none of the batch can be scored from it.
func (s *Scorer) Score(ctx context.Context, batch Batch, profile string) ([]model.ScoreResult, error) {
	data := promptData{
		Profile: profile,
		Jobs:    make([]promptJob, 0, len(batch.Records)),
	}
	for _, rec := range batch.Records {
		data.Jobs = append(data.Jobs, promptJob{
			ID:       rec.ID,
			Title:    rec.Title,
			Company:  rec.Company,
			Location: rec.Location,
			Excerpt:  excerpt(rec.Description),
		})
	}

	var promptBuf bytes.Buffer
	if err := s.tmpl.Execute(&promptBuf, data); err != nil {
		return nil, fmt.Errorf("render prompt: %w", err)
	}

	raw, err := s.provider.Complete(ctx, promptBuf.String())
	if err != nil {
		return nil, fmt.Errorf("llm complete: %w", err)
	}

	parsed, err := parseScores(raw)
	if err != nil {
		return nil, err
	}
	return s.filterResults(batch, parsed), nil
}

// filterResults keeps only well-formed results for ids in the batch. The
// first result per id wins.
func (s *Scorer) filterResults(batch Batch, parsed []rawScore) []model.ScoreResult {
	inBatch := make(map[string]bool, len(batch.Records))
	for _, rec := range batch.Records {
		inBatch[rec.ID] = true
	}

	results := make([]model.ScoreResult, 0, len(parsed))
	seen := make(map[string]bool, len(parsed))
	for _, rs := range parsed {
		switch {
		case rs.ID == "" || rs.Score == nil:
			s.logger.Warn("dropping score result without id or score", "id", rs.ID)
		case !inBatch[rs.ID]:
			s.logger.Warn("dropping score result for id not in batch", "id", rs.ID)
		case seen[rs.ID]:
			s.logger.Warn("dropping duplicate score result", "id", rs.ID)
		default:
			seen[rs.ID] = true
			results = append(results, model.ScoreResult{ID: rs.ID, Score: *rs.Score, Reason: rs.Reason})
		}
	}
	return results
}

// rawScore is the JSON shape of one element in the LLM's response array.
type rawScore struct {
	ID     string   `json:"id"`
	Score  *float64 `json:"score"`
	Reason string   `json:"reason"`
}

// parseScores extracts a JSON array of score objects from raw LLM output.
// Models wrap arrays in code fences or prose often enough that strict
// parsing would throw away usable batches; each strategy below peels one
// of those layers.
func parseScores(raw string) ([]rawScore, error) {
	text := stripFences(strings.TrimSpace(raw))

	if results, ok := decodeScoreArray(text); ok {
		return results, nil
	}

	// Prose around the array: cut from the first '[' to the last ']'.
	if start, end := strings.Index(text, "["), strings.LastIndex(text, "]"); start >= 0 && end > start {
		if results, ok := decodeScoreArray(text[start : end+1]); ok {
			return results, nil
		}
	}

	// A single bare object counts as a one-element array.
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		if results, ok := decodeScoreArray("[" + text[start:end+1] + "]"); ok {
			return results, nil
		}
	}

	return nil, fmt.Errorf("no JSON score array in llm response: %q", snippet(raw))
}

// decodeScoreArray decodes text as a JSON array of score objects. Elements
// that are not objects are skipped; the filter pass handles the rest.
func decodeScoreArray(text string) ([]rawScore, bool) {
	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elems); err != nil {
		return nil, false
	}
	results := make([]rawScore, 0, len(elems))
	for _, elem := range elems {
		var rs rawScore
		if err := json.Unmarshal(elem, &rs); err != nil {
			continue
		}
		results = append(results, rs)
	}
	return results, true
}

// stripFences removes a wrapping markdown code fence, with or without a
// language tag.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// snippet truncates raw for error messages.
func snippet(raw string) string {
	raw = strings.TrimSpace(raw)
	if len(raw) > 120 {
		return raw[:120] + "..."
	}
	return raw
}

// excerpt truncates a description on a rune boundary.
func excerpt(desc string) string {
	if len(desc) <= excerptLen {
		return desc
	}
	runes := []rune(desc)
	if len(runes) <= excerptLen {
		return desc
	}
	return string(runes[:excerptLen]) + "..."
}

package score

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"text/template"

	"github.com/cwu339-pixel/web3-job-collector/internal/model"
)

// mockProvider is a stub LLMProvider that records the prompt it was given.
type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func newTestScorer(provider *mockProvider) *Scorer {
	tmpl := template.Must(template.New("test").Parse(
		"profile: {{.Profile}}\n{{range .Jobs}}{{.ID}} {{.Title}} {{.Excerpt}}\n{{end}}"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewScorer(provider, tmpl, logger)
}

func batchOf(recs ...model.JobRecord) Batch {
	return Batch{Records: recs}
}

func TestScore_ParsesCleanArray(t *testing.T) {
	mock := &mockProvider{response: `[{"id":"a","score":72,"reason":"strong solidity match"},{"id":"b","score":25.5,"reason":"wrong stack"}]`}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a"), unscoredRec("b")), "senior contracts dev")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].ID != "a" || results[0].Score != 72 || results[0].Reason != "strong solidity match" {
		t.Errorf("results[0] = %+v", results[0])
	}
	if results[1].ID != "b" || results[1].Score != 25.5 {
		t.Errorf("results[1] = %+v", results[1])
	}
}

func TestScore_StripsCodeFences(t *testing.T) {
	mock := &mockProvider{response: "```json\n[{\"id\":\"a\",\"score\":60,\"reason\":\"ok\"}]\n```"}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Score != 60 {
		t.Fatalf("results = %+v, want one score of 60", results)
	}
}

func TestScore_ExtractsArrayFromProse(t *testing.T) {
	mock := &mockProvider{response: "Here are the scores:\n[{\"id\":\"a\",\"score\":85,\"reason\":\"great fit\"}]"}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].Score != 85 {
		t.Fatalf("results = %+v, want one score of 85", results)
	}
}

func TestScore_SingleObjectTreatedAsArray(t *testing.T) {
	mock := &mockProvider{response: `{"id":"a","score":40,"reason":"partial match"}`}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "a" {
		t.Fatalf("results = %+v, want single result for a", results)
	}
}

func TestScore_DropsIDNotInBatch(t *testing.T) {
	mock := &mockProvider{response: `[{"id":"a","score":72,"reason":"fit"},{"id":"z","score":90,"reason":"hallucinated"}]`}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].ID != "a" {
		t.Errorf("kept id = %q, want a", results[0].ID)
	}
}

func TestScore_DropsMissingScore(t *testing.T) {
	mock := &mockProvider{response: `[{"id":"a","reason":"no score given"},{"id":"b","score":55,"reason":"ok"}]`}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a"), unscoredRec("b")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ID != "b" {
		t.Fatalf("results = %+v, want only b", results)
	}
}

func TestScore_DropsDuplicateID_FirstWins(t *testing.T) {
	mock := &mockProvider{response: `[{"id":"a","score":72,"reason":"first"},{"id":"a","score":15,"reason":"second"}]`}
	scorer := newTestScorer(mock)

	results, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Score != 72 || results[0].Reason != "first" {
		t.Errorf("kept result = %+v, want the first occurrence", results[0])
	}
}

func TestScore_RefusalIsError(t *testing.T) {
	mock := &mockProvider{response: "I cannot help with that."}
	scorer := newTestScorer(mock)

	_, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err == nil {
		t.Fatal("expected error for response with no JSON array")
	}
}

func TestScore_ProviderErrorPropagates(t *testing.T) {
	mock := &mockProvider{err: errors.New("network down")}
	scorer := newTestScorer(mock)

	_, err := scorer.Score(context.Background(), batchOf(unscoredRec("a")), "")
	if err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestScore_PromptCarriesProfileAndJobs(t *testing.T) {
	mock := &mockProvider{response: "[]"}
	scorer := newTestScorer(mock)

	_, err := scorer.Score(context.Background(), batchOf(unscoredRec("a"), unscoredRec("b")), "loves zero-knowledge proofs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"loves zero-knowledge proofs", "Engineer a", "Engineer b"} {
		if !strings.Contains(mock.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, mock.prompt)
		}
	}
}

func TestScore_TruncatesLongDescriptions(t *testing.T) {
	rec := unscoredRec("a")
	rec.Description = strings.Repeat("x", 2000) + "TAIL"
	mock := &mockProvider{response: "[]"}
	scorer := newTestScorer(mock)

	_, err := scorer.Score(context.Background(), batchOf(rec), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(mock.prompt, "TAIL") {
		t.Error("prompt contains the description tail, want it truncated")
	}
}

func TestParseScores_Strategies(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  int
		isErr bool
	}{
		{"clean array", `[{"id":"a","score":1,"reason":"r"}]`, 1, false},
		{"empty array", `[]`, 0, false},
		{"fenced", "```\n[{\"id\":\"a\",\"score\":1,\"reason\":\"r\"}]\n```", 1, false},
		{"fenced with tag", "```json\n[{\"id\":\"a\",\"score\":1,\"reason\":\"r\"}]\n```", 1, false},
		{"prose prefix", "Sure! Here you go:\n[{\"id\":\"a\",\"score\":1,\"reason\":\"r\"}]", 1, false},
		{"prose both sides", "The array:\n[{\"id\":\"a\",\"score\":1,\"reason\":\"r\"}]\nHope that helps.", 1, false},
		{"single object", `{"id":"a","score":1,"reason":"r"}`, 1, false},
		{"non-object elements skipped", `["junk",{"id":"a","score":1,"reason":"r"},42]`, 1, false},
		{"refusal", "I cannot help with that.", 0, true},
		{"empty response", "", 0, true},
		{"truncated json", `[{"id":"a","score":1,`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseScores(tt.raw)
			if tt.isErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d results, want %d", len(got), tt.want)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	short := "a short description"
	if got := excerpt(short); got != short {
		t.Errorf("excerpt(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("y", 1000)
	got := excerpt(long)
	if len([]rune(got)) != excerptLen+3 {
		t.Errorf("excerpt(long) rune len = %d, want %d", len([]rune(got)), excerptLen+3)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("excerpt(long) = %q, want ... suffix", got[len(got)-10:])
	}
}

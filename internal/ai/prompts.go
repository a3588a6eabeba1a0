package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/score_batch.md
var scoreBatchPromptRaw string

// ScoreBatchTemplate is the parsed prompt template for batch scoring.
// Parsed once at package init; reused on every scoring call.
var ScoreBatchTemplate = template.Must(template.New("score_batch").Parse(scoreBatchPromptRaw))

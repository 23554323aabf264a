package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

const analyzerModel = anthropic.ModelClaudeSonnet4_20250514

const analyzerSystemPrompt = `You analyze a user goal about rocket launches and decide which data outcomes are needed to satisfy it.

Respond with JSON only, no prose:
{"outcomes": ["<tag>", ...], "delay_assessment": <bool>}

Rules:
- outcomes may only contain tags from the provided list
- include a tag only when the goal actually needs that data
- delay_assessment is true only when the goal asks whether a launch will be delayed, postponed, or scrubbed`

// ModelAnalyzer asks Claude which outcomes a goal needs. Any failure,
// including unparseable output, falls back to keyword matching so a
// missing API key or a flaky response never blocks planning.
type ModelAnalyzer struct {
	client   anthropic.Client
	fallback *KeywordAnalyzer
}

// NewModelAnalyzer returns an analyzer backed by the Anthropic API.
func NewModelAnalyzer(apiKey string) *ModelAnalyzer {
	return &ModelAnalyzer{
		client:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		fallback: NewKeywordAnalyzer(),
	}
}

type analysisResponse struct {
	Outcomes        []string `json:"outcomes"`
	DelayAssessment bool     `json:"delay_assessment"`
}

// Analyze extracts outcomes via the model, constrained to the available
// set. Temperature is pinned to 0 so repeated runs of the same goal plan
// the same way.
func (m *ModelAnalyzer) Analyze(ctx context.Context, text string, available []models.Outcome) (models.Goal, error) {
	tags := make([]string, len(available))
	for i, o := range available {
		tags[i] = string(o)
	}
	prompt := fmt.Sprintf("Available outcome tags: %s\n\nGoal: %s", strings.Join(tags, ", "), text)

	msg, err := m.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       analyzerModel,
		MaxTokens:   256,
		Temperature: anthropic.Float(0),
		System: []anthropic.TextBlockParam{
			{Text: analyzerSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return m.fallback.Analyze(ctx, text, available)
	}

	var raw strings.Builder
	for _, block := range msg.Content {
		if variant, ok := block.AsAny().(anthropic.TextBlock); ok {
			raw.WriteString(variant.Text)
		}
	}

	parsed, ok := parseAnalysis(raw.String())
	if !ok {
		return m.fallback.Analyze(ctx, text, available)
	}

	avail := make(map[models.Outcome]bool, len(available))
	for _, o := range available {
		avail[o] = true
	}

	goal := models.Goal{Text: text}
	for _, tag := range parsed.Outcomes {
		o := models.Outcome(strings.TrimSpace(tag))
		if avail[o] {
			goal.Outcomes = mergeOutcomes(goal.Outcomes, o)
		}
	}
	if len(goal.Outcomes) == 0 {
		return m.fallback.Analyze(ctx, text, available)
	}

	if parsed.DelayAssessment && avail["launch_data"] && avail["weather_conditions"] {
		goal.Predicates = append(goal.Predicates, models.Predicate{
			Name:     "delay_assessment",
			Requires: []models.Outcome{"launch_data", "weather_conditions"},
		})
		goal.Outcomes = mergeOutcomes(goal.Outcomes, "launch_data", "weather_conditions")
	}

	return goal, nil
}

// parseAnalysis pulls the first JSON object out of the response text.
// Models sometimes wrap JSON in code fences despite instructions.
func parseAnalysis(text string) (analysisResponse, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return analysisResponse{}, false
	}
	var resp analysisResponse
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return analysisResponse{}, false
	}
	return resp, true
}

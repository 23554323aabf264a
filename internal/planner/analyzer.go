package planner

import (
	"context"
	"strings"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// Analyzer turns free-form goal text into the structured outcomes and
// predicates the planner works from.
type Analyzer interface {
	Analyze(ctx context.Context, text string, available []models.Outcome) (models.Goal, error)
}

// outcomeRule maps trigger words in goal text to a required outcome.
type outcomeRule struct {
	outcome  models.Outcome
	triggers []string
}

var defaultRules = []outcomeRule{
	{
		outcome:  "launch_data",
		triggers: []string{"launch", "launches", "rocket", "spacex", "mission", "liftoff"},
	},
	{
		outcome:  "weather_conditions",
		triggers: []string{"weather", "forecast", "wind", "conditions", "delay", "delayed", "postpone", "scrub"},
	},
	{
		outcome:  "news_sentiment",
		triggers: []string{"news", "sentiment", "media", "headlines", "coverage", "press"},
	},
	{
		outcome:  "market_data",
		triggers: []string{"market", "markets", "stock", "crypto", "cryptocurrency", "price", "investment", "investor"},
	},
}

// delayTriggers mark goals asking whether a launch will slip, which
// needs launch and weather data combined.
var delayTriggers = []string{"delay", "delayed", "postpone", "postponed", "scrub", "scrubbed", "on time", "slip"}

// KeywordAnalyzer extracts outcomes by matching trigger words against
// the goal text. It is deterministic and needs no credentials.
type KeywordAnalyzer struct {
	rules []outcomeRule
}

// NewKeywordAnalyzer returns an analyzer using the built-in rule table.
func NewKeywordAnalyzer() *KeywordAnalyzer {
	return &KeywordAnalyzer{rules: defaultRules}
}

// Analyze matches each rule's triggers against the lowercased goal text.
// Only outcomes present in available make it into the result, so the
// planner never sees an outcome nothing can produce. When no rule fires,
// every available outcome is requested, matching the behavior of a broad
// "tell me everything" goal.
func (k *KeywordAnalyzer) Analyze(_ context.Context, text string, available []models.Outcome) (models.Goal, error) {
	lower := strings.ToLower(text)
	avail := make(map[models.Outcome]bool, len(available))
	for _, o := range available {
		avail[o] = true
	}

	goal := models.Goal{Text: text}
	for _, rule := range k.rules {
		if !avail[rule.outcome] {
			continue
		}
		for _, trigger := range rule.triggers {
			if containsWord(lower, trigger) {
				goal.Outcomes = append(goal.Outcomes, rule.outcome)
				break
			}
		}
	}

	if len(goal.Outcomes) == 0 {
		goal.Outcomes = append(goal.Outcomes, available...)
		goal.Fallback = true
	}

	if matchesAny(lower, delayTriggers) && avail["launch_data"] && avail["weather_conditions"] {
		goal.Predicates = append(goal.Predicates, models.Predicate{
			Name:     "delay_assessment",
			Requires: []models.Outcome{"launch_data", "weather_conditions"},
		})
		goal.Outcomes = mergeOutcomes(goal.Outcomes, "launch_data", "weather_conditions")
	}

	return goal, nil
}

func matchesAny(text string, triggers []string) bool {
	for _, t := range triggers {
		if containsWord(text, t) {
			return true
		}
	}
	return false
}

// containsWord reports whether needle starts a word in text, so "wind"
// matches "winds" but not "rewind".
func containsWord(text, needle string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		if start == 0 || !isWordChar(text[start-1]) {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

func mergeOutcomes(existing []models.Outcome, add ...models.Outcome) []models.Outcome {
	seen := make(map[models.Outcome]bool, len(existing))
	for _, o := range existing {
		seen[o] = true
	}
	for _, o := range add {
		if !seen[o] {
			existing = append(existing, o)
			seen[o] = true
		}
	}
	return existing
}

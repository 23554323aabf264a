package planner

import (
	"context"
	"errors"
	"testing"

	"github.com/skyplan-dev/skyplan/internal/registry"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

func builtinRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.Builtin(registry.BuiltinConfig{WeatherAPIKey: "w", NewsAPIKey: "n"})
	if err != nil {
		t.Fatalf("Builtin failed: %v", err)
	}
	return r
}

func TestKeywordAnalyzer(t *testing.T) {
	available := []models.Outcome{"launch_data", "weather_conditions", "news_sentiment", "market_data"}
	k := NewKeywordAnalyzer()

	tests := []struct {
		name string
		text string
		want []models.Outcome
	}{
		{
			name: "launch only",
			text: "When is the next SpaceX launch?",
			want: []models.Outcome{"launch_data"},
		},
		{
			name: "weather question",
			text: "What is the weather forecast at the pad?",
			want: []models.Outcome{"weather_conditions"},
		},
		{
			name: "news and market",
			text: "Summarize recent news coverage and crypto market moves",
			want: []models.Outcome{"news_sentiment", "market_data"},
		},
		{
			name: "no trigger requests everything",
			text: "Give me the full picture",
			want: available,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			goal, err := k.Analyze(context.Background(), tt.text, available)
			if err != nil {
				t.Fatalf("Analyze failed: %v", err)
			}
			if len(goal.Outcomes) != len(tt.want) {
				t.Fatalf("outcomes = %v, want %v", goal.Outcomes, tt.want)
			}
			for i := range tt.want {
				if goal.Outcomes[i] != tt.want[i] {
					t.Errorf("outcomes[%d] = %s, want %s", i, goal.Outcomes[i], tt.want[i])
				}
			}
		})
	}
}

func TestKeywordAnalyzerFallbackFlag(t *testing.T) {
	available := []models.Outcome{"launch_data", "weather_conditions"}
	k := NewKeywordAnalyzer()

	goal, err := k.Analyze(context.Background(), "Give me the full picture", available)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if !goal.Fallback {
		t.Error("goal without outcome hints should be marked fallback")
	}

	goal, err = k.Analyze(context.Background(), "next launch?", available)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if goal.Fallback {
		t.Error("goal with a matched hint should not be marked fallback")
	}
}

func TestKeywordAnalyzerDelayPredicate(t *testing.T) {
	available := []models.Outcome{"launch_data", "weather_conditions", "news_sentiment", "market_data"}
	k := NewKeywordAnalyzer()

	goal, err := k.Analyze(context.Background(), "Will the next launch be delayed?", available)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(goal.Predicates) != 1 || goal.Predicates[0].Name != "delay_assessment" {
		t.Fatalf("predicates = %v, want delay_assessment", goal.Predicates)
	}
	has := map[models.Outcome]bool{}
	for _, o := range goal.Outcomes {
		has[o] = true
	}
	if !has["launch_data"] || !has["weather_conditions"] {
		t.Errorf("delay goal outcomes = %v, want launch_data and weather_conditions", goal.Outcomes)
	}
}

func TestKeywordAnalyzerFiltersUnavailable(t *testing.T) {
	k := NewKeywordAnalyzer()
	goal, err := k.Analyze(context.Background(), "launch news", []models.Outcome{"launch_data"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if len(goal.Outcomes) != 1 || goal.Outcomes[0] != "launch_data" {
		t.Errorf("outcomes = %v, want [launch_data]", goal.Outcomes)
	}
}

func TestPlanPullsDependencies(t *testing.T) {
	p := New(builtinRegistry(t), nil)

	plan, err := p.Plan(models.Goal{Text: "weather", Outcomes: []models.Outcome{"weather_conditions"}})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	want := []string{"launch", "weather"}
	if len(plan.Capabilities) != len(want) {
		t.Fatalf("capabilities = %v, want %v", plan.Capabilities, want)
	}
	for i := range want {
		if plan.Capabilities[i] != want[i] {
			t.Errorf("capabilities[%d] = %s, want %s", i, plan.Capabilities[i], want[i])
		}
	}
	if plan.Iteration != 1 {
		t.Errorf("iteration = %d, want 1", plan.Iteration)
	}
}

func TestPlanDeterministic(t *testing.T) {
	p := New(builtinRegistry(t), nil)
	goal := models.Goal{Text: "all", Outcomes: []models.Outcome{"market_data", "news_sentiment", "weather_conditions", "launch_data"}}

	first, err := p.Plan(goal)
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := p.Plan(goal)
		if err != nil {
			t.Fatalf("Plan failed: %v", err)
		}
		if !again.Equal(&first) {
			t.Fatalf("plan %v differs from %v", again.Capabilities, first.Capabilities)
		}
	}
	if first.Capabilities[0] != "launch" {
		t.Errorf("launch must run first, got %v", first.Capabilities)
	}
}

func TestPlanPartialCoverage(t *testing.T) {
	p := New(builtinRegistry(t), nil)

	plan, err := p.Plan(models.Goal{
		Text:     "launch and orbital debris",
		Outcomes: []models.Outcome{"launch_data", "orbital_debris"},
	})
	if err != nil {
		t.Fatalf("Plan failed: %v", err)
	}
	if len(plan.Capabilities) != 1 || plan.Capabilities[0] != "launch" {
		t.Errorf("capabilities = %v, want [launch]", plan.Capabilities)
	}
}

func TestPlanNoViableCapabilities(t *testing.T) {
	p := New(builtinRegistry(t), nil)

	_, err := p.Plan(models.Goal{Text: "debris", Outcomes: []models.Outcome{"orbital_debris"}})
	if !errors.Is(err, ErrNoViableCapabilities) {
		t.Errorf("expected ErrNoViableCapabilities, got %v", err)
	}
}

func TestReplanTargetsUnmet(t *testing.T) {
	p := New(builtinRegistry(t), nil)
	prior := models.Plan{
		Goal:         models.Goal{Text: "g", Outcomes: []models.Outcome{"weather_conditions"}},
		Capabilities: []string{"launch", "weather"},
		Iteration:    1,
	}

	next, err := p.Replan(ReplanRequest{
		Prior:   prior,
		Context: models.NewContext(),
		Verdict: models.Verdict{Achievement: models.GoalUnmet, Unmet: []string{"weather_conditions"}},
	})
	if err != nil {
		t.Fatalf("Replan failed: %v", err)
	}
	if next.Iteration != 2 {
		t.Errorf("iteration = %d, want 2", next.Iteration)
	}
	want := []string{"launch", "weather"}
	for i := range want {
		if next.Capabilities[i] != want[i] {
			t.Fatalf("capabilities = %v, want %v", next.Capabilities, want)
		}
	}
}

func TestReplanSkipsSatisfiedDependencies(t *testing.T) {
	p := New(builtinRegistry(t), nil)
	prior := models.Plan{
		Goal:         models.Goal{Text: "g", Outcomes: []models.Outcome{"weather_conditions"}},
		Capabilities: []string{"launch", "weather"},
		Iteration:    1,
	}
	// launch already delivered, only weather fell short.
	ctx := models.NewContext().With(map[string]any{
		"launch_data": true, "site": true, "launch_date": true,
	})

	next, err := p.Replan(ReplanRequest{
		Prior:   prior,
		Context: ctx,
		Verdict: models.Verdict{Achievement: models.GoalUnmet, Unmet: []string{"weather_conditions"}},
	})
	if err != nil {
		t.Fatalf("Replan failed: %v", err)
	}
	if len(next.Capabilities) != 1 || next.Capabilities[0] != "weather" {
		t.Errorf("capabilities = %v, want [weather] only", next.Capabilities)
	}
}

func TestReplanNoProgressOnRepeatedVerdict(t *testing.T) {
	p := New(builtinRegistry(t), nil)
	prior := models.Plan{
		Goal:         models.Goal{Text: "g", Outcomes: []models.Outcome{"weather_conditions"}},
		Capabilities: []string{"launch", "weather"},
		Iteration:    2,
	}
	verdict := models.Verdict{Achievement: models.GoalUnmet, Unmet: []string{"weather_conditions"}}

	_, err := p.Replan(ReplanRequest{
		Prior:       prior,
		Context:     models.NewContext(),
		Verdict:     verdict,
		PrevVerdict: &verdict,
	})
	if !errors.Is(err, ErrNoProgress) {
		t.Errorf("expected ErrNoProgress, got %v", err)
	}
}

func TestReplanNoCoverableUnmet(t *testing.T) {
	p := New(builtinRegistry(t), nil)
	ctx := models.NewContext().With(map[string]any{
		"launch_data": true, "site": true, "launch_date": true,
	})

	_, err := p.Replan(ReplanRequest{
		Prior: models.Plan{
			Goal:         models.Goal{Text: "g"},
			Capabilities: []string{"launch"},
			Iteration:    1,
		},
		Context: ctx,
		Verdict: models.Verdict{Achievement: models.GoalPartial, Unmet: []string{"orbital_debris"}},
	})
	if !errors.Is(err, ErrNoProgress) {
		t.Errorf("expected ErrNoProgress, got %v", err)
	}
}

func TestParseAnalysis(t *testing.T) {
	resp, ok := parseAnalysis("```json\n{\"outcomes\": [\"launch_data\"], \"delay_assessment\": true}\n```")
	if !ok {
		t.Fatal("parseAnalysis failed on fenced JSON")
	}
	if len(resp.Outcomes) != 1 || resp.Outcomes[0] != "launch_data" || !resp.DelayAssessment {
		t.Errorf("parsed = %+v", resp)
	}

	if _, ok := parseAnalysis("no json here"); ok {
		t.Error("expected failure on non-JSON text")
	}
}

// Package eval runs scripted goal scenarios against the engine and
// scores the outcomes.
package eval

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// Scenario is one scripted goal with expectations about the run.
type Scenario struct {
	// Name identifies the scenario in output.
	Name string `yaml:"name"`
	// Goal is the goal text fed to the engine.
	Goal string `yaml:"goal"`
	// ExpectCapabilities lists capability IDs that must appear in the
	// executed chain.
	ExpectCapabilities []string `yaml:"expect_capabilities"`
	// ExpectAchievement, when set, is the required final achievement
	// level (achieved, partial, unmet).
	ExpectAchievement string `yaml:"expect_achievement"`
	// ExpectStopReason, when set, is the required stop reason.
	ExpectStopReason string `yaml:"expect_stop_reason"`
}

// Suite is a set of scenarios loaded from one YAML file.
type Suite struct {
	// Name identifies the suite.
	Name string `yaml:"name"`
	// Scenarios are run in order.
	Scenarios []Scenario `yaml:"scenarios"`
}

// LoadSuite reads a scenario suite from a YAML file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read suite: %w", err)
	}
	var suite Suite
	if err := yaml.Unmarshal(data, &suite); err != nil {
		return nil, fmt.Errorf("parse suite %s: %w", path, err)
	}
	if len(suite.Scenarios) == 0 {
		return nil, fmt.Errorf("suite %s has no scenarios", path)
	}
	for i, s := range suite.Scenarios {
		if s.Goal == "" {
			return nil, fmt.Errorf("suite %s: scenario %d has no goal", path, i)
		}
	}
	return &suite, nil
}

// GoalRunner processes one goal to completion.
type GoalRunner interface {
	Run(ctx context.Context, goal string) (*models.Report, error)
}

// Result scores one scenario.
type Result struct {
	// Scenario is the scenario that ran.
	Scenario Scenario
	// Report is the engine's output, nil when the run errored.
	Report *models.Report
	// Err is the run error, if any.
	Err error
	// Failures lists every expectation that did not hold.
	Failures []string
}

// Passed returns true when the run completed and met every expectation.
func (r Result) Passed() bool {
	return r.Err == nil && len(r.Failures) == 0
}

// Runner executes scenario suites.
type Runner struct {
	engine GoalRunner
}

// NewRunner creates a runner over the given engine.
func NewRunner(engine GoalRunner) *Runner {
	return &Runner{engine: engine}
}

// Run executes every scenario in the suite and scores it. Scenario
// errors are captured in results, not returned; the returned error is
// reserved for context cancellation.
func (r *Runner) Run(ctx context.Context, suite *Suite) ([]Result, error) {
	results := make([]Result, 0, len(suite.Scenarios))
	for _, scenario := range suite.Scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		report, err := r.engine.Run(ctx, scenario.Goal)
		result := Result{Scenario: scenario, Report: report, Err: err}
		if err == nil {
			result.Failures = score(scenario, report)
		}
		results = append(results, result)
	}
	return results, nil
}

// score checks a report against a scenario's expectations.
func score(scenario Scenario, report *models.Report) []string {
	var failures []string

	executed := map[string]bool{}
	for _, id := range report.Chain {
		executed[id] = true
	}
	for _, want := range scenario.ExpectCapabilities {
		if !executed[want] {
			failures = append(failures, fmt.Sprintf("capability %s not executed (chain %v)", want, report.Chain))
		}
	}

	if scenario.ExpectAchievement != "" && string(report.Verdict.Achievement) != scenario.ExpectAchievement {
		failures = append(failures, fmt.Sprintf("achievement %s, want %s", report.Verdict.Achievement, scenario.ExpectAchievement))
	}
	if scenario.ExpectStopReason != "" && report.StopReason != scenario.ExpectStopReason {
		failures = append(failures, fmt.Sprintf("stop reason %s, want %s", report.StopReason, scenario.ExpectStopReason))
	}
	return failures
}

// Summary counts passed and failed results.
func Summary(results []Result) (passed, failed int) {
	for _, r := range results {
		if r.Passed() {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

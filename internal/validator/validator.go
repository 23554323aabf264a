// Package validator judges execution results against the goal.
package validator

import (
	"fmt"
	"strings"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// Validator checks whether the accumulated context satisfies a goal's
// outcomes and predicates. Validation is a pure function of its inputs:
// the same goal and context always yield the same verdict.
type Validator struct{}

// New returns a validator.
func New() *Validator {
	return &Validator{}
}

// Validate compares the goal against the context. An outcome is
// satisfied when its key is present in the context. A predicate is
// satisfied when every outcome it requires is satisfied. Unmet lists
// the missing outcome keys, so a replanner can target them directly.
func (v *Validator) Validate(goal models.Goal, c models.Context) models.Verdict {
	var met, unmet []string
	seen := map[string]bool{}

	record := func(outcome models.Outcome) {
		key := string(outcome)
		if seen[key] {
			return
		}
		seen[key] = true
		if c.Has(key) {
			met = append(met, key)
		} else {
			unmet = append(unmet, key)
		}
	}

	for _, outcome := range goal.Outcomes {
		record(outcome)
	}
	for _, pred := range goal.Predicates {
		for _, req := range pred.Requires {
			record(req)
		}
	}

	verdict := models.Verdict{Unmet: unmet}
	total := len(met) + len(unmet)
	switch {
	case total == 0:
		verdict.Achievement = models.GoalAchieved
		verdict.Rationale = "goal requested no outcomes"
	case len(unmet) == 0:
		verdict.Achievement = models.GoalAchieved
		verdict.Rationale = fmt.Sprintf("all %d outcomes satisfied", total)
	case len(met) == 0:
		verdict.Achievement = models.GoalUnmet
		verdict.Rationale = fmt.Sprintf("none of %d outcomes satisfied; missing %s", total, strings.Join(unmet, ", "))
	default:
		verdict.Achievement = models.GoalPartial
		verdict.Rationale = fmt.Sprintf("%d/%d outcomes satisfied; missing %s", len(met), total, strings.Join(unmet, ", "))
	}
	if goal.Fallback && total > 0 {
		verdict.Rationale += " (no outcome hints recognized in the goal; all capabilities were run)"
	}
	return verdict
}

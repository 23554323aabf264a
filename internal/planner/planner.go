package planner

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/skyplan-dev/skyplan/internal/graph"
	"github.com/skyplan-dev/skyplan/internal/registry"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

var (
	// ErrNoViableCapabilities means no registered capability can produce
	// any outcome the goal asks for.
	ErrNoViableCapabilities = errors.New("no registered capability can serve the goal")

	// ErrNoProgress means replanning produced the same plan that already
	// failed to move the verdict, so iterating further is pointless.
	ErrNoProgress = errors.New("replanning made no progress")
)

// Planner selects and orders capabilities to satisfy a goal. Selection
// is a minimal cover of the goal's outcomes plus the transitive
// dependencies of every selected capability, ordered topologically.
type Planner struct {
	registry *registry.Registry
	analyzer Analyzer
}

// New creates a planner over the given registry. A nil analyzer falls
// back to keyword matching.
func New(reg *registry.Registry, analyzer Analyzer) *Planner {
	if analyzer == nil {
		analyzer = NewKeywordAnalyzer()
	}
	return &Planner{registry: reg, analyzer: analyzer}
}

// Analyze extracts a structured goal from free-form text, constrained
// to the outcomes the registry can actually produce.
func (p *Planner) Analyze(ctx context.Context, text string) (models.Goal, error) {
	return p.analyzer.Analyze(ctx, text, p.registry.Outcomes())
}

// Plan builds the first plan for a goal. Outcomes no capability can
// produce are left for the validator to report as unmet; planning only
// fails when not a single outcome is coverable.
func (p *Planner) Plan(goal models.Goal) (models.Plan, error) {
	selected := map[string]bool{}
	covered := 0
	for _, outcome := range goal.Outcomes {
		id, ok := p.registry.OutcomeProvider(outcome)
		if !ok {
			continue
		}
		covered++
		if err := p.addWithDependencies(id, selected); err != nil {
			return models.Plan{}, err
		}
	}
	if covered == 0 {
		return models.Plan{}, fmt.Errorf("%w: outcomes %v", ErrNoViableCapabilities, goal.Outcomes)
	}

	order, err := p.order(selected)
	if err != nil {
		return models.Plan{}, err
	}
	return models.Plan{Goal: goal, Capabilities: order, Iteration: 1}, nil
}

// ReplanRequest carries what the controller knows after a failed
// validation pass.
type ReplanRequest struct {
	// Prior is the plan whose execution fell short.
	Prior models.Plan
	// Context holds everything produced so far.
	Context models.Context
	// Verdict is the validation result for Prior.
	Verdict models.Verdict
	// PrevVerdict is the verdict before Prior ran, nil on the first
	// replan.
	PrevVerdict *models.Verdict
}

// Replan builds a follow-up plan targeting the verdict's unmet
// outcomes. The new plan keeps capabilities whose outputs are still
// missing from the context and adds anything needed for unmet
// outcomes. Dependencies whose outputs the context already holds are
// not re-run. ErrNoProgress is returned when the new plan is identical
// to the prior one and the verdict has stopped moving.
func (p *Planner) Replan(req ReplanRequest) (models.Plan, error) {
	selected := map[string]bool{}
	for _, name := range req.Verdict.Unmet {
		id, ok := p.registry.OutcomeProvider(models.Outcome(name))
		if !ok {
			continue
		}
		if err := p.addForReplan(id, selected, req.Context); err != nil {
			return models.Plan{}, err
		}
	}

	// Capabilities from the prior plan whose outputs never landed are
	// worth retrying alongside the unmet ones.
	for _, id := range req.Prior.Capabilities {
		desc, err := p.registry.Describe(id)
		if err != nil {
			return models.Plan{}, err
		}
		if !req.Context.Has(desc.Outputs...) {
			if err := p.addForReplan(id, selected, req.Context); err != nil {
				return models.Plan{}, err
			}
		}
	}

	if len(selected) == 0 {
		return models.Plan{}, fmt.Errorf("%w: no capability covers unmet outcomes %v", ErrNoProgress, req.Verdict.Unmet)
	}

	order, err := p.order(selected)
	if err != nil {
		return models.Plan{}, err
	}
	next := models.Plan{Goal: req.Prior.Goal, Capabilities: order, Iteration: req.Prior.Iteration + 1}

	if next.Equal(&req.Prior) && req.PrevVerdict != nil && req.Verdict.Equal(*req.PrevVerdict) {
		return models.Plan{}, fmt.Errorf("%w: plan %v repeated with unchanged verdict", ErrNoProgress, next.Capabilities)
	}
	return next, nil
}

// addWithDependencies pulls id and its transitive dependencies into the
// selection.
func (p *Planner) addWithDependencies(id string, selected map[string]bool) error {
	if selected[id] {
		return nil
	}
	desc, err := p.registry.Describe(id)
	if err != nil {
		return err
	}
	selected[id] = true
	for _, dep := range desc.DependsOn {
		if err := p.addWithDependencies(dep, selected); err != nil {
			return err
		}
	}
	return nil
}

// addForReplan pulls id into the selection along with any dependencies
// whose outputs the context does not already hold. Satisfied
// dependencies were produced in an earlier iteration and carry forward.
func (p *Planner) addForReplan(id string, selected map[string]bool, c models.Context) error {
	if selected[id] {
		return nil
	}
	desc, err := p.registry.Describe(id)
	if err != nil {
		return err
	}
	selected[id] = true
	for _, dep := range desc.DependsOn {
		depDesc, err := p.registry.Describe(dep)
		if err != nil {
			return err
		}
		if c.Has(depDesc.Outputs...) {
			continue
		}
		if err := p.addForReplan(dep, selected, c); err != nil {
			return err
		}
	}
	return nil
}

// order topologically sorts the selection, breaking ties by
// registration order so identical selections always plan identically.
// Dependencies outside the selection are omitted from the ordering
// graph; their outputs are already in the carried context.
func (p *Planner) order(selected map[string]bool) ([]string, error) {
	ids := make([]string, 0, len(selected))
	for id := range selected {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	nodes := make([]graph.Node, 0, len(ids))
	for _, id := range ids {
		desc, err := p.registry.Describe(id)
		if err != nil {
			return nil, err
		}
		deps := make([]string, 0, len(desc.DependsOn))
		for _, dep := range desc.DependsOn {
			if selected[dep] {
				deps = append(deps, dep)
			}
		}
		nodes = append(nodes, graph.Node{ID: id, DependsOn: deps, Priority: desc.Priority})
	}
	g, err := graph.Build(nodes)
	if err != nil {
		return nil, err
	}
	return g.TopologicalSort()
}

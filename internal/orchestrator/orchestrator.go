package orchestrator

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/skyplan-dev/skyplan/internal/graph"
	"github.com/skyplan-dev/skyplan/internal/registry"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

const (
	// DefaultMaxConcurrency bounds how many capabilities run at once.
	DefaultMaxConcurrency = 4
	// DefaultStepTimeout bounds a single capability invocation.
	DefaultStepTimeout = 30 * time.Second
)

// Config controls plan execution.
type Config struct {
	// MaxConcurrency is the maximum number of capabilities invoked in
	// parallel within a wave. Zero means DefaultMaxConcurrency.
	MaxConcurrency int
	// StepTimeout bounds each capability invocation. Zero means
	// DefaultStepTimeout.
	StepTimeout time.Duration
	// Events, when non-nil, receives execution events. Sends never
	// block.
	Events chan Event
	// Logger receives debug output. Nil disables debug logging.
	Logger *DebugLogger
}

// Orchestrator runs a plan's capabilities in dependency order,
// parallelizing independent ones and skipping anything whose inputs
// never materialized.
type Orchestrator struct {
	registry       *registry.Registry
	maxConcurrency int
	stepTimeout    time.Duration
	events         chan Event
}

// New creates an orchestrator over the given registry.
func New(reg *registry.Registry, cfg Config) *Orchestrator {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = DefaultStepTimeout
	}
	if cfg.Logger != nil {
		setPackageLogger(cfg.Logger)
	}
	return &Orchestrator{
		registry:       reg,
		maxConcurrency: cfg.MaxConcurrency,
		stepTimeout:    cfg.StepTimeout,
		events:         cfg.Events,
	}
}

// RunResult is what one plan execution produced.
type RunResult struct {
	// Context is the base context merged with every successful step's
	// outputs.
	Context models.Context
	// Steps records every capability in the plan exactly once.
	Steps []models.StepResult
}

// Execute runs every capability in the plan. Capabilities whose
// dependencies all succeeded run in waves of independent steps, bounded
// by MaxConcurrency. A failure marks all transitive dependents skipped
// with MissingDependency; siblings keep running. The base context is
// never mutated.
func (o *Orchestrator) Execute(ctx context.Context, plan models.Plan, base models.Context) (RunResult, error) {
	g, err := o.buildGraph(plan)
	if err != nil {
		return RunResult{}, err
	}

	cur := base
	steps := make([]models.StepResult, 0, len(plan.Capabilities))
	dead := map[string]bool{}

	debugLog("execute: iteration %d plan %v", plan.Iteration, plan.Capabilities)

	for len(steps) < len(plan.Capabilities) {
		if err := ctx.Err(); err != nil {
			// Record everything not yet attempted as skipped so every
			// plan entry still has exactly one step result.
			for _, id := range plan.Capabilities {
				if !recorded(steps, id) {
					steps = append(steps, o.skip(plan.Iteration, id, "Cancelled"))
				}
			}
			return RunResult{Context: cur, Steps: steps}, err
		}

		ready := g.Ready(nil)
		if len(ready) == 0 {
			break
		}
		var wave []string
		for _, id := range ready {
			if o.dependsOnDead(id, dead) {
				step := o.skip(plan.Iteration, id, models.SkipReasonMissingDependency)
				steps = append(steps, step)
				o.emitStep(EventStepSkipped, step)
				dead[id] = true
				g.MarkComplete(id)
				continue
			}
			desc, err := o.registry.Describe(id)
			if err != nil {
				return RunResult{}, err
			}
			prov, err := o.registry.Resolve(id)
			if err != nil {
				return RunResult{}, err
			}
			if !cur.Has(desc.Inputs...) || !prov.CanProcess(cur) {
				step := o.skip(plan.Iteration, id, models.SkipReasonMissingDependency)
				steps = append(steps, step)
				o.emitStep(EventStepSkipped, step)
				dead[id] = true
				g.MarkComplete(id)
				continue
			}
			wave = append(wave, id)
		}
		if len(wave) == 0 {
			continue
		}

		debugLog("execute: wave %v", wave)
		results := o.runWave(ctx, plan.Iteration, wave, cur)

		// Merge in wave order so identical runs produce identical
		// contexts. Output keys are disjoint across capabilities, so
		// order only matters for reproducibility, not correctness.
		for _, id := range wave {
			step := results[id]
			steps = append(steps, step)
			g.MarkComplete(id)
			if step.Status == models.StepSuccess {
				cur = cur.With(step.Outputs)
				o.emitStep(EventStepCompleted, step)
			} else {
				dead[id] = true
				o.emitStep(EventStepFailed, step)
			}
		}
	}

	o.emit(Event{Type: EventPlanDone, Iteration: plan.Iteration})
	return RunResult{Context: cur, Steps: steps}, nil
}

// runWave invokes every capability in the wave concurrently, bounded by
// MaxConcurrency. Each invocation gets its own timeout and reads the
// same immutable snapshot of the context.
func (o *Orchestrator) runWave(ctx context.Context, iteration int, wave []string, snapshot models.Context) map[string]models.StepResult {
	var mu sync.Mutex
	results := make(map[string]models.StepResult, len(wave))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(o.maxConcurrency)
	for _, id := range wave {
		id := id
		o.emit(Event{Type: EventStepQueued, Capability: id, Iteration: iteration})
		eg.Go(func() error {
			step := o.invoke(ctx, iteration, id, snapshot)
			mu.Lock()
			results[id] = step
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()
	return results
}

// invoke runs one capability with the per-step timeout and converts the
// outcome into a StepResult. Failures are captured, never propagated as
// Go errors, so one capability cannot abort its siblings.
func (o *Orchestrator) invoke(ctx context.Context, iteration int, id string, snapshot models.Context) models.StepResult {
	prov, err := o.registry.Resolve(id)
	if err != nil {
		return models.StepResult{Capability: id, Status: models.StepFailed, Error: err.Error(), Iteration: iteration}
	}
	desc, err := o.registry.Describe(id)
	if err != nil {
		return models.StepResult{Capability: id, Status: models.StepFailed, Error: err.Error(), Iteration: iteration}
	}

	timeout := o.stepTimeout
	if desc.Timeout > 0 {
		timeout = desc.Timeout
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	o.emit(Event{Type: EventStepStarted, Capability: id, Iteration: iteration})
	debugLog("invoke: %s (timeout %s)", id, timeout)

	start := time.Now()
	outputs, err := prov.Invoke(cctx, snapshot)
	elapsed := time.Since(start)

	if err != nil {
		debugLog("invoke: %s failed after %s: %v", id, elapsed, err)
		return models.StepResult{
			Capability: id,
			Status:     models.StepFailed,
			Error:      err.Error(),
			Iteration:  iteration,
			Duration:   elapsed,
		}
	}
	debugLog("invoke: %s succeeded after %s (%d outputs)", id, elapsed, len(outputs))
	return models.StepResult{
		Capability: id,
		Status:     models.StepSuccess,
		Outputs:    outputs,
		Iteration:  iteration,
		Duration:   elapsed,
	}
}

// buildGraph restricts the registry's dependency graph to the plan's
// capabilities. Dependencies outside the plan are assumed already
// satisfied through the carried context.
func (o *Orchestrator) buildGraph(plan models.Plan) (*graph.Graph, error) {
	inPlan := make(map[string]bool, len(plan.Capabilities))
	for _, id := range plan.Capabilities {
		inPlan[id] = true
	}

	nodes := make([]graph.Node, 0, len(plan.Capabilities))
	for _, id := range plan.Capabilities {
		desc, err := o.registry.Describe(id)
		if err != nil {
			return nil, err
		}
		var deps []string
		for _, dep := range desc.DependsOn {
			if inPlan[dep] {
				deps = append(deps, dep)
			}
		}
		nodes = append(nodes, graph.Node{ID: id, DependsOn: deps, Priority: desc.Priority})
	}
	return graph.Build(nodes)
}

// dependsOnDead reports whether any in-plan dependency of id failed or
// was skipped.
func (o *Orchestrator) dependsOnDead(id string, dead map[string]bool) bool {
	desc, err := o.registry.Describe(id)
	if err != nil {
		return false
	}
	for _, dep := range desc.DependsOn {
		if dead[dep] {
			return true
		}
	}
	return false
}

func (o *Orchestrator) skip(iteration int, id, reason string) models.StepResult {
	debugLog("skip: %s (%s)", id, reason)
	return models.StepResult{
		Capability: id,
		Status:     models.StepSkipped,
		Reason:     reason,
		Iteration:  iteration,
	}
}

func recorded(steps []models.StepResult, id string) bool {
	for _, s := range steps {
		if s.Capability == id {
			return true
		}
	}
	return false
}

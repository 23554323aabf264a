// Package controller drives the plan-execute-validate iteration loop.
package controller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skyplan-dev/skyplan/internal/orchestrator"
	"github.com/skyplan-dev/skyplan/internal/planner"
	"github.com/skyplan-dev/skyplan/internal/registry"
	"github.com/skyplan-dev/skyplan/internal/validator"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

// Phase represents the current phase of the iteration loop.
type Phase string

const (
	// PhasePlanning indicates a plan is being built for the goal.
	PhasePlanning Phase = "planning"
	// PhaseExecuting indicates the plan's capabilities are running.
	PhaseExecuting Phase = "executing"
	// PhaseValidating indicates results are being judged against the goal.
	PhaseValidating Phase = "validating"
	// PhaseReplanning indicates a follow-up plan is being built.
	PhaseReplanning Phase = "replanning"
	// PhaseDone indicates the loop terminated.
	PhaseDone Phase = "done"
)

// Stop reasons recorded in the final report.
const (
	StopAchieved        = "achieved"
	StopMaxIterations   = "max_iterations"
	StopNoProgress      = "no_progress"
	StopBudgetExhausted = "budget_exhausted"
	StopCancelled       = "cancelled"
)

// DefaultMaxIterations bounds the plan-execute-validate loop.
const DefaultMaxIterations = 3

// ProgressEvent reports a loop transition to the caller.
type ProgressEvent struct {
	// Phase is the loop phase just entered.
	Phase Phase
	// Iteration is the current iteration, 1-based.
	Iteration int
	// MaxIterations is the configured iteration bound.
	MaxIterations int
	// Verdict is set when Phase is validating or done.
	Verdict *models.Verdict
	// Message is an optional status message.
	Message string
}

// ProgressCallback is called when loop transitions occur.
type ProgressCallback func(event ProgressEvent)

// Config controls a run.
type Config struct {
	// MaxIterations bounds the loop. Zero means DefaultMaxIterations.
	MaxIterations int
	// MaxConcurrency is passed through to the orchestrator.
	MaxConcurrency int
	// StepTimeout is passed through to the orchestrator.
	StepTimeout time.Duration
	// Budget bounds total wall-clock time for the run. Zero means no
	// limit.
	Budget time.Duration
	// CarryContext keeps outputs across iterations so replanned
	// capabilities see earlier results. Defaults to true; set
	// FreshContext to disable.
	FreshContext bool
	// Analyzer extracts goals from text. Nil means keyword matching.
	Analyzer planner.Analyzer
	// Events, when non-nil, receives orchestrator execution events.
	Events chan orchestrator.Event
	// Logger receives debug output.
	Logger *orchestrator.DebugLogger
	// OnProgress is called on loop transitions.
	OnProgress ProgressCallback
}

// Controller runs goals to completion over a capability registry. Each
// run plans, executes, validates, and replans until the goal is
// achieved or a stop condition fires.
type Controller struct {
	registry  *registry.Registry
	planner   *planner.Planner
	orch      *orchestrator.Orchestrator
	validator *validator.Validator
	cfg       Config
}

// New creates a controller over the given registry.
func New(reg *registry.Registry, cfg Config) *Controller {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	return &Controller{
		registry: reg,
		planner:  planner.New(reg, cfg.Analyzer),
		orch: orchestrator.New(reg, orchestrator.Config{
			MaxConcurrency: cfg.MaxConcurrency,
			StepTimeout:    cfg.StepTimeout,
			Events:         cfg.Events,
			Logger:         cfg.Logger,
		}),
		validator: validator.New(),
		cfg:       cfg,
	}
}

// Run processes one goal and returns the final report. An error is
// returned only when no work could be attempted at all: goal analysis
// failed, or the first plan could not be built. Once execution starts,
// every ending produces a report with a stop reason instead.
func (c *Controller) Run(ctx context.Context, goalText string) (*models.Report, error) {
	started := time.Now()
	if c.cfg.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Budget)
		defer cancel()
	}

	c.progress(ProgressEvent{Phase: PhasePlanning, Iteration: 1, MaxIterations: c.cfg.MaxIterations})

	goal, err := c.planner.Analyze(ctx, goalText)
	if err != nil {
		return nil, fmt.Errorf("analyze goal: %w", err)
	}
	plan, err := c.planner.Plan(goal)
	if err != nil {
		return nil, fmt.Errorf("plan goal: %w", err)
	}

	report := &models.Report{
		RunID:     uuid.New().String(),
		Goal:      goal,
		StartedAt: started,
	}
	cur := models.NewContext()
	var prevVerdict *models.Verdict

	for {
		c.progress(ProgressEvent{
			Phase:         PhaseExecuting,
			Iteration:     plan.Iteration,
			MaxIterations: c.cfg.MaxIterations,
			Message:       fmt.Sprintf("running %d capabilities", len(plan.Capabilities)),
		})

		base := cur
		if c.cfg.FreshContext {
			base = models.NewContext()
		}
		res, execErr := c.orch.Execute(ctx, plan, base)
		report.Steps = append(report.Steps, res.Steps...)
		for _, s := range res.Steps {
			if s.Status != models.StepSkipped {
				report.Chain = append(report.Chain, s.Capability)
			}
		}
		cur = res.Context
		report.Iterations = plan.Iteration

		verdict := c.validator.Validate(goal, cur)
		c.progress(ProgressEvent{
			Phase:         PhaseValidating,
			Iteration:     plan.Iteration,
			MaxIterations: c.cfg.MaxIterations,
			Verdict:       &verdict,
		})

		switch {
		case execErr != nil && errors.Is(execErr, context.DeadlineExceeded):
			return c.finish(report, cur, verdict, StopBudgetExhausted), nil
		case execErr != nil:
			return c.finish(report, cur, verdict, StopCancelled), nil
		case verdict.Achieved():
			return c.finish(report, cur, verdict, StopAchieved), nil
		case plan.Iteration >= c.cfg.MaxIterations:
			return c.finish(report, cur, verdict, StopMaxIterations), nil
		}

		c.progress(ProgressEvent{
			Phase:         PhaseReplanning,
			Iteration:     plan.Iteration,
			MaxIterations: c.cfg.MaxIterations,
			Verdict:       &verdict,
		})
		next, err := c.planner.Replan(planner.ReplanRequest{
			Prior:       plan,
			Context:     cur,
			Verdict:     verdict,
			PrevVerdict: prevVerdict,
		})
		if err != nil {
			return c.finish(report, cur, verdict, StopNoProgress), nil
		}
		prevVerdict = &verdict
		plan = next
	}
}

func (c *Controller) finish(report *models.Report, cur models.Context, verdict models.Verdict, reason string) *models.Report {
	report.Verdict = verdict
	report.Context = cur.Map()
	report.StopReason = reason
	report.Elapsed = time.Since(report.StartedAt)
	c.progress(ProgressEvent{
		Phase:         PhaseDone,
		Iteration:     report.Iterations,
		MaxIterations: c.cfg.MaxIterations,
		Verdict:       &verdict,
		Message:       reason,
	})
	return report
}

func (c *Controller) progress(e ProgressEvent) {
	if c.cfg.OnProgress != nil {
		c.cfg.OnProgress(e)
	}
}

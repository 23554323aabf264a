package orchestrator

import (
	"time"

	"github.com/skyplan-dev/skyplan/pkg/models"
)

// EventType represents the type of execution event.
type EventType string

const (
	// EventStepQueued indicates a capability is ready and queued to run.
	EventStepQueued EventType = "step_queued"
	// EventStepStarted indicates a capability has started execution.
	EventStepStarted EventType = "step_started"
	// EventStepCompleted indicates a capability completed successfully.
	EventStepCompleted EventType = "step_completed"
	// EventStepFailed indicates a capability failed.
	EventStepFailed EventType = "step_failed"
	// EventStepSkipped indicates a capability was skipped.
	EventStepSkipped EventType = "step_skipped"
	// EventPlanDone indicates the whole plan finished executing.
	EventPlanDone EventType = "plan_done"
)

// Event describes a single scheduling or execution transition.
type Event struct {
	// Type is the event type.
	Type EventType
	// Capability is the capability the event refers to, empty for
	// plan-level events.
	Capability string
	// Iteration is the plan iteration the event belongs to.
	Iteration int
	// Reason carries the skip reason for EventStepSkipped.
	Reason string
	// Err carries the failure detail for EventStepFailed.
	Err string
	// Time is when the event occurred.
	Time time.Time
}

// emit sends an event without blocking. A slow or absent consumer never
// stalls execution.
func (o *Orchestrator) emit(e Event) {
	if o.events == nil {
		return
	}
	e.Time = time.Now()
	select {
	case o.events <- e:
	default:
	}
}

func (o *Orchestrator) emitStep(t EventType, step models.StepResult) {
	o.emit(Event{
		Type:       t,
		Capability: step.Capability,
		Iteration:  step.Iteration,
		Reason:     step.Reason,
		Err:        step.Error,
	})
}

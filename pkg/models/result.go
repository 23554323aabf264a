package models

import "time"

// StepStatus represents the outcome of a single capability invocation.
type StepStatus string

const (
	// StepSuccess indicates the capability completed and produced outputs.
	StepSuccess StepStatus = "success"
	// StepFailed indicates the capability was invoked but failed or timed out.
	StepFailed StepStatus = "failed"
	// StepSkipped indicates the capability was never invoked.
	StepSkipped StepStatus = "skipped"
)

// Valid returns true if the status is a known value.
func (s StepStatus) Valid() bool {
	switch s {
	case StepSuccess, StepFailed, StepSkipped:
		return true
	default:
		return false
	}
}

// SkipReasonMissingDependency is recorded when a capability is skipped
// because a required input key was absent, typically because the
// capability that produces it failed or was itself skipped.
const SkipReasonMissingDependency = "MissingDependency"

// StepResult is the immutable record of one capability execution attempt.
type StepResult struct {
	// Capability is the capability ID this result belongs to.
	Capability string `json:"capability"`
	// Status is the step outcome.
	Status StepStatus `json:"status"`
	// Outputs holds the produced key-value outputs on success.
	Outputs map[string]any `json:"outputs,omitempty"`
	// Error is the captured failure detail when Status is failed.
	Error string `json:"error,omitempty"`
	// Reason explains a skipped step (e.g. MissingDependency).
	Reason string `json:"reason,omitempty"`
	// Iteration is the plan iteration this step ran in.
	Iteration int `json:"iteration"`
	// Duration is how long the invocation took. Zero for skipped steps.
	Duration time.Duration `json:"duration"`
}

// Achievement classifies how well the accumulated results satisfy the goal.
type Achievement string

const (
	// GoalAchieved means every requested outcome was satisfied.
	GoalAchieved Achievement = "achieved"
	// GoalPartial means at least one but not all outcomes were satisfied.
	GoalPartial Achievement = "partial"
	// GoalUnmet means no requested outcome was satisfied.
	GoalUnmet Achievement = "unmet"
)

// Verdict is the validator's judgement of one iteration's results.
type Verdict struct {
	// Achievement is the overall achievement level.
	Achievement Achievement `json:"achievement"`
	// Unmet lists the success criteria that were not satisfied.
	Unmet []string `json:"unmet,omitempty"`
	// Rationale is a human-readable explanation of the judgement.
	Rationale string `json:"rationale"`
}

// Achieved returns true if the goal was fully achieved.
func (v Verdict) Achieved() bool {
	return v.Achievement == GoalAchieved
}

// Equal reports whether two verdicts agree on achievement and unmet
// criteria. Rationale text is ignored: the no-progress check compares
// substance, not wording.
func (v Verdict) Equal(other Verdict) bool {
	if v.Achievement != other.Achievement || len(v.Unmet) != len(other.Unmet) {
		return false
	}
	for i, u := range v.Unmet {
		if u != other.Unmet[i] {
			return false
		}
	}
	return true
}

// Report is the final result returned to the caller after the iteration
// loop terminates. It is constructed once and never modified.
type Report struct {
	// RunID uniquely identifies this run.
	RunID string `json:"run_id"`
	// Goal is the goal that was processed.
	Goal Goal `json:"goal"`
	// Verdict is the final validation verdict.
	Verdict Verdict `json:"verdict"`
	// Chain lists the capability IDs actually executed, in order across
	// all iterations.
	Chain []string `json:"chain"`
	// Context is the merged execution context at termination.
	Context map[string]any `json:"context"`
	// Steps contains every step result from every iteration.
	Steps []StepResult `json:"steps"`
	// Iterations is the number of plan-execute-validate cycles performed.
	Iterations int `json:"iterations"`
	// Elapsed is the total wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// StopReason describes why the loop terminated
	// (achieved, max_iterations, no_progress, budget_exhausted).
	StopReason string `json:"stop_reason"`
}

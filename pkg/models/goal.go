// Package models defines the shared data types for skyplan.
package models

// Outcome is a named result a caller can request from a goal, such as
// "launch_data" or "weather_conditions". Capabilities advertise the
// outcomes they can satisfy.
type Outcome string

// Predicate is a cross-capability success condition declared at plan time.
// It holds only when every outcome it requires was achieved in the same run.
type Predicate struct {
	// Name identifies the predicate (e.g. "launch_delay_assessment").
	Name string `json:"name"`
	// Requires lists the outcomes that must be jointly achieved.
	Requires []Outcome `json:"requires"`
}

// Goal is a user goal plus the structured hints derived from it.
// A Goal is immutable once accepted; planning and execution never modify it.
type Goal struct {
	// Text is the original free-form goal statement.
	Text string `json:"text"`
	// Outcomes are the requested outcome tags extracted from the text.
	Outcomes []Outcome `json:"outcomes"`
	// Predicates are cross-capability conditions derived from the text.
	Predicates []Predicate `json:"predicates,omitempty"`
	// Fallback marks a goal whose text matched no outcome hints, so
	// every available outcome was requested instead.
	Fallback bool `json:"fallback,omitempty"`
}

// Requests returns true if the goal requests the given outcome.
func (g Goal) Requests(o Outcome) bool {
	for _, out := range g.Outcomes {
		if out == o {
			return true
		}
	}
	return false
}

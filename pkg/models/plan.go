package models

// Plan is one dependency-ordered attempt at resolving a goal.
// It lists capability IDs such that every capability's declared
// dependencies appear strictly earlier. Plans are created fresh each
// iteration and never mutated in place.
type Plan struct {
	// Goal is the goal this plan was built for.
	Goal Goal `json:"goal"`
	// Capabilities is the execution order of capability IDs.
	Capabilities []string `json:"capabilities"`
	// Iteration is the 1-based planning iteration that produced this plan.
	Iteration int `json:"iteration"`
}

// Contains returns true if the plan includes the given capability.
func (p *Plan) Contains(id string) bool {
	for _, c := range p.Capabilities {
		if c == id {
			return true
		}
	}
	return false
}

// Position returns the index of the capability in the plan, or -1.
func (p *Plan) Position(id string) int {
	for i, c := range p.Capabilities {
		if c == id {
			return i
		}
	}
	return -1
}

// Equal reports whether two plans execute the same capabilities in the
// same order. Iteration numbers are ignored; equality is by value so the
// no-progress detector cannot be fooled by fresh allocations.
func (p *Plan) Equal(other *Plan) bool {
	if p == nil || other == nil {
		return p == other
	}
	if len(p.Capabilities) != len(other.Capabilities) {
		return false
	}
	for i, c := range p.Capabilities {
		if c != other.Capabilities[i] {
			return false
		}
	}
	return true
}

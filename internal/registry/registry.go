// Package registry holds the static mapping from capability IDs to their
// descriptors and live providers.
package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/skyplan-dev/skyplan/internal/graph"
	"github.com/skyplan-dev/skyplan/internal/provider"
	"github.com/skyplan-dev/skyplan/pkg/models"
)

// ErrUnknownCapability indicates a capability ID that is not registered.
var ErrUnknownCapability = errors.New("unknown capability")

// ErrCyclicDependency indicates the registered capabilities form a
// dependency cycle. This is a configuration error, not a runtime one.
var ErrCyclicDependency = errors.New("cyclic capability dependency")

// Descriptor describes a registered capability.
type Descriptor struct {
	// ID is the capability identifier.
	ID string
	// Inputs are the context keys required before invocation.
	Inputs []string
	// Outputs are the context keys a successful invocation writes.
	Outputs []string
	// DependsOn lists capability IDs that must succeed first.
	DependsOn []string
	// Outcomes are the outcome tags this capability can satisfy. Every
	// outcome tag must name one of the capability's output keys.
	Outcomes []models.Outcome
	// Priority is the registration order, used to break planning ties.
	Priority int
	// Timeout bounds a single invocation. Zero means the orchestrator's
	// default applies.
	Timeout time.Duration
}

// Entry pairs a descriptor with its live provider.
type Entry struct {
	// Descriptor describes the capability.
	Descriptor Descriptor
	// Provider is the live capability provider.
	Provider provider.Provider
}

// Registry is an immutable capability catalog. It is built once at
// startup and safe for concurrent reads by construction.
type Registry struct {
	order     []string
	entries   map[string]Entry
	byOutcome map[models.Outcome]string
}

// New builds a registry from the given entries, validating the
// configuration-time invariants:
//   - capability IDs are unique and dependencies are registered
//   - the dependency graph is acyclic
//   - output key sets are disjoint across capabilities
//   - every advertised outcome names one of the capability's output keys
func New(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries:   make(map[string]Entry, len(entries)),
		byOutcome: make(map[models.Outcome]string),
	}

	ownedKeys := map[string]string{}
	for i, e := range entries {
		d := e.Descriptor
		if d.ID == "" {
			return nil, fmt.Errorf("entry %d has an empty capability ID", i)
		}
		if _, dup := r.entries[d.ID]; dup {
			return nil, fmt.Errorf("capability %s registered twice", d.ID)
		}
		if e.Provider == nil {
			return nil, fmt.Errorf("capability %s has no provider", d.ID)
		}

		for _, key := range d.Outputs {
			if owner, taken := ownedKeys[key]; taken {
				return nil, fmt.Errorf("output key %s declared by both %s and %s", key, owner, d.ID)
			}
			ownedKeys[key] = d.ID
		}

		for _, o := range d.Outcomes {
			found := false
			for _, key := range d.Outputs {
				if string(o) == key {
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("capability %s advertises outcome %s without a matching output key", d.ID, o)
			}
			if _, taken := r.byOutcome[o]; !taken {
				r.byOutcome[o] = d.ID
			}
		}

		d.Priority = i
		e.Descriptor = d
		r.entries[d.ID] = e
		r.order = append(r.order, d.ID)
	}

	for _, id := range r.order {
		for _, dep := range r.entries[id].Descriptor.DependsOn {
			if _, ok := r.entries[dep]; !ok {
				return nil, fmt.Errorf("capability %s depends on unregistered capability %s", id, dep)
			}
		}
	}

	if _, err := graph.Build(r.Nodes()); err != nil {
		if errors.Is(err, graph.ErrCycleDetected) {
			return nil, ErrCyclicDependency
		}
		return nil, err
	}

	return r, nil
}

// IDs returns the capability IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Describe returns the descriptor for the given capability ID.
func (r *Registry) Describe(id string) (Descriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownCapability, id)
	}
	return e.Descriptor, nil
}

// Resolve returns the live provider for the given capability ID.
func (r *Registry) Resolve(id string) (provider.Provider, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCapability, id)
	}
	return e.Provider, nil
}

// OutcomeProvider returns the capability that satisfies the given outcome
// tag. When several capabilities advertise the same tag, the earliest
// registered one wins, keeping planning deterministic.
func (r *Registry) OutcomeProvider(o models.Outcome) (string, bool) {
	id, ok := r.byOutcome[o]
	return id, ok
}

// Outcomes returns every outcome tag advertised by registered
// capabilities, in registration order.
func (r *Registry) Outcomes() []models.Outcome {
	var out []models.Outcome
	for _, id := range r.order {
		out = append(out, r.entries[id].Descriptor.Outcomes...)
	}
	return out
}

// Nodes converts the registered capabilities into graph nodes.
func (r *Registry) Nodes() []graph.Node {
	nodes := make([]graph.Node, 0, len(r.order))
	for _, id := range r.order {
		d := r.entries[id].Descriptor
		nodes = append(nodes, graph.Node{ID: d.ID, DependsOn: d.DependsOn, Priority: d.Priority})
	}
	return nodes
}

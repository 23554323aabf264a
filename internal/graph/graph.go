// Package graph provides the dependency graph used for capability planning
// and scheduling.
package graph

import (
	"errors"
	"fmt"
)

// ErrCycleDetected indicates a circular dependency among capabilities.
var ErrCycleDetected = errors.New("circular dependency detected")

// Node is a single capability in the graph.
type Node struct {
	// ID is the capability identifier.
	ID string
	// DependsOn lists capability IDs that must complete first.
	DependsOn []string
	// Priority breaks ordering ties between independent capabilities.
	// Lower values sort first; registries assign registration order.
	Priority int
}

// Graph is a directed acyclic graph of capability dependencies.
// Edges point from a capability to the capabilities it depends on.
// A Graph is built once and read-only afterwards; ordering operations
// are deterministic for identical inputs.
type Graph struct {
	// order preserves insertion order for deterministic traversal.
	order []string
	nodes map[string]Node
	// completed tracks capabilities marked complete for Ready.
	completed map[string]bool
}

// Build constructs a graph from the given nodes. It fails if a dependency
// references an unknown capability or if the graph contains a cycle.
func Build(nodes []Node) (*Graph, error) {
	g := &Graph{
		nodes:     make(map[string]Node, len(nodes)),
		completed: make(map[string]bool),
	}

	for _, n := range nodes {
		if _, dup := g.nodes[n.ID]; dup {
			return nil, fmt.Errorf("capability %s registered twice", n.ID)
		}
		g.nodes[n.ID] = n
		g.order = append(g.order, n.ID)
	}

	for _, n := range nodes {
		for _, dep := range n.DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, fmt.Errorf("capability %s depends on unknown capability %s", n.ID, dep)
			}
		}
	}

	if g.hasCycle() {
		return nil, ErrCycleDetected
	}
	return g, nil
}

// hasCycle detects back edges via depth-first search with coloring.
func (g *Graph) hasCycle() bool {
	// 0 = unvisited, 1 = in progress, 2 = done.
	colors := make(map[string]int, len(g.nodes))

	var visit func(id string) bool
	visit = func(id string) bool {
		colors[id] = 1
		for _, dep := range g.nodes[id].DependsOn {
			switch colors[dep] {
			case 1:
				return true
			case 0:
				if visit(dep) {
					return true
				}
			}
		}
		colors[id] = 2
		return false
	}

	for _, id := range g.order {
		if colors[id] == 0 && visit(id) {
			return true
		}
	}
	return false
}

// Size returns the number of capabilities in the graph.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// Contains returns true if the capability is present.
func (g *Graph) Contains(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Dependencies returns the direct dependencies of a capability.
func (g *Graph) Dependencies(id string) []string {
	return g.nodes[id].DependsOn
}

// Dependents returns the capabilities that directly depend on id,
// in insertion order.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, cand := range g.order {
		for _, dep := range g.nodes[cand].DependsOn {
			if dep == id {
				out = append(out, cand)
				break
			}
		}
	}
	return out
}

// TransitiveDependents returns every capability that directly or
// indirectly depends on id, in insertion order.
func (g *Graph) TransitiveDependents(id string) []string {
	affected := map[string]bool{}
	frontier := []string{id}
	for len(frontier) > 0 {
		next := frontier[0]
		frontier = frontier[1:]
		for _, dep := range g.Dependents(next) {
			if !affected[dep] {
				affected[dep] = true
				frontier = append(frontier, dep)
			}
		}
	}

	var out []string
	for _, cand := range g.order {
		if affected[cand] {
			out = append(out, cand)
		}
	}
	return out
}

// TopologicalSort returns capability IDs ordered so that every dependency
// comes before its dependents. Ties between independent capabilities are
// broken by Priority, then insertion order, so identical inputs always
// produce the identical order.
func (g *Graph) TopologicalSort() ([]string, error) {
	if g.hasCycle() {
		return nil, ErrCycleDetected
	}

	indegree := make(map[string]int, len(g.nodes))
	for _, id := range g.order {
		indegree[id] = len(g.nodes[id].DependsOn)
	}

	result := make([]string, 0, len(g.nodes))
	done := make(map[string]bool, len(g.nodes))

	// Kahn's algorithm with a deterministic pick: among zero-indegree
	// candidates, take the lowest priority, then earliest insertion.
	for len(result) < len(g.nodes) {
		pick := ""
		for _, id := range g.order {
			if done[id] || indegree[id] != 0 {
				continue
			}
			if pick == "" || g.nodes[id].Priority < g.nodes[pick].Priority {
				pick = id
			}
		}
		if pick == "" {
			return nil, ErrCycleDetected
		}

		done[pick] = true
		result = append(result, pick)
		for _, dep := range g.Dependents(pick) {
			indegree[dep]--
		}
	}

	return result, nil
}

// MarkComplete records a capability as completed, which affects Ready.
func (g *Graph) MarkComplete(id string) {
	g.completed[id] = true
}

// Completed returns true if the capability has been marked complete.
func (g *Graph) Completed(id string) bool {
	return g.completed[id]
}

// Ready returns capabilities whose dependencies are all complete and that
// are neither complete themselves nor listed in exclude. The result is in
// priority order, so scheduling is deterministic.
func (g *Graph) Ready(exclude map[string]bool) []string {
	var ready []string
	for _, id := range g.order {
		if g.completed[id] || exclude[id] {
			continue
		}
		ok := true
		for _, dep := range g.nodes[id].DependsOn {
			if !g.completed[dep] {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, id)
		}
	}
	return ready
}

// Package graph provides a dependency graph used for plan waves and
// pipeline task readiness.
package graph

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrCycleDetected indicates a circular dependency was found in the graph.
var ErrCycleDetected = errors.New("circular dependency detected")

// Node is a graph vertex identified by ID that is blocked by DependsOn.
type Node struct {
	ID        string
	DependsOn []string
}

// DependencyGraph represents a directed graph of "blocked by" edges.
// Insertion order is preserved so that layers are deterministic.
type DependencyGraph struct {
	mu sync.RWMutex
	// order records node IDs in the order they were added.
	order []string
	// edges maps node ID to IDs of nodes it depends on.
	edges map[string][]string
	// completed tracks which nodes have been marked complete.
	completed map[string]bool
}

// New creates a new empty dependency graph.
func New() *DependencyGraph {
	return &DependencyGraph{
		edges:     make(map[string][]string),
		completed: make(map[string]bool),
	}
}

// Add registers nodes. Dependencies on IDs that are never added are kept
// and make the dependent node unschedulable.
func (g *DependencyGraph) Add(nodes ...Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range nodes {
		if _, exists := g.edges[n.ID]; !exists {
			g.order = append(g.order, n.ID)
		}
		g.edges[n.ID] = append([]string(nil), n.DependsOn...)
	}
}

// AddEdge adds a dependency from -> to unless it would close a cycle.
func (g *DependencyGraph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.edges[from]; !ok {
		g.order = append(g.order, from)
		g.edges[from] = nil
	}
	if _, ok := g.edges[to]; !ok {
		g.order = append(g.order, to)
		g.edges[to] = nil
	}
	if from == to || g.reachableLocked(to, from) {
		return fmt.Errorf("%w: %s -> %s", ErrCycleDetected, from, to)
	}
	for _, dep := range g.edges[from] {
		if dep == to {
			return nil
		}
	}
	g.edges[from] = append(g.edges[from], to)
	return nil
}

// reachableLocked reports whether target can be reached from start by
// following dependency edges.
func (g *DependencyGraph) reachableLocked(start, target string) bool {
	seen := make(map[string]bool)
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		stack = append(stack, g.edges[id]...)
	}
	return false
}

// Layers groups node IDs into successive waves. Each wave holds, in
// insertion order, every remaining node whose dependencies all belong to
// earlier waves. When a pass selects nothing the remaining IDs are reported
// with ErrCycleDetected.
func (g *DependencyGraph) Layers() ([][]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	done := make(map[string]bool, len(g.order))
	remaining := append([]string(nil), g.order...)
	var layers [][]string

	for len(remaining) > 0 {
		var layer, rest []string
		for _, id := range remaining {
			if g.depsSatisfied(id, done) {
				layer = append(layer, id)
			} else {
				rest = append(rest, id)
			}
		}
		if len(layer) == 0 {
			return nil, fmt.Errorf("%w. Remaining: %s", ErrCycleDetected, strings.Join(rest, ", "))
		}
		for _, id := range layer {
			done[id] = true
		}
		layers = append(layers, layer)
		remaining = rest
	}
	return layers, nil
}

func (g *DependencyGraph) depsSatisfied(id string, done map[string]bool) bool {
	for _, dep := range g.edges[id] {
		if !done[dep] {
			return false
		}
	}
	return true
}

// GetReady returns node IDs that are not completed and whose dependencies
// are all completed, in insertion order.
func (g *DependencyGraph) GetReady() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var ready []string
	for _, id := range g.order {
		if g.completed[id] {
			continue
		}
		if g.depsSatisfied(id, g.completed) {
			ready = append(ready, id)
		}
	}
	return ready
}

// MarkComplete marks a node as completed. This affects subsequent calls to GetReady.
func (g *DependencyGraph) MarkComplete(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.completed[id] = true
}

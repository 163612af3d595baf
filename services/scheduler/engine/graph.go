// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package engine implements the milestone dependency and scheduling engine:
// graph construction, cycle detection, topological leveling, critical path
// analysis, cascading rescheduling, and heuristic dependency suggestion.
//
// # Description
//
// The engine operates on an in-memory snapshot of one project's milestones,
// loaded once per operation. Graph analyses (BuildGraph, AssignLevels,
// ComputeCriticalPath, SuggestDependencies) are pure functions over that
// snapshot. Mutator and Cascader are the only components that write through
// to the store, and Mutator serializes writes per project.
//
// # Invariant
//
// The dependency relation restricted to a single project is a directed
// acyclic graph. Every edge insertion is gated by the cycle detector;
// a leveling pass that cannot visit every node surfaces a
// GraphIntegrityError rather than silently proceeding.
package engine

import (
	"sort"
	"time"

	"github.com/planward/planward/services/scheduler/datatypes"
)

// Node is the ephemeral per-milestone view used by one analysis pass.
//
// Nodes are rebuilt fresh on every BuildGraph call and never persisted
// independently of the source milestones.
type Node struct {
	ID   string
	Name string

	// Dependencies and Dependents are adjacency restricted to the
	// snapshot: IDs referencing milestones outside it are dropped.
	Dependencies []string
	Dependents   []string

	// Level is the topological depth assigned by AssignLevels.
	Level int

	// Duration is DueDate - CreatedAt from the source milestone.
	Duration time.Duration

	EarliestStart  time.Time
	EarliestFinish time.Time
	LatestStart    time.Time
	LatestFinish   time.Time

	// SlackDays is LatestStart - EarliestStart in fractional days.
	SlackDays float64

	// OnCriticalPath is true when SlackDays is zero.
	OnCriticalPath bool
}

// Graph is an in-memory dependency graph over one project's milestones.
//
// Iteration over ids is deterministic (lexicographic). Graph is not safe
// for concurrent mutation; analyses run single-threaded over a snapshot.
type Graph struct {
	nodes   map[string]*Node
	ids     []string
	leveled bool
}

// BuildGraph materializes a graph from a milestone snapshot.
//
// # Description
//
// Produces one node per milestone with copied adjacency lists and
// zero-initialized computed fields. Earliest start seeds from the
// milestone's own CreatedAt. Adjacency entries that reference milestones
// outside the snapshot are dropped so traversals never dangle.
//
// # Inputs
//
//   - milestones: the project snapshot. May be empty.
//
// # Outputs
//
//   - *Graph: ready for AssignLevels / ComputeCriticalPath.
func BuildGraph(milestones []datatypes.Milestone) *Graph {
	g := &Graph{
		nodes: make(map[string]*Node, len(milestones)),
		ids:   make([]string, 0, len(milestones)),
	}

	for i := range milestones {
		m := &milestones[i]
		g.nodes[m.ID] = &Node{
			ID:            m.ID,
			Name:          m.Name,
			Duration:      m.Duration(),
			EarliestStart: m.CreatedAt,
		}
		g.ids = append(g.ids, m.ID)
	}
	sort.Strings(g.ids)

	for i := range milestones {
		m := &milestones[i]
		node := g.nodes[m.ID]
		node.Dependencies = g.filterKnown(m.Dependencies)
		node.Dependents = g.filterKnown(m.Dependents)
	}

	return g
}

// filterKnown copies ids, dropping duplicates and references to milestones
// not present in the snapshot.
func (g *Graph) filterKnown(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := g.nodes[id]; ok {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Node returns the node for id.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// IDs returns all node IDs in deterministic order.
func (g *Graph) IDs() []string {
	return g.ids
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns the underlying node map. Callers must not add or remove
// entries.
func (g *Graph) Nodes() map[string]*Node {
	return g.nodes
}

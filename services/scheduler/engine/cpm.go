// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"sort"
	"time"
)

// slackTolerance absorbs floating point noise when converting the
// LatestStart - EarliestStart difference to days.
const slackTolerance = 1e-9

// CPMResult carries the per-project aggregates of a critical path pass.
// Per-node values live on the graph's nodes.
type CPMResult struct {
	// CriticalPath is the zero-slack node IDs in topological order.
	CriticalPath []string

	// ProjectEnd is the latest earliest-finish across all nodes.
	ProjectEnd time.Time

	// TotalDurationDays spans the earliest start to ProjectEnd.
	TotalDurationDays float64
}

// ComputeCriticalPath runs the forward and backward CPM passes over the
// graph and derives slack per node.
//
// # Description
//
// Levels are assigned first if AssignLevels has not run. The forward pass
// walks nodes in ascending level order: a node with no predecessors keeps
// its own start date as earliest start, otherwise the earliest start is the
// maximum earliest finish over its predecessors; earliest finish adds the
// node's duration. The backward pass walks descending levels: a node with
// no dependents anchors latest finish at its earliest finish, otherwise the
// latest finish is the minimum latest start over its dependents; latest
// start subtracts the duration. Slack is latest start minus earliest start
// in days, and zero-slack nodes form the critical path.
//
// The formulas treat every edge as finish-to-start with zero lag. Relation
// type and lag are stored on the edge documents but not folded into the
// date arithmetic yet.
//
// # Outputs
//
//   - *CPMResult: critical path IDs plus project-level aggregates.
//   - error: a *GraphIntegrityError propagated from leveling.
func (g *Graph) ComputeCriticalPath() (*CPMResult, error) {
	if !g.leveled {
		if err := g.AssignLevels(); err != nil {
			return nil, err
		}
	}

	order := g.topoOrder()

	// Forward pass: earliest start / earliest finish.
	for _, id := range order {
		node := g.nodes[id]
		for _, predID := range node.Dependencies {
			pred := g.nodes[predID]
			if pred.EarliestFinish.After(node.EarliestStart) {
				node.EarliestStart = pred.EarliestFinish
			}
		}
		node.EarliestFinish = node.EarliestStart.Add(node.Duration)
	}

	// Backward pass: latest finish / latest start, descending level order.
	for i := len(order) - 1; i >= 0; i-- {
		node := g.nodes[order[i]]
		if len(node.Dependents) == 0 {
			node.LatestFinish = node.EarliestFinish
		} else {
			for _, depID := range node.Dependents {
				dep := g.nodes[depID]
				if node.LatestFinish.IsZero() || dep.LatestStart.Before(node.LatestFinish) {
					node.LatestFinish = dep.LatestStart
				}
			}
		}
		node.LatestStart = node.LatestFinish.Add(-node.Duration)

		node.SlackDays = node.LatestStart.Sub(node.EarliestStart).Hours() / 24
		node.OnCriticalPath = node.SlackDays <= slackTolerance && node.SlackDays >= -slackTolerance
	}

	result := &CPMResult{}
	var earliest time.Time
	for _, id := range order {
		node := g.nodes[id]
		if node.OnCriticalPath {
			result.CriticalPath = append(result.CriticalPath, id)
		}
		if result.ProjectEnd.IsZero() || node.EarliestFinish.After(result.ProjectEnd) {
			result.ProjectEnd = node.EarliestFinish
		}
		if earliest.IsZero() || node.EarliestStart.Before(earliest) {
			earliest = node.EarliestStart
		}
	}
	if !earliest.IsZero() {
		result.TotalDurationDays = result.ProjectEnd.Sub(earliest).Hours() / 24
	}

	return result, nil
}

// topoOrder returns node IDs sorted by level, breaking ties
// lexicographically for determinism.
func (g *Graph) topoOrder() []string {
	order := append([]string(nil), g.ids...)
	sort.SliceStable(order, func(i, j int) bool {
		a, b := g.nodes[order[i]], g.nodes[order[j]]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return a.ID < b.ID
	})
	return order
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

// AssignLevels assigns a topological level to every node using Kahn's
// algorithm.
//
// # Description
//
// Nodes with no predecessors get level 0; every other node's level is
// strictly greater than the maximum level of its predecessors. The queue is
// seeded with all zero in-degree nodes in deterministic order; popping a
// node decrements the in-degree of its dependents and raises each
// dependent's level to max(current, popped+1).
//
// # Outputs
//
//   - error: a *GraphIntegrityError when fewer nodes were visited than
//     exist. That means a cycle slipped past the insertion gate or the
//     stored edge data is corrupt; the caller must treat it as fatal.
func (g *Graph) AssignLevels() error {
	inDegree := make(map[string]int, len(g.nodes))
	for _, id := range g.ids {
		inDegree[id] = len(g.nodes[id].Dependencies)
	}

	var queue []string
	for _, id := range g.ids {
		if inDegree[id] == 0 {
			g.nodes[id].Level = 0
			queue = append(queue, id)
		}
	}

	visited := 0
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		visited++

		node := g.nodes[id]
		for _, depID := range node.Dependents {
			dep := g.nodes[depID]
			if next := node.Level + 1; next > dep.Level {
				dep.Level = next
			}
			inDegree[depID]--
			if inDegree[depID] == 0 {
				queue = append(queue, depID)
			}
		}
	}

	if visited != len(g.nodes) {
		return &GraphIntegrityError{Visited: visited, Total: len(g.nodes)}
	}

	g.leveled = true
	return nil
}

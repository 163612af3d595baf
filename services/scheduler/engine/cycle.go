// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

// WouldCreateCycle reports whether adding the edge fromID -> toID would
// create a cycle in the existing graph.
//
// # Description
//
// The candidate edge closes a cycle iff fromID is already reachable from
// toID via existing edges, i.e. toID is already, transitively, a
// predecessor of fromID. The check is a breadth-first traversal starting
// at toID over each node's Dependents list, with a visited set so it
// terminates in O(V+E) even on malformed data, returning true the first
// time it reaches fromID.
//
// This check is the sole gate protecting the DAG invariant and runs before
// every edge insertion.
func (g *Graph) WouldCreateCycle(fromID, toID string) bool {
	if fromID == toID {
		return true
	}
	start, ok := g.nodes[toID]
	if !ok {
		return false
	}

	visited := map[string]bool{toID: true}
	queue := append([]string(nil), start.Dependents...)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]

		if id == fromID {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		if node, ok := g.nodes[id]; ok {
			queue = append(queue, node.Dependents...)
		}
	}
	return false
}

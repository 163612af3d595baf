// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine package.
var (
	// ErrSelfDependency is returned when a milestone would depend on itself.
	ErrSelfDependency = errors.New("milestone cannot depend on itself")

	// ErrCircularDependency is returned when adding an edge would create a
	// cycle.
	ErrCircularDependency = errors.New("dependency would create a cycle")

	// ErrMilestoneNotFound is returned when a referenced milestone has no
	// corresponding document.
	ErrMilestoneNotFound = errors.New("milestone not found")

	// ErrGraphIntegrity is returned when the topological leveler visits
	// fewer nodes than exist, implying a cycle slipped past the cycle gate
	// or the edge data is corrupt. This is fatal, not user-retryable.
	ErrGraphIntegrity = errors.New("dependency graph integrity violation")

	// ErrInvalidRelationType is returned for an unrecognized relation type.
	ErrInvalidRelationType = errors.New("invalid relation type")
)

// SelfDependencyError identifies the milestone that attempted a self-loop.
type SelfDependencyError struct {
	MilestoneID string
}

// Error returns the error message.
func (e *SelfDependencyError) Error() string {
	return fmt.Sprintf("milestone %q cannot depend on itself", e.MilestoneID)
}

// Unwrap returns ErrSelfDependency so callers can match with errors.Is.
func (e *SelfDependencyError) Unwrap() error {
	return ErrSelfDependency
}

// CircularDependencyError identifies the rejected edge.
type CircularDependencyError struct {
	FromID string
	ToID   string
}

// Error returns the error message.
func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("dependency %s -> %s would create a cycle", e.FromID, e.ToID)
}

// Unwrap returns ErrCircularDependency so callers can match with errors.Is.
func (e *CircularDependencyError) Unwrap() error {
	return ErrCircularDependency
}

// MilestoneNotFoundError identifies the missing document.
type MilestoneNotFoundError struct {
	MilestoneID string
}

// Error returns the error message.
func (e *MilestoneNotFoundError) Error() string {
	return fmt.Sprintf("milestone %q not found", e.MilestoneID)
}

// Unwrap returns ErrMilestoneNotFound so callers can match with errors.Is.
func (e *MilestoneNotFoundError) Unwrap() error {
	return ErrMilestoneNotFound
}

// GraphIntegrityError reports an incomplete topological pass.
type GraphIntegrityError struct {
	// Visited is the number of nodes the leveler processed.
	Visited int

	// Total is the number of nodes in the graph.
	Total int
}

// Error returns the error message.
func (e *GraphIntegrityError) Error() string {
	return fmt.Sprintf("graph integrity violation: leveled %d of %d nodes (cycle or corrupt edges)",
		e.Visited, e.Total)
}

// Unwrap returns ErrGraphIntegrity so callers can match with errors.Is.
func (e *GraphIntegrityError) Unwrap() error {
	return ErrGraphIntegrity
}

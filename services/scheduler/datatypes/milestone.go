// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes defines the persistent and wire-level types for the
// scheduler service: milestones, dependency edges, and the request/response
// payloads exposed over the HTTP API.
//
// # Description
//
// Milestones and dependencies are the two document kinds owned by the store.
// A milestone carries its own adjacency (predecessor and successor milestone
// IDs) maintained by the dependency mutator; the edge documents are the
// authoritative record of each relation's type, lag, and creation metadata.
//
// # Thread Safety
//
// All types in this package are plain data. Copies are safe to share;
// concurrent mutation of a single instance is not.
package datatypes

import (
	"time"
)

// MilestoneStatus is the lifecycle state of a milestone.
type MilestoneStatus string

const (
	// StatusNotStarted indicates work has not begun.
	StatusNotStarted MilestoneStatus = "not-started"

	// StatusInProgress indicates work is underway.
	StatusInProgress MilestoneStatus = "in-progress"

	// StatusCompleted indicates the milestone is done.
	StatusCompleted MilestoneStatus = "completed"
)

// Valid reports whether s is one of the recognized statuses.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// Milestone is a project task document.
//
// # Description
//
// CreatedAt doubles as the milestone's start date and DueDate as its finish
// date; the difference between them is the milestone's duration for critical
// path purposes. Dependencies holds the IDs of predecessor milestones and
// Dependents the IDs of successor milestones. Both lists are maintained by
// the dependency mutator and must stay consistent with the stored edge
// documents.
//
// # Fields
//
//   - AutoUpdated: set by the cascading rescheduler when it shifts this
//     milestone's dates, so the UI can distinguish derived schedule changes
//     from manual ones.
type Milestone struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Status      MilestoneStatus `json:"status"`

	// CreatedAt is the milestone's start date.
	CreatedAt time.Time `json:"created_at"`

	// DueDate is the milestone's finish date.
	DueDate time.Time `json:"due_date"`

	// Dependencies are predecessor milestone IDs (edges pointing at this
	// milestone).
	Dependencies []string `json:"dependencies,omitempty"`

	// Dependents are successor milestone IDs (edges leaving this milestone).
	Dependents []string `json:"dependents,omitempty"`

	// AutoUpdated is true when the dates were last written by the
	// cascading rescheduler rather than a user.
	AutoUpdated bool `json:"auto_updated,omitempty"`

	// UpdatedAt is the last write time of this document.
	UpdatedAt time.Time `json:"updated_at"`
}

// Duration returns the milestone's duration (DueDate - CreatedAt).
// A milestone with DueDate before CreatedAt has a negative duration;
// callers that need day counts should clamp as appropriate.
func (m *Milestone) Duration() time.Duration {
	return m.DueDate.Sub(m.CreatedAt)
}

// DurationDays returns the milestone's duration in fractional days.
func (m *Milestone) DurationDays() float64 {
	return m.Duration().Hours() / 24
}

// HasDependency reports whether id is already listed as a predecessor.
func (m *Milestone) HasDependency(id string) bool {
	for _, d := range m.Dependencies {
		if d == id {
			return true
		}
	}
	return false
}

// HasDependent reports whether id is already listed as a successor.
func (m *Milestone) HasDependent(id string) bool {
	for _, d := range m.Dependents {
		if d == id {
			return true
		}
	}
	return false
}

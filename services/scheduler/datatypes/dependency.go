// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"fmt"
	"time"
)

// RelationType describes how a dependency constrains the successor's dates.
//
// Only finish-to-start participates in the critical path date arithmetic
// today; the other three variants (and LagDays) are stored and exposed over
// the API but not yet folded into the forward/backward pass formulas.
type RelationType string

const (
	// FinishToStart: the successor may not start before the predecessor
	// finishes. This is the default and the only type the scheduler's
	// date math currently honors.
	FinishToStart RelationType = "finish-to-start"

	// StartToStart: the successor may not start before the predecessor starts.
	StartToStart RelationType = "start-to-start"

	// FinishToFinish: the successor may not finish before the predecessor
	// finishes.
	FinishToFinish RelationType = "finish-to-finish"

	// StartToFinish: the successor may not finish before the predecessor
	// starts.
	StartToFinish RelationType = "start-to-finish"
)

// Valid reports whether t is one of the four recognized relation types.
func (t RelationType) Valid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish, StartToFinish:
		return true
	default:
		return false
	}
}

// Dependency is a directed edge document from a predecessor milestone to a
// successor milestone.
//
// # Description
//
// The ID is synthetic ("{from}_{to}") so at most one edge can exist per
// ordered pair of milestones. LagDays is a signed offset in days; negative
// values express lead time.
type Dependency struct {
	ID        string       `json:"id"`
	ProjectID string       `json:"project_id"`
	FromID    string       `json:"from_id"`
	FromName  string       `json:"from_name,omitempty"`
	ToID      string       `json:"to_id"`
	ToName    string       `json:"to_name,omitempty"`
	Type      RelationType `json:"type"`
	LagDays   int          `json:"lag_days,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	CreatedBy string       `json:"created_by,omitempty"`
}

// DependencyID returns the synthetic edge ID for the ordered pair (from, to).
func DependencyID(fromID, toID string) string {
	return fmt.Sprintf("%s_%s", fromID, toID)
}

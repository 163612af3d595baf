// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/storage"
)

// minimumGap is the gap enforced between a predecessor's due date and a
// dependent's start date.
const minimumGap = 24 * time.Hour

// Cascader propagates date shifts from a changed milestone through its
// dependents.
//
// # Description
//
// The cascade walks the snapshot with an iterative worklist rather than
// recursion. For each dependent of a shifted milestone the candidate start
// is the predecessor's due date plus one day; if that is later than the
// dependent's current start, the dependent keeps its duration and both
// dates move forward, the write is attributed with autoUpdated, and the
// dependent is requeued so its own dependents are re-examined. A dependent
// reachable through several predecessors is therefore evaluated once per
// trigger and ends up at the latest binding constraint.
//
// Termination is guaranteed on a DAG; a step budget converts a latent
// invariant violation (a cycle that slipped past the insertion gate) into a
// *GraphIntegrityError instead of looping forever.
//
// # Thread Safety
//
// Cascade must run under the project's mutation lock; Mutator enforces
// that for all engine-triggered cascades.
type Cascader struct {
	store storage.Store
}

// NewCascader creates a Cascader writing through the given store.
func NewCascader(store storage.Store) *Cascader {
	return &Cascader{store: store}
}

// CascadeResult reports which milestones a cascade shifted.
type CascadeResult struct {
	// UpdatedIDs lists shifted milestones in first-shift order.
	UpdatedIDs []string
}

// cascadeLocked runs the cascade. Caller holds the project mutation lock.
func (c *Cascader) cascadeLocked(ctx context.Context, projectID, changedID string) (*CascadeResult, error) {
	milestones, err := c.store.ListMilestonesByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}

	snapshot := make(map[string]*datatypes.Milestone, len(milestones))
	for i := range milestones {
		snapshot[milestones[i].ID] = &milestones[i]
	}
	if _, ok := snapshot[changedID]; !ok {
		return nil, &MilestoneNotFoundError{MilestoneID: changedID}
	}

	result := &CascadeResult{}
	shifted := make(map[string]bool)

	// A dependent can be requeued once per binding predecessor, so total
	// pops on a valid DAG never exceed V + E <= V + V*V. Exceeding the
	// budget means the graph is not acyclic.
	budget := len(snapshot)*len(snapshot) + len(snapshot) + 1

	queue := []string{changedID}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("cascade cancelled: %w", err)
		}
		if budget--; budget < 0 {
			return result, &GraphIntegrityError{Visited: len(shifted), Total: len(snapshot)}
		}

		cur := queue[0]
		queue = queue[1:]
		pred, ok := snapshot[cur]
		if !ok {
			continue
		}

		for _, depID := range pred.Dependents {
			dep, ok := snapshot[depID]
			if !ok {
				// Branch references a milestone that no longer exists;
				// abort just this branch.
				slog.Warn("cascade skipping missing dependent",
					"project_id", projectID,
					"dependent_id", depID,
					"predecessor_id", cur,
				)
				continue
			}

			candidateStart := pred.DueDate.Add(minimumGap)
			if !candidateStart.After(dep.CreatedAt) {
				continue
			}

			duration := dep.Duration()
			newDue := candidateStart.Add(duration)
			if err := c.store.UpdateMilestoneDates(ctx, dep.ID, candidateStart, newDue, true); err != nil {
				if errors.Is(err, storage.ErrMilestoneNotFound) {
					slog.Warn("cascade dependent vanished mid-walk",
						"project_id", projectID,
						"dependent_id", depID,
					)
					continue
				}
				return result, fmt.Errorf("shift milestone %s: %w", dep.ID, err)
			}

			dep.CreatedAt = candidateStart
			dep.DueDate = newDue
			dep.AutoUpdated = true

			if !shifted[dep.ID] {
				shifted[dep.ID] = true
				result.UpdatedIDs = append(result.UpdatedIDs, dep.ID)
			}
			queue = append(queue, dep.ID)
		}
	}

	if len(result.UpdatedIDs) > 0 {
		slog.Info("cascade rescheduled milestones",
			"project_id", projectID,
			"root_id", changedID,
			"updated", len(result.UpdatedIDs),
		)
	}
	return result, nil
}

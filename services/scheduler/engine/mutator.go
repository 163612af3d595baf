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
	"sync"
	"time"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/storage"
)

// Mutator is the only component that creates or removes dependency edges.
//
// # Description
//
// Every AddDependency call runs the full gate sequence before any write:
// self-loop rejection, snapshot load, cycle detection. On success the edge
// and both endpoint references are persisted in one store transaction and
// the cascading rescheduler runs rooted at the predecessor.
//
// # Thread Safety
//
// Safe for concurrent use. Mutations are serialized per project so a cycle
// check can never run against a snapshot made stale by a concurrent writer,
// and a triggered cascade completes before the next mutation on the same
// project is evaluated.
type Mutator struct {
	store    storage.Store
	cascader *Cascader

	mu           sync.Mutex
	projectLocks map[string]*sync.Mutex
}

// NewMutator creates a Mutator writing through the given store.
func NewMutator(store storage.Store, cascader *Cascader) *Mutator {
	return &Mutator{
		store:        store,
		cascader:     cascader,
		projectLocks: make(map[string]*sync.Mutex),
	}
}

// projectLock returns the mutex serializing mutations for one project.
func (m *Mutator) projectLock(projectID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.projectLocks[projectID]
	if !ok {
		lock = &sync.Mutex{}
		m.projectLocks[projectID] = lock
	}
	return lock
}

// AddDependencyParams are the inputs for AddDependency.
type AddDependencyParams struct {
	ProjectID string
	FromID    string
	FromName  string
	ToID      string
	ToName    string
	Type      datatypes.RelationType
	LagDays   int
	ActorID   string
}

// AddDependency creates the edge FromID -> ToID.
//
// # Description
//
// Fails with *SelfDependencyError when FromID == ToID and with
// *CircularDependencyError when the cycle detector finds FromID reachable
// from ToID. Both rejections happen before any store write. On success the
// successor gains a predecessor reference, the predecessor gains a
// dependent reference, and dates cascade from FromID.
//
// # Outputs
//
//   - *datatypes.Dependency: the persisted edge.
//   - error: a taxonomy error on rejection, or a wrapped store error.
func (m *Mutator) AddDependency(ctx context.Context, p AddDependencyParams) (*datatypes.Dependency, error) {
	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRelationType, p.Type)
	}
	if p.FromID == p.ToID {
		return nil, &SelfDependencyError{MilestoneID: p.FromID}
	}

	lock := m.projectLock(p.ProjectID)
	lock.Lock()
	defer lock.Unlock()

	snapshot, err := m.store.ListMilestonesByProject(ctx, p.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", p.ProjectID, err)
	}

	g := BuildGraph(snapshot)
	if _, ok := g.Node(p.FromID); !ok {
		return nil, &MilestoneNotFoundError{MilestoneID: p.FromID}
	}
	if _, ok := g.Node(p.ToID); !ok {
		return nil, &MilestoneNotFoundError{MilestoneID: p.ToID}
	}

	if g.WouldCreateCycle(p.FromID, p.ToID) {
		return nil, &CircularDependencyError{FromID: p.FromID, ToID: p.ToID}
	}

	dep := &datatypes.Dependency{
		ID:        datatypes.DependencyID(p.FromID, p.ToID),
		ProjectID: p.ProjectID,
		FromID:    p.FromID,
		FromName:  p.FromName,
		ToID:      p.ToID,
		ToName:    p.ToName,
		Type:      p.Type,
		LagDays:   p.LagDays,
		CreatedAt: time.Now().UTC(),
		CreatedBy: p.ActorID,
	}

	if err := m.store.CreateDependency(ctx, dep); err != nil {
		if errors.Is(err, storage.ErrMilestoneNotFound) {
			return nil, &MilestoneNotFoundError{MilestoneID: p.FromID}
		}
		return nil, fmt.Errorf("persist dependency %s: %w", dep.ID, err)
	}

	slog.Info("dependency added",
		"project_id", p.ProjectID,
		"dependency_id", dep.ID,
		"type", dep.Type,
		"lag_days", dep.LagDays,
	)

	// The new constraint may push the successor chain out.
	if _, err := m.cascader.cascadeLocked(ctx, p.ProjectID, p.FromID); err != nil {
		return dep, fmt.Errorf("dependency %s added but cascade failed: %w", dep.ID, err)
	}

	return dep, nil
}

// RemoveDependency detaches the edge FromID -> ToID from both endpoints.
//
// Removing a constraint never requires pulling dates earlier, so no cascade
// runs. Removing an edge that does not exist is a no-op.
func (m *Mutator) RemoveDependency(ctx context.Context, projectID, fromID, toID string) error {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.store.DeleteDependency(ctx, projectID, fromID, toID); err != nil {
		return fmt.Errorf("remove dependency %s: %w", datatypes.DependencyID(fromID, toID), err)
	}

	slog.Info("dependency removed",
		"project_id", projectID,
		"from_id", fromID,
		"to_id", toID,
	)
	return nil
}

// CheckCircularDependency reports whether the candidate edge would create a
// cycle, without side effects.
func (m *Mutator) CheckCircularDependency(ctx context.Context, projectID, fromID, toID string) (bool, error) {
	if fromID == toID {
		return true, nil
	}

	snapshot, err := m.store.ListMilestonesByProject(ctx, projectID)
	if err != nil {
		return false, fmt.Errorf("load project %s: %w", projectID, err)
	}
	return BuildGraph(snapshot).WouldCreateCycle(fromID, toID), nil
}

// Cascade runs the cascading rescheduler rooted at changedID under the
// project's mutation lock, so it cannot interleave with edge mutations.
func (m *Mutator) Cascade(ctx context.Context, projectID, changedID string) (*CascadeResult, error) {
	lock := m.projectLock(projectID)
	lock.Lock()
	defer lock.Unlock()

	return m.cascader.cascadeLocked(ctx, projectID, changedID)
}

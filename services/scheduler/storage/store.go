// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package storage defines the persistent milestone and dependency store
// contract consumed by the scheduling engine.
//
// # Description
//
// The engine treats the store as an external collaborator: keyed document
// read/update by milestone ID, project-scoped listing, and two-sided
// reference bookkeeping applied atomically. Implementations live in
// subpackages (badgerstore for the embedded BadgerDB store).
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/planward/planward/services/scheduler/datatypes"
)

// Sentinel errors for store implementations.
var (
	// ErrMilestoneNotFound is returned when a milestone document does not
	// exist.
	ErrMilestoneNotFound = errors.New("storage: milestone not found")

	// ErrDependencyNotFound is returned when a dependency document does
	// not exist.
	ErrDependencyNotFound = errors.New("storage: dependency not found")

	// ErrMilestoneExists is returned when creating a milestone whose ID is
	// already taken.
	ErrMilestoneExists = errors.New("storage: milestone already exists")
)

// Store is the persistent milestone/dependency document store.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Multi-document
// operations (CreateDependency, DeleteDependency, reference updates) must
// be atomic: concurrent readers see either none or all of their writes.
type Store interface {
	// CreateMilestone persists a new milestone document.
	// Returns ErrMilestoneExists if the ID is already taken.
	CreateMilestone(ctx context.Context, m *datatypes.Milestone) error

	// GetMilestone loads one milestone by ID.
	// Returns ErrMilestoneNotFound if absent.
	GetMilestone(ctx context.Context, id string) (*datatypes.Milestone, error)

	// PutMilestone overwrites a milestone document.
	PutMilestone(ctx context.Context, m *datatypes.Milestone) error

	// ListMilestonesByProject returns every milestone of a project.
	ListMilestonesByProject(ctx context.Context, projectID string) ([]datatypes.Milestone, error)

	// UpdateMilestoneDates rewrites a milestone's start and due dates and
	// its autoUpdated attribution flag.
	// Returns ErrMilestoneNotFound if absent.
	UpdateMilestoneDates(ctx context.Context, id string, createdAt, dueDate time.Time, autoUpdated bool) error

	// CreateDependency persists the edge document and, in the same
	// transaction, adds the two-sided milestone references: the successor
	// gains dep.FromID as a predecessor and the predecessor gains dep.ToID
	// as a dependent. Adding an already-present reference is a no-op.
	// Returns ErrMilestoneNotFound if either endpoint is absent.
	CreateDependency(ctx context.Context, dep *datatypes.Dependency) error

	// DeleteDependency removes the edge document and detaches both
	// milestone references in the same transaction. Removing an edge that
	// does not exist is a no-op.
	DeleteDependency(ctx context.Context, projectID, fromID, toID string) error

	// GetDependency loads one edge document by its synthetic ID.
	// Returns ErrDependencyNotFound if absent.
	GetDependency(ctx context.Context, id string) (*datatypes.Dependency, error)

	// ListDependenciesByProject returns every stored edge of a project,
	// deduplicated by edge ID.
	ListDependenciesByProject(ctx context.Context, projectID string) ([]datatypes.Dependency, error)

	// Close releases the underlying resources.
	Close() error
}

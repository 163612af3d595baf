// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/storage"
)

// Key prefixes. Keep these stable: they define the on-disk schema.
const (
	msPrefix      = "ms:"
	msProjPrefix  = "msproj:"
	depPrefix     = "dep:"
	depProjPrefix = "depproj:"
)

// Store implements storage.Store on BadgerDB.
//
// # Thread Safety
//
// Safe for concurrent use. Multi-document writes run in a single badger
// read-write transaction, so readers observe either none or all of the
// two-sided reference updates.
type Store struct {
	db     *badger.DB
	stopGC chan struct{}
	doneGC chan struct{}
}

// compile-time interface check
var _ storage.Store = (*Store)(nil)

// New opens a badger-backed store with the given configuration.
//
// # Outputs
//
//   - *Store: the opened store. Caller must Close() when done.
//   - error: non-nil if the database cannot be opened.
func New(cfg Config) (*Store, error) {
	db, err := open(cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{db: db}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.doneGC = make(chan struct{})
		go runGC(db, cfg.GCInterval, cfg.GCDiscardRatio, cfg.Logger, s.stopGC, s.doneGC)
	}
	return s, nil
}

// NewInMemory opens an in-memory store for testing.
func NewInMemory() (*Store, error) {
	return New(InMemoryConfig())
}

// Close stops garbage collection and closes the database.
func (s *Store) Close() error {
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.doneGC
		s.stopGC = nil
	}
	return s.db.Close()
}

// =============================================================================
// Key helpers
// =============================================================================

func milestoneKey(id string) []byte {
	return []byte(msPrefix + id)
}

func milestoneProjKey(projectID, id string) []byte {
	return []byte(msProjPrefix + projectID + ":" + id)
}

func dependencyKey(id string) []byte {
	return []byte(depPrefix + id)
}

func dependencyProjKey(projectID, id string) []byte {
	return []byte(depProjPrefix + projectID + ":" + id)
}

// getJSON loads and unmarshals one document inside a transaction.
func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// setJSON marshals and stores one document inside a transaction.
func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	return txn.Set(key, data)
}

// =============================================================================
// Milestones
// =============================================================================

// CreateMilestone persists a new milestone document and its project index
// entry.
func (s *Store) CreateMilestone(ctx context.Context, m *datatypes.Milestone) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(milestoneKey(m.ID)); err == nil {
			return fmt.Errorf("milestone %s: %w", m.ID, storage.ErrMilestoneExists)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("check milestone %s: %w", m.ID, err)
		}

		if err := setJSON(txn, milestoneKey(m.ID), m); err != nil {
			return err
		}
		return txn.Set(milestoneProjKey(m.ProjectID, m.ID), nil)
	})
}

// GetMilestone loads one milestone by ID.
func (s *Store) GetMilestone(ctx context.Context, id string) (*datatypes.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var m datatypes.Milestone
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, milestoneKey(id), &m)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("milestone %s: %w", id, storage.ErrMilestoneNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get milestone %s: %w", id, err)
	}
	return &m, nil
}

// PutMilestone overwrites a milestone document.
func (s *Store) PutMilestone(ctx context.Context, m *datatypes.Milestone) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, milestoneKey(m.ID), m); err != nil {
			return err
		}
		return txn.Set(milestoneProjKey(m.ProjectID, m.ID), nil)
	})
}

// ListMilestonesByProject returns every milestone of a project in ID order.
func (s *Store) ListMilestonesByProject(ctx context.Context, projectID string) ([]datatypes.Milestone, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var out []datatypes.Milestone
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(msProjPrefix + projectID + ":")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			var m datatypes.Milestone
			if err := getJSON(txn, milestoneKey(id), &m); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Dangling index entry; skip.
					continue
				}
				return fmt.Errorf("load milestone %s: %w", id, err)
			}
			out = append(out, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// UpdateMilestoneDates rewrites a milestone's dates and attribution flag.
func (s *Store) UpdateMilestoneDates(ctx context.Context, id string, createdAt, dueDate time.Time, autoUpdated bool) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		var m datatypes.Milestone
		if err := getJSON(txn, milestoneKey(id), &m); err != nil {
			return err
		}
		m.CreatedAt = createdAt
		m.DueDate = dueDate
		m.AutoUpdated = autoUpdated
		m.UpdatedAt = time.Now().UTC()
		return setJSON(txn, milestoneKey(id), &m)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("milestone %s: %w", id, storage.ErrMilestoneNotFound)
	}
	if err != nil {
		return fmt.Errorf("update milestone dates %s: %w", id, err)
	}
	return nil
}

// =============================================================================
// Dependencies
// =============================================================================

// CreateDependency persists the edge document and both endpoint references
// in one transaction.
func (s *Store) CreateDependency(ctx context.Context, dep *datatypes.Dependency) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		var from, to datatypes.Milestone
		if err := getJSON(txn, milestoneKey(dep.FromID), &from); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("milestone %s: %w", dep.FromID, storage.ErrMilestoneNotFound)
			}
			return fmt.Errorf("load milestone %s: %w", dep.FromID, err)
		}
		if err := getJSON(txn, milestoneKey(dep.ToID), &to); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("milestone %s: %w", dep.ToID, storage.ErrMilestoneNotFound)
			}
			return fmt.Errorf("load milestone %s: %w", dep.ToID, err)
		}

		// Union semantics: a reference already present stays single.
		now := time.Now().UTC()
		if !to.HasDependency(dep.FromID) {
			to.Dependencies = append(to.Dependencies, dep.FromID)
			to.UpdatedAt = now
			if err := setJSON(txn, milestoneKey(to.ID), &to); err != nil {
				return err
			}
		}
		if !from.HasDependent(dep.ToID) {
			from.Dependents = append(from.Dependents, dep.ToID)
			from.UpdatedAt = now
			if err := setJSON(txn, milestoneKey(from.ID), &from); err != nil {
				return err
			}
		}

		if err := setJSON(txn, dependencyKey(dep.ID), dep); err != nil {
			return err
		}
		return txn.Set(dependencyProjKey(dep.ProjectID, dep.ID), nil)
	})
}

// DeleteDependency removes the edge and detaches both references. Removing
// an edge that does not exist is a no-op.
func (s *Store) DeleteDependency(ctx context.Context, projectID, fromID, toID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}

	id := datatypes.DependencyID(fromID, toID)
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(dependencyKey(id)); err != nil {
			return fmt.Errorf("delete dependency %s: %w", id, err)
		}
		if err := txn.Delete(dependencyProjKey(projectID, id)); err != nil {
			return fmt.Errorf("delete dependency index %s: %w", id, err)
		}

		// Detach references; missing milestones are tolerated so removal
		// stays idempotent even after an external milestone delete.
		if err := detachRef(txn, toID, fromID, true); err != nil {
			return err
		}
		return detachRef(txn, fromID, toID, false)
	})
}

// detachRef removes refID from one side of a milestone's adjacency.
// fromDependencies selects the Dependencies list; otherwise Dependents.
func detachRef(txn *badger.Txn, milestoneID, refID string, fromDependencies bool) error {
	var m datatypes.Milestone
	if err := getJSON(txn, milestoneKey(milestoneID), &m); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("load milestone %s: %w", milestoneID, err)
	}

	removed := false
	if fromDependencies {
		m.Dependencies, removed = removeString(m.Dependencies, refID)
	} else {
		m.Dependents, removed = removeString(m.Dependents, refID)
	}
	if !removed {
		return nil
	}
	m.UpdatedAt = time.Now().UTC()
	return setJSON(txn, milestoneKey(milestoneID), &m)
}

func removeString(list []string, s string) ([]string, bool) {
	for i, v := range list {
		if v == s {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}

// GetDependency loads one edge document by its synthetic ID.
func (s *Store) GetDependency(ctx context.Context, id string) (*datatypes.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	var dep datatypes.Dependency
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, dependencyKey(id), &dep)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("dependency %s: %w", id, storage.ErrDependencyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get dependency %s: %w", id, err)
	}
	return &dep, nil
}

// ListDependenciesByProject returns every stored edge of a project,
// deduplicated by edge ID, in ID order.
func (s *Store) ListDependenciesByProject(ctx context.Context, projectID string) ([]datatypes.Dependency, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	seen := make(map[string]bool)
	var out []datatypes.Dependency
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(depProjPrefix + projectID + ":")
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			if seen[id] {
				continue
			}
			seen[id] = true

			var dep datatypes.Dependency
			if err := getJSON(txn, dependencyKey(id), &dep); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return fmt.Errorf("load dependency %s: %w", id, err)
			}
			out = append(out, dep)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

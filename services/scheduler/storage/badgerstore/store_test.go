// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package badgerstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testMilestone(id, projectID string) *datatypes.Milestone {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	return &datatypes.Milestone{
		ID:        id,
		ProjectID: projectID,
		Name:      "Milestone " + id,
		Status:    datatypes.StatusNotStarted,
		CreatedAt: start,
		DueDate:   start.AddDate(0, 0, 7),
	}
}

func TestStore_MilestoneCRUD(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("create and get", func(t *testing.T) {
		m := testMilestone("m1", "p1")
		require.NoError(t, s.CreateMilestone(ctx, m))

		got, err := s.GetMilestone(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, "Milestone m1", got.Name)
		assert.Equal(t, "p1", got.ProjectID)
	})

	t.Run("duplicate create rejected", func(t *testing.T) {
		err := s.CreateMilestone(ctx, testMilestone("m1", "p1"))
		assert.True(t, errors.Is(err, storage.ErrMilestoneExists))
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := s.GetMilestone(ctx, "nope")
		assert.True(t, errors.Is(err, storage.ErrMilestoneNotFound))
	})

	t.Run("update dates", func(t *testing.T) {
		newStart := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
		newDue := newStart.AddDate(0, 0, 3)
		require.NoError(t, s.UpdateMilestoneDates(ctx, "m1", newStart, newDue, true))

		got, err := s.GetMilestone(ctx, "m1")
		require.NoError(t, err)
		assert.True(t, got.CreatedAt.Equal(newStart))
		assert.True(t, got.DueDate.Equal(newDue))
		assert.True(t, got.AutoUpdated)
		assert.False(t, got.UpdatedAt.IsZero())
	})

	t.Run("update dates on missing milestone", func(t *testing.T) {
		err := s.UpdateMilestoneDates(ctx, "nope", time.Now(), time.Now(), false)
		assert.True(t, errors.Is(err, storage.ErrMilestoneNotFound))
	})
}

func TestStore_ListMilestonesByProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateMilestone(ctx, testMilestone("b", "p1")))
	require.NoError(t, s.CreateMilestone(ctx, testMilestone("a", "p1")))
	require.NoError(t, s.CreateMilestone(ctx, testMilestone("z", "p2")))

	got, err := s.ListMilestonesByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID, "listing is ID-ordered")
	assert.Equal(t, "b", got[1].ID)

	empty, err := s.ListMilestonesByProject(ctx, "p3")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStore_DependencyLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateMilestone(ctx, testMilestone("a", "p1")))
	require.NoError(t, s.CreateMilestone(ctx, testMilestone("b", "p1")))

	dep := &datatypes.Dependency{
		ID:        datatypes.DependencyID("a", "b"),
		ProjectID: "p1",
		FromID:    "a",
		ToID:      "b",
		Type:      datatypes.FinishToStart,
		CreatedAt: time.Now().UTC(),
		CreatedBy: "user-1",
	}

	t.Run("create wires both sides atomically", func(t *testing.T) {
		require.NoError(t, s.CreateDependency(ctx, dep))

		a, err := s.GetMilestone(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, a.Dependents)

		b, err := s.GetMilestone(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, b.Dependencies)

		got, err := s.GetDependency(ctx, "a_b")
		require.NoError(t, err)
		assert.Equal(t, datatypes.FinishToStart, got.Type)
	})

	t.Run("recreate keeps references single", func(t *testing.T) {
		require.NoError(t, s.CreateDependency(ctx, dep))

		b, err := s.GetMilestone(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, b.Dependencies, "union semantics, no duplicate")
	})

	t.Run("create with missing endpoint", func(t *testing.T) {
		bad := *dep
		bad.ID = datatypes.DependencyID("a", "ghost")
		bad.ToID = "ghost"
		err := s.CreateDependency(ctx, &bad)
		assert.True(t, errors.Is(err, storage.ErrMilestoneNotFound))
	})

	t.Run("delete detaches both sides", func(t *testing.T) {
		require.NoError(t, s.DeleteDependency(ctx, "p1", "a", "b"))

		a, err := s.GetMilestone(ctx, "a")
		require.NoError(t, err)
		assert.Empty(t, a.Dependents)

		b, err := s.GetMilestone(ctx, "b")
		require.NoError(t, err)
		assert.Empty(t, b.Dependencies)

		_, err = s.GetDependency(ctx, "a_b")
		assert.True(t, errors.Is(err, storage.ErrDependencyNotFound))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, s.DeleteDependency(ctx, "p1", "a", "b"))
		require.NoError(t, s.DeleteDependency(ctx, "p1", "ghost", "b"))
	})
}

func TestStore_ListDependenciesByProject(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateMilestone(ctx, testMilestone(id, "p1")))
	}

	for _, pair := range [][2]string{{"a", "b"}, {"b", "c"}} {
		dep := &datatypes.Dependency{
			ID:        datatypes.DependencyID(pair[0], pair[1]),
			ProjectID: "p1",
			FromID:    pair[0],
			ToID:      pair[1],
			Type:      datatypes.FinishToStart,
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, s.CreateDependency(ctx, dep))
	}

	got, err := s.ListDependenciesByProject(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a_b", got[0].ID)
	assert.Equal(t, "b_c", got[1].ID)

	other, err := s.ListDependenciesByProject(ctx, "p2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestStore_ContextCancellation(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetMilestone(ctx, "m1")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

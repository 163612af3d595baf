// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/singleflight"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage/badgerstore"
)

var (
	metricsOnce sync.Once
	testMetrics *observability.SchedulerMetrics
)

// sharedMetrics returns the process-wide metrics instance. Prometheus
// registration panics on duplicates, so tests share one instance.
func sharedMetrics() *observability.SchedulerMetrics {
	metricsOnce.Do(func() {
		testMetrics = observability.InitMetrics()
	})
	return testMetrics
}

func init() {
	gin.SetMode(gin.TestMode)
}

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

type fixture struct {
	router  *gin.Engine
	store   *badgerstore.Store
	mutator *engine.Mutator
}

// newFixture builds a router with every handler mounted and the given
// milestones pre-seeded under project "proj-1".
func newFixture(t *testing.T, milestones ...*datatypes.Milestone) *fixture {
	t.Helper()

	store, err := badgerstore.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	for _, m := range milestones {
		require.NoError(t, store.CreateMilestone(ctx, m))
	}

	metrics := sharedMetrics()
	mutator := engine.NewMutator(store, engine.NewCascader(store))
	group := &singleflight.Group{}

	router := gin.New()
	router.POST("/v1/milestones", HandleCreateMilestone(store, metrics))
	router.PATCH("/v1/milestones/:id/dates", HandleUpdateMilestoneDates(store, mutator, metrics))
	router.POST("/v1/dependencies", HandleAddDependency(mutator, metrics))
	p := router.Group("/v1/projects/:projectId")
	p.GET("/milestones", HandleListMilestones(store, metrics))
	p.GET("/dependencies", HandleListDependencies(store, metrics))
	p.GET("/dependencies/check", HandleCheckCircularDependency(mutator, metrics))
	p.DELETE("/dependencies/:fromId/:toId", HandleRemoveDependency(mutator, metrics))
	p.GET("/graph", HandleGetGraph(store, metrics, group))
	p.GET("/critical-path", HandleGetCriticalPath(store, metrics))
	p.POST("/milestones/:id/cascade", HandleCascade(mutator, metrics))
	p.GET("/suggestions", HandleGetSuggestions(store, metrics))

	return &fixture{router: router, store: store, mutator: mutator}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func ms(id string, start, due time.Time, deps, dependents []string) *datatypes.Milestone {
	return &datatypes.Milestone{
		ID:           id,
		ProjectID:    "proj-1",
		Name:         "Milestone " + id,
		Status:       datatypes.StatusNotStarted,
		CreatedAt:    start,
		DueDate:      due,
		Dependencies: deps,
		Dependents:   dependents,
	}
}

// chain returns A -> B with stored references on both sides.
func chain() []*datatypes.Milestone {
	return []*datatypes.Milestone{
		ms("A", day(0), day(5), nil, []string{"B"}),
		ms("B", day(5), day(10), []string{"A"}, nil),
	}
}

// =============================================================================
// Milestone Handlers
// =============================================================================

func TestHandleCreateMilestone(t *testing.T) {
	f := newFixture(t)

	t.Run("creates with defaults", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/milestones", gin.H{
			"project_id": "proj-1",
			"name":       "Design API",
			"due_date":   day(7).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var got datatypes.Milestone
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.NotEmpty(t, got.ID, "ID is generated when absent")
		assert.Equal(t, datatypes.StatusNotStarted, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("missing name rejected", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/milestones", gin.H{
			"project_id": "proj-1",
			"due_date":   day(7).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("due before start rejected", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/milestones", gin.H{
			"project_id": "proj-1",
			"name":       "Backwards",
			"created_at": day(7).Format(time.RFC3339),
			"due_date":   day(3).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed id rejected", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/v1/milestones", gin.H{
			"id":         "bad_id",
			"project_id": "proj-1",
			"name":       "Underscore collides with edge ids",
			"due_date":   day(7).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		body := gin.H{
			"id":         "dup",
			"project_id": "proj-1",
			"name":       "First",
			"due_date":   day(7).Format(time.RFC3339),
		}
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/milestones", body).Code)
		assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/v1/milestones", body).Code)
	})
}

func TestHandleListMilestones(t *testing.T) {
	f := newFixture(t, chain()...)

	w := f.do(t, http.MethodGet, "/v1/projects/proj-1/milestones", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		ProjectID  string                `json:"project_id"`
		Milestones []datatypes.Milestone `json:"milestones"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "proj-1", resp.ProjectID)
	assert.Len(t, resp.Milestones, 2)
}

func TestHandleUpdateMilestoneDates(t *testing.T) {
	t.Run("due date move cascades dependents", func(t *testing.T) {
		f := newFixture(t, chain()...)

		w := f.do(t, http.MethodPatch, "/v1/milestones/A/dates", gin.H{
			"project_id": "proj-1",
			"due_date":   day(8).Format(time.RFC3339),
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp datatypes.CascadeResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, []string{"B"}, resp.UpdatedIDs)

		b, err := f.store.GetMilestone(context.Background(), "B")
		require.NoError(t, err)
		assert.True(t, b.CreatedAt.Equal(day(9)), "B starts one day after A's new due date")
		assert.True(t, b.DueDate.Equal(day(14)), "B keeps its duration")
		assert.True(t, b.AutoUpdated)

		a, err := f.store.GetMilestone(context.Background(), "A")
		require.NoError(t, err)
		assert.False(t, a.AutoUpdated, "manual edit clears attribution on the target")
	})

	t.Run("no dates at all rejected", func(t *testing.T) {
		f := newFixture(t, chain()...)
		w := f.do(t, http.MethodPatch, "/v1/milestones/A/dates", gin.H{
			"project_id": "proj-1",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown milestone", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, http.MethodPatch, "/v1/milestones/ghost/dates", gin.H{
			"project_id": "proj-1",
			"due_date":   day(8).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("wrong project treated as missing", func(t *testing.T) {
		f := newFixture(t, chain()...)
		w := f.do(t, http.MethodPatch, "/v1/milestones/A/dates", gin.H{
			"project_id": "proj-2",
			"due_date":   day(8).Format(time.RFC3339),
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

// =============================================================================
// Dependency Handlers
// =============================================================================

func TestHandleAddDependency(t *testing.T) {
	depBody := func(from, to string) gin.H {
		return gin.H{
			"project_id": "proj-1",
			"from_id":    from,
			"to_id":      to,
		}
	}

	t.Run("creates edge", func(t *testing.T) {
		f := newFixture(t,
			ms("A", day(0), day(5), nil, nil),
			ms("B", day(10), day(15), nil, nil),
		)
		w := f.do(t, http.MethodPost, "/v1/dependencies", depBody("A", "B"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var dep datatypes.Dependency
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dep))
		assert.Equal(t, "A_B", dep.ID)
		assert.Equal(t, datatypes.FinishToStart, dep.Type, "relation type defaults")
	})

	t.Run("self reference conflicts", func(t *testing.T) {
		f := newFixture(t, ms("A", day(0), day(5), nil, nil))
		w := f.do(t, http.MethodPost, "/v1/dependencies", depBody("A", "A"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("cycle conflicts", func(t *testing.T) {
		f := newFixture(t, chain()...)
		w := f.do(t, http.MethodPost, "/v1/dependencies", depBody("B", "A"))
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown endpoint 404", func(t *testing.T) {
		f := newFixture(t, ms("A", day(0), day(5), nil, nil))
		w := f.do(t, http.MethodPost, "/v1/dependencies", depBody("A", "ghost"))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid relation type 400", func(t *testing.T) {
		f := newFixture(t, chain()...)
		body := depBody("A", "B")
		body["type"] = "finish-to-maybe"
		w := f.do(t, http.MethodPost, "/v1/dependencies", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields 400", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, http.MethodPost, "/v1/dependencies", gin.H{"project_id": "proj-1"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleRemoveDependency(t *testing.T) {
	f := newFixture(t, chain()...)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/v1/dependencies", gin.H{
			"project_id": "proj-1", "from_id": "A", "to_id": "B",
		}).Code)

	w := f.do(t, http.MethodDelete, "/v1/projects/proj-1/dependencies/A/B", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Removal is idempotent.
	w = f.do(t, http.MethodDelete, "/v1/projects/proj-1/dependencies/A/B", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleCheckCircularDependency(t *testing.T) {
	f := newFixture(t, chain()...)

	check := func(from, to string) bool {
		w := f.do(t, http.MethodGet,
			fmt.Sprintf("/v1/projects/proj-1/dependencies/check?from_id=%s&to_id=%s", from, to), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp struct {
			WouldCreate bool `json:"would_create"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp.WouldCreate
	}

	assert.True(t, check("B", "A"), "reverse of stored edge closes a cycle")
	assert.False(t, check("A", "B"))

	w := f.do(t, http.MethodGet, "/v1/projects/proj-1/dependencies/check?from_id=A", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "to_id is required")
}

func TestHandleListDependencies(t *testing.T) {
	f := newFixture(t, chain()...)
	require.Equal(t, http.StatusCreated,
		f.do(t, http.MethodPost, "/v1/dependencies", gin.H{
			"project_id": "proj-1", "from_id": "A", "to_id": "B",
		}).Code)

	w := f.do(t, http.MethodGet, "/v1/projects/proj-1/dependencies", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Dependencies []datatypes.Dependency `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Dependencies, 1)
	assert.Equal(t, "A_B", resp.Dependencies[0].ID)
}

// =============================================================================
// Analysis Handlers
// =============================================================================

func TestHandleGetGraph(t *testing.T) {
	f := newFixture(t, chain()...)

	w := f.do(t, http.MethodGet, "/v1/projects/proj-1/graph", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.GraphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"A", "B"}, resp.CriticalPath)
	assert.InDelta(t, 10.0, resp.TotalDurationDays, 1e-9)
	require.Contains(t, resp.Nodes, "B")
	assert.Equal(t, 1, resp.Nodes["B"].Level)
	assert.True(t, resp.Nodes["B"].OnCriticalPath)
}

func TestHandleGetGraph_EmptyProject(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/v1/projects/empty/graph", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.GraphResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Nodes)
	assert.Empty(t, resp.CriticalPath)
}

func TestHandleGetCriticalPath(t *testing.T) {
	f := newFixture(t, chain()...)

	w := f.do(t, http.MethodGet, "/v1/projects/proj-1/critical-path", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		CriticalPath      []string `json:"critical_path"`
		TotalDurationDays float64  `json:"total_duration_days"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{"A", "B"}, resp.CriticalPath)
	assert.InDelta(t, 10.0, resp.TotalDurationDays, 1e-9)
}

func TestHandleCascade(t *testing.T) {
	f := newFixture(t,
		ms("A", day(0), day(8), nil, []string{"B"}),
		ms("B", day(5), day(10), []string{"A"}, nil),
	)

	w := f.do(t, http.MethodPost, "/v1/projects/proj-1/milestones/A/cascade", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp datatypes.CascadeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Updated)
	assert.Equal(t, []string{"B"}, resp.UpdatedIDs)

	w = f.do(t, http.MethodPost, "/v1/projects/proj-1/milestones/ghost/cascade", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandleGetSuggestions(t *testing.T) {
	f := newFixture(t,
		ms("d1", day(0), day(5), nil, nil),
		&datatypes.Milestone{
			ID: "d2", ProjectID: "proj-1", Name: "Implement service",
			Status: datatypes.StatusNotStarted, CreatedAt: day(6), DueDate: day(12),
		},
	)
	// First milestone named so the keyword heuristic fires.
	a, err := f.store.GetMilestone(context.Background(), "d1")
	require.NoError(t, err)
	a.Name = "Design service"
	require.NoError(t, f.store.PutMilestone(context.Background(), a))

	w := f.do(t, http.MethodGet, "/v1/projects/proj-1/suggestions", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Suggestions []datatypes.SuggestionView `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Suggestions)
	assert.Equal(t, "d1", resp.Suggestions[0].FromID)
	assert.Equal(t, "d2", resp.Suggestions[0].ToID)
}

func TestHandleHealth(t *testing.T) {
	router := gin.New()
	router.GET("/health", HandleHealth("test"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"scheduler"`)
}

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
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/singleflight"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage"
)

// =============================================================================
// Graph Analysis
// =============================================================================

// analyzeProject loads a project snapshot, builds the graph, assigns
// levels, and runs the CPM passes.
func analyzeProject(ctx context.Context, store storage.Store, projectID string) (*engine.Graph, *engine.CPMResult, error) {
	milestones, err := store.ListMilestonesByProject(ctx, projectID)
	if err != nil {
		return nil, nil, err
	}

	g := engine.BuildGraph(milestones)
	result, err := g.ComputeCriticalPath()
	if err != nil {
		return nil, nil, err
	}
	return g, result, nil
}

// graphResponse converts an analyzed graph to its wire form.
func graphResponse(projectID string, g *engine.Graph, result *engine.CPMResult) datatypes.GraphResponse {
	nodes := make(map[string]datatypes.GraphNodeView, g.Len())
	for _, id := range g.IDs() {
		n, _ := g.Node(id)
		nodes[id] = datatypes.GraphNodeView{
			ID:             n.ID,
			Name:           n.Name,
			Dependencies:   n.Dependencies,
			Dependents:     n.Dependents,
			Level:          n.Level,
			EarliestStart:  n.EarliestStart,
			EarliestFinish: n.EarliestFinish,
			LatestStart:    n.LatestStart,
			LatestFinish:   n.LatestFinish,
			SlackDays:      n.SlackDays,
			OnCriticalPath: n.OnCriticalPath,
		}
	}
	return datatypes.GraphResponse{
		ProjectID:         projectID,
		Nodes:             nodes,
		CriticalPath:      result.CriticalPath,
		TotalDurationDays: result.TotalDurationDays,
		ProjectEnd:        result.ProjectEnd,
	}
}

// HandleGetGraph returns the fully analyzed dependency graph.
//
// # Description
//
// GET /v1/projects/:projectId/graph. Concurrent requests for the same
// project are collapsed through singleflight: one analysis runs and its
// result is shared, so a dashboard refresh storm costs one snapshot read.
func HandleGetGraph(store storage.Store, metrics *observability.SchedulerMetrics, group *singleflight.Group) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		metrics.AnalysisStarted()
		defer metrics.AnalysisEnded()

		start := time.Now()
		v, err, shared := group.Do("graph:"+projectID, func() (any, error) {
			g, result, err := analyzeProject(c.Request.Context(), store, projectID)
			if err != nil {
				return nil, err
			}
			resp := graphResponse(projectID, g, result)
			return &resp, nil
		})
		metrics.RecordAnalysis("graph", time.Since(start).Seconds())

		if err != nil {
			slog.Error("graph analysis failed", "projectId", projectID, "error", err)
			writeEngineError(c, "graph", metrics, err)
			return
		}
		if shared {
			slog.Debug("graph analysis shared across concurrent requests", "projectId", projectID)
		}

		c.JSON(http.StatusOK, v.(*datatypes.GraphResponse))
	}
}

// HandleGetCriticalPath returns just the critical path summary.
//
// GET /v1/projects/:projectId/critical-path.
func HandleGetCriticalPath(store storage.Store, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		metrics.AnalysisStarted()
		defer metrics.AnalysisEnded()

		start := time.Now()
		_, result, err := analyzeProject(c.Request.Context(), store, projectID)
		metrics.RecordAnalysis("critical_path", time.Since(start).Seconds())
		if err != nil {
			slog.Error("critical path analysis failed", "projectId", projectID, "error", err)
			writeEngineError(c, "critical_path", metrics, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project_id":          projectID,
			"critical_path":       result.CriticalPath,
			"total_duration_days": result.TotalDurationDays,
			"project_end":         result.ProjectEnd,
		})
	}
}

// HandleCascade reruns the cascading rescheduler from one milestone.
//
// POST /v1/projects/:projectId/milestones/:id/cascade. Useful after bulk
// imports, when milestone dates were written without going through the
// dates endpoint.
func HandleCascade(mutator *engine.Mutator, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")
		id := c.Param("id")

		result, err := mutator.Cascade(c.Request.Context(), projectID, id)
		if err != nil {
			metrics.RecordMutation(observability.OperationCascade, observability.OutcomeError)
			writeEngineError(c, "cascade", metrics, err)
			return
		}

		metrics.RecordMutation(observability.OperationCascade, observability.OutcomeApplied)
		metrics.RecordCascade(len(result.UpdatedIDs))
		slog.Info("cascade complete",
			"projectId", projectID, "rootId", id, "updated", len(result.UpdatedIDs))

		c.JSON(http.StatusOK, datatypes.CascadeResponse{
			ProjectID:  projectID,
			RootID:     id,
			Updated:    len(result.UpdatedIDs),
			UpdatedIDs: result.UpdatedIDs,
		})
	}
}

// HandleGetSuggestions returns heuristic dependency suggestions.
//
// GET /v1/projects/:projectId/suggestions.
func HandleGetSuggestions(store storage.Store, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		metrics.AnalysisStarted()
		defer metrics.AnalysisEnded()

		start := time.Now()
		milestones, err := store.ListMilestonesByProject(c.Request.Context(), projectID)
		if err != nil {
			slog.Error("failed to load project for suggestions", "projectId", projectID, "error", err)
			writeEngineError(c, "suggestions", metrics, err)
			return
		}

		suggestions := engine.SuggestDependencies(milestones)
		metrics.RecordAnalysis("suggestions", time.Since(start).Seconds())

		views := make([]datatypes.SuggestionView, 0, len(suggestions))
		for _, s := range suggestions {
			views = append(views, datatypes.SuggestionView{
				FromID:     s.FromID,
				ToID:       s.ToID,
				Reason:     s.Reason,
				Confidence: s.Confidence,
			})
		}

		c.JSON(http.StatusOK, gin.H{
			"project_id":  projectID,
			"suggestions": views,
		})
	}
}

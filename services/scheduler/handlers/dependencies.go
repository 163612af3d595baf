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
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage"
)

// HandleAddDependency inserts a dependency edge.
//
// # Description
//
// POST /v1/dependencies. The edge passes through the engine's insertion
// gate: self-references and edges that would close a cycle are rejected
// with 409 and nothing is written. An accepted edge triggers the
// cascading rescheduler for the predecessor's dependents before the
// response is sent.
func HandleAddDependency(mutator *engine.Mutator, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.AddDependencyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeValidationError(c, "add_dependency", metrics, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeValidationError(c, "add_dependency", metrics, err)
			return
		}
		req.EnsureDefaults()

		dep, err := mutator.AddDependency(c.Request.Context(), engine.AddDependencyParams{
			ProjectID: req.ProjectID,
			FromID:    req.FromID,
			FromName:  req.FromName,
			ToID:      req.ToID,
			ToName:    req.ToName,
			Type:      datatypes.RelationType(req.Type),
			LagDays:   req.LagDays,
			ActorID:   req.ActorID,
		})
		if err != nil {
			switch {
			case errors.Is(err, engine.ErrSelfDependency):
				metrics.RecordMutation(observability.OperationAddDependency, observability.OutcomeRejectedSelf)
			case errors.Is(err, engine.ErrCircularDependency):
				metrics.RecordMutation(observability.OperationAddDependency, observability.OutcomeRejectedCycle)
			case errors.Is(err, engine.ErrMilestoneNotFound):
				metrics.RecordMutation(observability.OperationAddDependency, observability.OutcomeRejectedNotFound)
			default:
				metrics.RecordMutation(observability.OperationAddDependency, observability.OutcomeError)
			}
			writeEngineError(c, "add_dependency", metrics, err)
			return
		}

		metrics.RecordMutation(observability.OperationAddDependency, observability.OutcomeApplied)
		c.JSON(http.StatusCreated, dep)
	}
}

// HandleRemoveDependency deletes a dependency edge.
//
// DELETE /v1/projects/:projectId/dependencies/:fromId/:toId. Removal is
// idempotent and never cascades; slack only grows when an edge goes away.
func HandleRemoveDependency(mutator *engine.Mutator, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")
		fromID := c.Param("fromId")
		toID := c.Param("toId")

		if err := mutator.RemoveDependency(c.Request.Context(), projectID, fromID, toID); err != nil {
			metrics.RecordMutation(observability.OperationRemoveDependency, observability.OutcomeError)
			writeEngineError(c, "remove_dependency", metrics, err)
			return
		}

		metrics.RecordMutation(observability.OperationRemoveDependency, observability.OutcomeApplied)
		slog.Info("removed dependency", "projectId", projectID, "fromId", fromID, "toId", toID)
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"from_id": fromID,
			"to_id":   toID,
		})
	}
}

// HandleCheckCircularDependency reports whether adding an edge would
// close a cycle, without mutating anything.
//
// GET /v1/projects/:projectId/dependencies/check?from_id=a&to_id=b.
func HandleCheckCircularDependency(mutator *engine.Mutator, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")
		fromID := c.Query("from_id")
		toID := c.Query("to_id")

		if fromID == "" || toID == "" {
			writeValidationError(c, "check_cycle", metrics,
				errors.New("from_id and to_id query parameters are required"))
			return
		}

		wouldCycle, err := mutator.CheckCircularDependency(c.Request.Context(), projectID, fromID, toID)
		if err != nil {
			writeEngineError(c, "check_cycle", metrics, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project_id":   projectID,
			"from_id":      fromID,
			"to_id":        toID,
			"would_create": wouldCycle,
		})
	}
}

// HandleListDependencies lists every stored edge of a project.
//
// GET /v1/projects/:projectId/dependencies.
func HandleListDependencies(store storage.Store, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		deps, err := store.ListDependenciesByProject(c.Request.Context(), projectID)
		if err != nil {
			slog.Error("failed to list dependencies", "projectId", projectID, "error", err)
			writeEngineError(c, "list_dependencies", metrics, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project_id":   projectID,
			"dependencies": deps,
		})
	}
}

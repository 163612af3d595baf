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
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/planward/planward/pkg/validation"
	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage"
)

// HandleCreateMilestone creates a milestone document.
//
// # Description
//
// POST /v1/milestones. The ID is generated when absent, the status
// defaults to not-started, and the start date defaults to the creation
// time. A due date before the start date is rejected.
func HandleCreateMilestone(store storage.Store, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateMilestoneRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeValidationError(c, "create_milestone", metrics, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeValidationError(c, "create_milestone", metrics, err)
			return
		}
		if req.ID != "" {
			sanitized, err := validation.SanitizeID(req.ID)
			if err != nil {
				writeValidationError(c, "create_milestone", metrics, err)
				return
			}
			req.ID = sanitized
		}
		if err := validation.ValidateID(req.ProjectID); err != nil {
			writeValidationError(c, "create_milestone", metrics, err)
			return
		}

		now := time.Now().UTC()
		m := &datatypes.Milestone{
			ID:          req.ID,
			ProjectID:   req.ProjectID,
			Name:        req.Name,
			Description: req.Description,
			Status:      datatypes.MilestoneStatus(req.Status),
			CreatedAt:   req.CreatedAt,
			DueDate:     req.DueDate,
			UpdatedAt:   now,
		}
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		if m.Status == "" {
			m.Status = datatypes.StatusNotStarted
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now
		}
		if m.DueDate.Before(m.CreatedAt) {
			writeValidationError(c, "create_milestone", metrics,
				errors.New("due_date precedes created_at"))
			return
		}

		if err := store.CreateMilestone(c.Request.Context(), m); err != nil {
			if errors.Is(err, storage.ErrMilestoneExists) {
				metrics.RecordError("create_milestone", observability.ErrorCodeValidation)
				c.JSON(http.StatusConflict, gin.H{"error": "milestone id already exists"})
				return
			}
			slog.Error("failed to persist milestone", "milestoneId", m.ID, "error", err)
			writeEngineError(c, "create_milestone", metrics, err)
			return
		}

		slog.Info("created milestone", "milestoneId", m.ID, "projectId", m.ProjectID)
		c.JSON(http.StatusCreated, m)
	}
}

// HandleListMilestones lists every milestone of a project.
//
// GET /v1/projects/:projectId/milestones.
func HandleListMilestones(store storage.Store, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")

		milestones, err := store.ListMilestonesByProject(c.Request.Context(), projectID)
		if err != nil {
			slog.Error("failed to list milestones", "projectId", projectID, "error", err)
			writeEngineError(c, "list_milestones", metrics, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"project_id": projectID,
			"milestones": milestones,
		})
	}
}

// HandleUpdateMilestoneDates rewrites a milestone's dates and cascades.
//
// # Description
//
// PATCH /v1/milestones/:id/dates. Either date may be omitted to keep the
// stored value. A manual edit clears the autoUpdated flag on the target.
// When the due date moves, the cascading rescheduler runs for the
// milestone's dependents and the shifted IDs are reported.
func HandleUpdateMilestoneDates(store storage.Store, mutator *engine.Mutator, metrics *observability.SchedulerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		var req datatypes.UpdateMilestoneDatesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeValidationError(c, "update_dates", metrics, err)
			return
		}
		if err := req.Validate(); err != nil {
			writeValidationError(c, "update_dates", metrics, err)
			return
		}
		if req.CreatedAt == nil && req.DueDate == nil {
			writeValidationError(c, "update_dates", metrics,
				errors.New("at least one of created_at, due_date is required"))
			return
		}

		ctx := c.Request.Context()
		current, err := store.GetMilestone(ctx, id)
		if err != nil {
			writeEngineError(c, "update_dates", metrics, err)
			return
		}
		if current.ProjectID != req.ProjectID {
			writeEngineError(c, "update_dates", metrics, storage.ErrMilestoneNotFound)
			return
		}

		newStart := current.CreatedAt
		newDue := current.DueDate
		if req.CreatedAt != nil {
			newStart = req.CreatedAt.UTC()
		}
		if req.DueDate != nil {
			newDue = req.DueDate.UTC()
		}
		if newDue.Before(newStart) {
			writeValidationError(c, "update_dates", metrics,
				errors.New("due_date precedes created_at"))
			return
		}

		// Manual edits always clear the attribution flag.
		if err := store.UpdateMilestoneDates(ctx, id, newStart, newDue, false); err != nil {
			metrics.RecordMutation(observability.OperationUpdateDates, observability.OutcomeError)
			writeEngineError(c, "update_dates", metrics, err)
			return
		}
		metrics.RecordMutation(observability.OperationUpdateDates, observability.OutcomeApplied)

		resp := datatypes.CascadeResponse{
			ProjectID: req.ProjectID,
			RootID:    id,
		}
		dueMoved := req.DueDate != nil && !newDue.Equal(current.DueDate)
		if dueMoved {
			result, err := mutator.Cascade(ctx, req.ProjectID, id)
			if err != nil {
				slog.Error("cascade after date update failed",
					"milestoneId", id, "projectId", req.ProjectID, "error", err)
				metrics.RecordMutation(observability.OperationCascade, observability.OutcomeError)
				writeEngineError(c, "update_dates", metrics, err)
				return
			}
			metrics.RecordMutation(observability.OperationCascade, observability.OutcomeApplied)
			metrics.RecordCascade(len(result.UpdatedIDs))
			resp.Updated = len(result.UpdatedIDs)
			resp.UpdatedIDs = result.UpdatedIDs
		}

		slog.Info("updated milestone dates",
			"milestoneId", id, "projectId", req.ProjectID,
			"cascaded", dueMoved, "updated", resp.Updated)
		c.JSON(http.StatusOK, resp)
	}
}

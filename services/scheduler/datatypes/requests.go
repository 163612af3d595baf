// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// schedulerValidate is the validator instance for scheduler request types.
// Initialized in init() with custom validators.
var schedulerValidate *validator.Validate

func init() {
	schedulerValidate = validator.New()

	_ = schedulerValidate.RegisterValidation("relationtype", validateRelationType)
	_ = schedulerValidate.RegisterValidation("milestonestatus", validateMilestoneStatus)
}

// validateRelationType accepts the empty string (defaulted to finish-to-start
// by EnsureDefaults) or one of the four recognized relation types.
func validateRelationType(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || RelationType(v).Valid()
}

// validateMilestoneStatus accepts the empty string (defaulted to not-started)
// or one of the recognized statuses.
func validateMilestoneStatus(fl validator.FieldLevel) bool {
	v := fl.Field().String()
	return v == "" || MilestoneStatus(v).Valid()
}

// =============================================================================
// Dependency Requests
// =============================================================================

// AddDependencyRequest is the body for POST /v1/dependencies.
//
// # Validation
//
// Uses go-playground/validator:
//   - ProjectID, FromID, ToID: required
//   - Type: empty (defaults to finish-to-start) or a valid relation type
//   - LagDays: signed; negative values are lead time
type AddDependencyRequest struct {
	ProjectID string `json:"project_id" validate:"required"`
	FromID    string `json:"from_id" validate:"required"`
	FromName  string `json:"from_name"`
	ToID      string `json:"to_id" validate:"required"`
	ToName    string `json:"to_name"`
	Type      string `json:"type" validate:"relationtype"`
	LagDays   int    `json:"lag_days"`
	ActorID   string `json:"actor_id"`
}

// Validate validates the request fields.
func (r *AddDependencyRequest) Validate() error {
	return schedulerValidate.Struct(r)
}

// EnsureDefaults populates defaults for optional fields.
func (r *AddDependencyRequest) EnsureDefaults() {
	if r.Type == "" {
		r.Type = string(FinishToStart)
	}
}

// =============================================================================
// Milestone Requests
// =============================================================================

// CreateMilestoneRequest is the body for POST /v1/milestones.
type CreateMilestoneRequest struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id" validate:"required"`
	Name        string    `json:"name" validate:"required,max=512"`
	Description string    `json:"description" validate:"max=8192"`
	Status      string    `json:"status" validate:"milestonestatus"`
	CreatedAt   time.Time `json:"created_at"`
	DueDate     time.Time `json:"due_date" validate:"required"`
}

// Validate validates the request fields.
func (r *CreateMilestoneRequest) Validate() error {
	return schedulerValidate.Struct(r)
}

// UpdateMilestoneDatesRequest is the body for PATCH /v1/milestones/:id/dates.
//
// Either date may be omitted to leave it unchanged. A due date change
// triggers the cascading rescheduler for the milestone's dependents.
type UpdateMilestoneDatesRequest struct {
	ProjectID string     `json:"project_id" validate:"required"`
	CreatedAt *time.Time `json:"created_at"`
	DueDate   *time.Time `json:"due_date"`
}

// Validate validates the request fields.
func (r *UpdateMilestoneDatesRequest) Validate() error {
	if err := schedulerValidate.Struct(r); err != nil {
		return err
	}
	return nil
}

// =============================================================================
// Analysis Responses
// =============================================================================

// GraphNodeView is the wire representation of one analyzed graph node.
type GraphNodeView struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Dependencies   []string  `json:"dependencies,omitempty"`
	Dependents     []string  `json:"dependents,omitempty"`
	Level          int       `json:"level"`
	EarliestStart  time.Time `json:"earliest_start"`
	EarliestFinish time.Time `json:"earliest_finish"`
	LatestStart    time.Time `json:"latest_start"`
	LatestFinish   time.Time `json:"latest_finish"`
	SlackDays      float64   `json:"slack_days"`
	OnCriticalPath bool      `json:"on_critical_path"`
}

// GraphResponse is the body for GET /v1/projects/:projectId/graph.
type GraphResponse struct {
	ProjectID string `json:"project_id"`

	// Nodes keyed by milestone ID, with level and critical path fields
	// populated.
	Nodes map[string]GraphNodeView `json:"nodes"`

	// CriticalPath is the set of zero-slack milestone IDs in deterministic
	// order.
	CriticalPath []string `json:"critical_path"`

	// TotalDurationDays is the span from the earliest start to the latest
	// earliest-finish across the project.
	TotalDurationDays float64 `json:"total_duration_days"`

	// ProjectEnd is the latest earliest-finish across all nodes.
	ProjectEnd time.Time `json:"project_end"`
}

// SuggestionView is one ranked dependency suggestion.
type SuggestionView struct {
	FromID     string  `json:"from_id"`
	ToID       string  `json:"to_id"`
	Reason     string  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// CascadeResponse reports the outcome of a cascade operation.
type CascadeResponse struct {
	ProjectID string `json:"project_id"`
	RootID    string `json:"root_id"`

	// Updated is the number of milestones whose dates were shifted.
	Updated int `json:"updated"`

	// UpdatedIDs lists the shifted milestones in cascade order.
	UpdatedIDs []string `json:"updated_ids,omitempty"`
}

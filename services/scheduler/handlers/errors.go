// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP handlers for the scheduler service.
//
// Handlers are thin: they bind and validate the request, call into the
// engine or store, and translate engine errors into HTTP status codes.
// All scheduling semantics live in the engine package.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage"
)

// =============================================================================
// Error Translation
// =============================================================================

// writeEngineError maps engine and storage errors onto HTTP responses.
//
// # Description
//
// The mapping follows the error taxonomy of the engine package:
//
//   - self-referencing or circular dependency: 409 Conflict
//   - unknown milestone or dependency: 404 Not Found
//   - graph integrity violation (stored state is not a DAG): 500
//   - anything else: 500 with a generic message
//
// The concrete error text is returned for rejection cases so callers can
// see which edge was refused; internal failures return a generic message
// and rely on logs for detail.
func writeEngineError(c *gin.Context, endpoint string, metrics *observability.SchedulerMetrics, err error) {
	switch {
	case errors.Is(err, engine.ErrSelfDependency), errors.Is(err, engine.ErrCircularDependency):
		metrics.RecordError(endpoint, observability.ErrorCodeCycle)
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrMilestoneNotFound),
		errors.Is(err, storage.ErrMilestoneNotFound),
		errors.Is(err, storage.ErrDependencyNotFound):
		metrics.RecordError(endpoint, observability.ErrorCodeNotFound)
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrGraphIntegrity):
		metrics.RecordError(endpoint, observability.ErrorCodeGraphIntegrity)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrInvalidRelationType):
		metrics.RecordError(endpoint, observability.ErrorCodeValidation)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		metrics.RecordError(endpoint, observability.ErrorCodeInternal)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// writeValidationError maps request binding/validation failures to 400.
func writeValidationError(c *gin.Context, endpoint string, metrics *observability.SchedulerMetrics, err error) {
	metrics.RecordError(endpoint, observability.ErrorCodeValidation)
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/middleware"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage/badgerstore"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := badgerstore.NewInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	metrics := observability.InitMetrics()
	mutator := engine.NewMutator(store, engine.NewCascader(store))
	limiter := middleware.NewMutationLimiter(100, 100)

	router := gin.New()
	SetupRoutes(router, store, mutator, metrics, limiter, "test")
	return router
}

func TestSetupRoutes_Registration(t *testing.T) {
	router := newTestRouter(t)

	get := func(path string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w.Code
	}

	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusOK, get("/metrics"))

	// Analysis routes answer even for unknown projects.
	assert.Equal(t, http.StatusOK, get("/v1/projects/none/milestones"))
	assert.Equal(t, http.StatusOK, get("/v1/projects/none/dependencies"))
	assert.Equal(t, http.StatusOK, get("/v1/projects/none/graph"))
	assert.Equal(t, http.StatusOK, get("/v1/projects/none/critical-path"))
	assert.Equal(t, http.StatusOK, get("/v1/projects/none/suggestions"))

	// Mutating routes exist (empty bodies fail validation, not routing).
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/dependencies", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, http.StatusNotFound, get("/v1/unknown"))
}

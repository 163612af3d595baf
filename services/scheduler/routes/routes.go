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
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/singleflight"

	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/handlers"
	"github.com/planward/planward/services/scheduler/middleware"
	"github.com/planward/planward/services/scheduler/observability"
	"github.com/planward/planward/services/scheduler/storage"
)

// SetupRoutes registers every scheduler endpoint on the router.
//
// Mutating routes additionally pass through the per-project mutation
// rate limiter; read-only analysis routes do not.
func SetupRoutes(router *gin.Engine, store storage.Store, mutator *engine.Mutator,
	metrics *observability.SchedulerMetrics, limiter *middleware.MutationLimiter, version string) {

	router.GET("/health", handlers.HandleHealth(version))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	analysisGroup := &singleflight.Group{}
	limit := limiter.Middleware()

	// API version 1 group
	v1 := router.Group("/v1")
	{
		v1.POST("/milestones", limit, handlers.HandleCreateMilestone(store, metrics))
		v1.PATCH("/milestones/:id/dates", limit, handlers.HandleUpdateMilestoneDates(store, mutator, metrics))
		v1.POST("/dependencies", limit, handlers.HandleAddDependency(mutator, metrics))

		projects := v1.Group("/projects/:projectId")
		{
			projects.GET("/milestones", handlers.HandleListMilestones(store, metrics))
			projects.GET("/dependencies", handlers.HandleListDependencies(store, metrics))
			projects.GET("/dependencies/check", handlers.HandleCheckCircularDependency(mutator, metrics))
			projects.DELETE("/dependencies/:fromId/:toId", limit, handlers.HandleRemoveDependency(mutator, metrics))
			projects.GET("/graph", handlers.HandleGetGraph(store, metrics, analysisGroup))
			projects.GET("/critical-path", handlers.HandleGetCriticalPath(store, metrics))
			projects.POST("/milestones/:id/cascade", limit, handlers.HandleCascade(mutator, metrics))
			projects.GET("/suggestions", handlers.HandleGetSuggestions(store, metrics))
		}
	}
}

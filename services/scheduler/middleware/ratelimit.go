// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// =============================================================================
// Mutation Rate Limiter
// =============================================================================

// MutationLimiter rate-limits graph mutations per project.
//
// # Description
//
// Mutations for a project are serialized behind a lock, so a burst of
// writes against one project queues rather than runs in parallel. The
// limiter keeps that queue bounded: each project gets a token-bucket
// limiter and requests beyond the burst are rejected with 429 instead
// of piling up behind the project lock.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type MutationLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	ratePerSecond rate.Limit
	burst         int
}

// NewMutationLimiter creates a limiter allowing ratePerSecond mutations
// per project with the given burst.
func NewMutationLimiter(ratePerSecond float64, burst int) *MutationLimiter {
	return &MutationLimiter{
		limiters:      make(map[string]*rate.Limiter),
		ratePerSecond: rate.Limit(ratePerSecond),
		burst:         burst,
	}
}

// limiterFor returns the per-project limiter, creating it on first use.
func (l *MutationLimiter) limiterFor(projectID string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[projectID]
	if !ok {
		lim = rate.NewLimiter(l.ratePerSecond, l.burst)
		l.limiters[projectID] = lim
	}
	return lim
}

// Middleware returns a Gin middleware enforcing the per-project limit.
//
// # Description
//
// The project is taken from the projectId path parameter when present,
// falling back to a shared bucket for routes that carry the project in
// the request body. Rejected requests receive 429 with a JSON error.
//
// # Outputs
//
//   - gin.HandlerFunc: Middleware function ready for use with Gin
func (l *MutationLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		projectID := c.Param("projectId")
		if projectID == "" {
			projectID = "_global"
		}

		if !l.limiterFor(projectID).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "mutation rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

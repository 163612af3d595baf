// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planward/planward/services/scheduler/datatypes"
)

// =============================================================================
// Plan File Format
// =============================================================================

// Plan is the YAML plan file format consumed by analyze and suggest.
//
// # Example
//
//	project_id: website-launch
//	milestones:
//	  - id: design
//	    name: Design pages
//	    start: 2025-03-01
//	    due: 2025-03-05
//	  - id: build
//	    name: Implement pages
//	    start: 2025-03-06
//	    due: 2025-03-15
//	dependencies:
//	  - from: design
//	    to: build
type Plan struct {
	ProjectID    string          `yaml:"project_id"`
	Milestones   []PlanMilestone `yaml:"milestones"`
	Dependencies []PlanEdge      `yaml:"dependencies"`
}

// PlanMilestone is one milestone entry in a plan file.
type PlanMilestone struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Status string `yaml:"status"`
	Start  string `yaml:"start"`
	Due    string `yaml:"due"`
}

// PlanEdge is one dependency entry in a plan file.
type PlanEdge struct {
	From    string `yaml:"from"`
	To      string `yaml:"to"`
	Type    string `yaml:"type"`
	LagDays int    `yaml:"lag_days"`
}

// planDateLayouts are the accepted date formats, tried in order.
var planDateLayouts = []string{"2006-01-02", time.RFC3339}

func parsePlanDate(field, value string) (time.Time, error) {
	for _, layout := range planDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%s: unrecognized date %q (want YYYY-MM-DD or RFC3339)", field, value)
}

// LoadPlan reads and validates a plan file.
//
// Validation here covers the file format only; graph rules (cycles,
// unknown endpoints) are enforced when the plan is seeded through the
// mutation engine.
func LoadPlan(path string) (*Plan, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(raw, &plan); err != nil {
		return nil, fmt.Errorf("parse plan: %w", err)
	}

	if plan.ProjectID == "" {
		plan.ProjectID = "default"
	}
	if len(plan.Milestones) == 0 {
		return nil, fmt.Errorf("plan has no milestones")
	}

	seen := make(map[string]bool, len(plan.Milestones))
	for i, m := range plan.Milestones {
		if m.ID == "" {
			return nil, fmt.Errorf("milestones[%d]: id is required", i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("milestones[%d]: duplicate id %q", i, m.ID)
		}
		seen[m.ID] = true
		if m.Due == "" {
			return nil, fmt.Errorf("milestone %q: due is required", m.ID)
		}
	}
	for i, e := range plan.Dependencies {
		if e.From == "" || e.To == "" {
			return nil, fmt.Errorf("dependencies[%d]: from and to are required", i)
		}
		if e.Type != "" && !datatypes.RelationType(e.Type).Valid() {
			return nil, fmt.Errorf("dependencies[%d]: invalid type %q", i, e.Type)
		}
	}

	return &plan, nil
}

// milestones converts the plan entries to store documents.
func (p *Plan) milestones() ([]*datatypes.Milestone, error) {
	out := make([]*datatypes.Milestone, 0, len(p.Milestones))
	for _, pm := range p.Milestones {
		due, err := parsePlanDate("milestone "+pm.ID+" due", pm.Due)
		if err != nil {
			return nil, err
		}

		start := due.AddDate(0, 0, -1)
		if pm.Start != "" {
			start, err = parsePlanDate("milestone "+pm.ID+" start", pm.Start)
			if err != nil {
				return nil, err
			}
		}
		if due.Before(start) {
			return nil, fmt.Errorf("milestone %q: due precedes start", pm.ID)
		}

		status := datatypes.StatusNotStarted
		if pm.Status != "" {
			status = datatypes.MilestoneStatus(pm.Status)
			if !status.Valid() {
				return nil, fmt.Errorf("milestone %q: invalid status %q", pm.ID, pm.Status)
			}
		}

		name := pm.Name
		if name == "" {
			name = pm.ID
		}

		out = append(out, &datatypes.Milestone{
			ID:        pm.ID,
			ProjectID: p.ProjectID,
			Name:      name,
			Status:    status,
			CreatedAt: start,
			DueDate:   due,
		})
	}
	return out, nil
}

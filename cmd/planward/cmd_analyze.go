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
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/engine"
	"github.com/planward/planward/services/scheduler/storage/badgerstore"
)

// watchDebounce batches rapid editor save events into one re-analysis.
const watchDebounce = 250 * time.Millisecond

// =============================================================================
// Plan Analysis
// =============================================================================

// analyzedPlan is an analyzed snapshot of a plan file.
type analyzedPlan struct {
	plan   *Plan
	graph  *engine.Graph
	result *engine.CPMResult
}

// loadAnalyzedPlan loads a plan and runs it through the same path the
// server uses: milestones and edges are seeded into an ephemeral store
// via the mutation engine, so cycles and unknown endpoints in the plan
// file are rejected with the engine's own errors.
func loadAnalyzedPlan(path string) (*analyzedPlan, error) {
	plan, err := LoadPlan(path)
	if err != nil {
		return nil, err
	}

	milestones, err := plan.milestones()
	if err != nil {
		return nil, err
	}

	store, err := badgerstore.NewInMemory()
	if err != nil {
		return nil, fmt.Errorf("open ephemeral store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, m := range milestones {
		if err := store.CreateMilestone(ctx, m); err != nil {
			return nil, fmt.Errorf("seed milestone %s: %w", m.ID, err)
		}
	}

	mutator := engine.NewMutator(store, engine.NewCascader(store))
	for _, e := range plan.Dependencies {
		relType := datatypes.FinishToStart
		if e.Type != "" {
			relType = datatypes.RelationType(e.Type)
		}
		_, err := mutator.AddDependency(ctx, engine.AddDependencyParams{
			ProjectID: plan.ProjectID,
			FromID:    e.From,
			ToID:      e.To,
			Type:      relType,
			LagDays:   e.LagDays,
			ActorID:   "planward-cli",
		})
		if err != nil {
			return nil, fmt.Errorf("dependency %s -> %s: %w", e.From, e.To, err)
		}
	}

	// Cascades may have shifted dates; analyze the stored snapshot.
	snapshot, err := store.ListMilestonesByProject(ctx, plan.ProjectID)
	if err != nil {
		return nil, err
	}

	g := engine.BuildGraph(snapshot)
	result, err := g.ComputeCriticalPath()
	if err != nil {
		return nil, err
	}

	return &analyzedPlan{plan: plan, graph: g, result: result}, nil
}

// renderAnalysis prints the analysis as a table, critical rows in red.
func renderAnalysis(a *analyzedPlan) {
	critical := color.New(color.FgRed, color.Bold)
	dateFmt := "2006-01-02"

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "Name", "Level", "Earliest Start", "Earliest Finish", "Slack (days)", "Critical"})

	// Level-major order matches the forward pass.
	for _, id := range a.graph.IDs() {
		n, _ := a.graph.Node(id)
		mark := ""
		name := n.Name
		if n.OnCriticalPath {
			mark = critical.Sprint("yes")
			name = critical.Sprint(n.Name)
		}
		t.AppendRow(table.Row{
			n.ID,
			name,
			n.Level,
			n.EarliestStart.Format(dateFmt),
			n.EarliestFinish.Format(dateFmt),
			fmt.Sprintf("%.1f", n.SlackDays),
			mark,
		})
	}
	t.Render()

	fmt.Printf("\nProject: %s\n", a.plan.ProjectID)
	fmt.Printf("Critical path: %v\n", a.result.CriticalPath)
	fmt.Printf("Total duration: %.1f days (ends %s)\n",
		a.result.TotalDurationDays, a.result.ProjectEnd.Format(dateFmt))
}

// runAnalyze implements the analyze command.
func runAnalyze(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}
	path := args[0]

	analyze := func() error {
		a, err := loadAnalyzedPlan(path)
		if err != nil {
			return err
		}
		renderAnalysis(a)
		return nil
	}

	if err := analyze(); err != nil {
		return err
	}
	if !watchPlan {
		return nil
	}

	return watchAndReanalyze(path, analyze)
}

// watchAndReanalyze re-runs the analysis whenever the plan file changes.
//
// The watch is on the parent directory: editors that write via rename
// replace the file inode, and a watch on the file itself would go stale.
func watchAndReanalyze(path string, analyze func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	fmt.Printf("\nWatching %s for changes (ctrl-c to stop)\n", path)

	target := filepath.Clean(path)
	var debounce *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(watchDebounce, func() {
				select {
				case pending <- struct{}{}:
				default:
				}
			})
		case <-pending:
			fmt.Printf("\nPlan changed, re-analyzing at %s\n", time.Now().Format(time.TimeOnly))
			if err := analyze(); err != nil {
				// Keep watching; a half-saved file should not kill the loop.
				fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

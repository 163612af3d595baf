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

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/planward/planward/services/scheduler/datatypes"
	"github.com/planward/planward/services/scheduler/engine"
)

// suggestHighlight is the confidence at or above which a suggestion is
// highlighted in the output.
const suggestHighlight = 0.7

// runSuggest implements the suggest command.
func runSuggest(cmd *cobra.Command, args []string) error {
	if noColor {
		color.NoColor = true
	}

	plan, err := LoadPlan(args[0])
	if err != nil {
		return err
	}
	milestones, err := plan.milestones()
	if err != nil {
		return err
	}

	snapshot := make([]datatypes.Milestone, 0, len(milestones))
	for _, m := range milestones {
		snapshot = append(snapshot, *m)
	}

	suggestions := engine.SuggestDependencies(snapshot)
	if len(suggestions) == 0 {
		fmt.Println("No suggestions: no milestone pairs matched the heuristics.")
		return nil
	}

	strong := color.New(color.FgGreen, color.Bold)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"From", "To", "Confidence", "Reason"})
	for _, s := range suggestions {
		conf := fmt.Sprintf("%.2f", s.Confidence)
		if s.Confidence >= suggestHighlight {
			conf = strong.Sprint(conf)
		}
		t.AppendRow(table.Row{s.FromID, s.ToID, conf, s.Reason})
	}
	t.Render()

	fmt.Printf("\n%d suggestion(s) for project %s\n", len(suggestions), plan.ProjectID)
	return nil
}

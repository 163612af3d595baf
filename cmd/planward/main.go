// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command planward is the CLI for the Planward scheduling engine.
//
// It analyzes project plan files without a running server and can also
// launch the HTTP service.
//
// # Usage
//
//	# Analyze a plan: levels, critical path, slack
//	planward analyze plan.yaml
//
//	# Re-analyze whenever the plan file changes
//	planward analyze plan.yaml --watch
//
//	# Heuristic dependency suggestions
//	planward suggest plan.yaml
//
//	# Start the HTTP server
//	planward serve --port 12310
package main

import (
	"log"

	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	watchPlan     bool
	noColor       bool
	servePort     int
	serveDataDir  string
	serveInMemory bool

	rootCmd = &cobra.Command{
		Use:   "planward",
		Short: "A cli to analyze and serve milestone dependency schedules",
		Long: `Planward models project milestones as a dependency DAG and
				computes levels, the critical path, and slack. Plans are
				plain YAML files; no server is needed for analysis.`,
	}

	analyzeCmd = &cobra.Command{
		Use:   "analyze [plan.yaml]",
		Short: "Compute levels, critical path, and slack for a plan file",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyze, // Defined in cmd_analyze.go
	}

	suggestCmd = &cobra.Command{
		Use:   "suggest [plan.yaml]",
		Short: "Propose likely missing dependencies for a plan file",
		Args:  cobra.ExactArgs(1),
		RunE:  runSuggest, // Defined in cmd_suggest.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the scheduling HTTP server",
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

func init() {
	analyzeCmd.Flags().BoolVarP(&watchPlan, "watch", "w", false,
		"re-run the analysis whenever the plan file changes")
	analyzeCmd.Flags().BoolVar(&noColor, "no-color", false,
		"disable colored output")
	suggestCmd.Flags().BoolVar(&noColor, "no-color", false,
		"disable colored output")

	serveCmd.Flags().IntVar(&servePort, "port", 12310, "HTTP server port")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "./data/planward",
		"badger database directory")
	serveCmd.Flags().BoolVar(&serveInMemory, "in-memory", false,
		"run without disk persistence")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

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
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/planward/planward/pkg/logging"
	"github.com/planward/planward/services/scheduler"
)

// runServe implements the serve command.
//
// Tracing is disabled here; the CLI server is meant for local use where
// no collector is running. The containerized cmd/scheduler binary keeps
// tracing on.
func runServe(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{
		Service: "cli",
		JSON:    true,
		Output:  os.Stdout,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	svc, err := scheduler.New(scheduler.Config{
		Port:           servePort,
		DataDir:        serveDataDir,
		InMemory:       serveInMemory,
		DisableTracing: true,
	})
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	return svc.Run()
}

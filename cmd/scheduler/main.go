// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command scheduler starts the Planward scheduling HTTP server.
//
// This is the main entry point for the containerized scheduler service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - SCHEDULER_PORT: HTTP server port (default: 12310)
//   - SCHEDULER_DATA_DIR: badger database directory (default: ./data/planward)
//   - SCHEDULER_IN_MEMORY: run without disk persistence when "true"
//   - SCHEDULER_DISABLE_TRACING: skip OTLP tracer setup when "true"
//   - SCHEDULER_LOG_LEVEL: minimum log level - debug, info, warn, error (default: info)
//   - SCHEDULER_LOG_DIR: directory for JSON log files (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: planward-otel-collector:4317)
//   - GIN_MODE: Gin framework mode - debug, release, test
//
// # Usage
//
//	# Build
//	go build -o scheduler ./cmd/scheduler
//
//	# Run
//	./scheduler
//
//	# Or via container
//	podman-compose up scheduler
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/planward/planward/pkg/logging"
	"github.com/planward/planward/services/scheduler"
)

func main() {
	// Setup structured logging
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(getEnvString("SCHEDULER_LOG_LEVEL", "info")),
		Service: "scheduler",
		JSON:    true,
		LogDir:  os.Getenv("SCHEDULER_LOG_DIR"),
		Output:  os.Stdout,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Build configuration from environment variables
	cfg := scheduler.Config{
		Port:           getEnvInt("SCHEDULER_PORT", 12310),
		DataDir:        getEnvString("SCHEDULER_DATA_DIR", "./data/planward"),
		InMemory:       getEnvBool("SCHEDULER_IN_MEMORY", false),
		DisableTracing: getEnvBool("SCHEDULER_DISABLE_TRACING", false),
		OTelEndpoint:   getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", "planward-otel-collector:4317"),
		GinMode:        os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting scheduler",
		"port", cfg.Port,
		"data_dir", cfg.DataDir,
		"in_memory", cfg.InMemory,
	)

	svc, err := scheduler.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create scheduler: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Scheduler error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvBool returns the environment variable as bool or a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

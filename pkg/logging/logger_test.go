// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"  error  ", LevelError},
		{"nonsense", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), "ParseLevel(%q)", tt.in)
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("drop me")
	logger.Info("drop me too")
	logger.Warn("keep me")
	logger.Error("keep me too")

	out := buf.String()
	assert.NotContains(t, out, "drop me")
	assert.Contains(t, out, "keep me")
	assert.Contains(t, out, "keep me too")
}

func TestLogger_JSONOutputWithService(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Service: "scheduler", Output: &buf})

	logger.Info("milestone created", "milestoneId", "m1")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "milestone created", record["msg"])
	assert.Equal(t, "scheduler", record["service"])
	assert.Equal(t, "m1", record["milestoneId"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{JSON: true, Output: &buf})

	child := logger.With("projectId", "p1")
	child.Info("cascade complete")
	logger.Info("no project attr")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"projectId":"p1"`)
	assert.NotContains(t, lines[1], "projectId")
}

func TestLogger_FileLogging(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, LogDir: dir, Service: "scheduler"})

	logger.Info("written to both")
	require.NoError(t, logger.Close())

	name := "scheduler_" + time.Now().Format("2006-01-02") + ".log"
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to both")

	// File output is JSON even though the stream is text.
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.SplitN(string(data), "\n", 2)[0]), &record))

	assert.Contains(t, buf.String(), "written to both")
}

func TestLogger_Exporter(t *testing.T) {
	exporter := NewBufferedExporter()
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Service: "cli", Output: &buf, Exporter: exporter})

	logger.Debug("below level, not exported")
	logger.Info("exported", "attempt", 2)

	entries := exporter.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "exported", entries[0].Message)
	assert.Equal(t, LevelInfo, entries[0].Level)
	assert.Equal(t, "cli", entries[0].Service)
	assert.Equal(t, 2, entries[0].Attrs["attempt"])

	require.NoError(t, logger.Close())
	assert.Empty(t, exporter.Entries(), "Close drains the buffer")
}

func TestArgsToMap(t *testing.T) {
	assert.Nil(t, argsToMap(nil))

	m := argsToMap([]any{"a", 1, "b", "two"})
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, m)

	// Odd trailing key follows slog's !BADKEY convention.
	m = argsToMap([]any{"a", 1, "dangling"})
	assert.Equal(t, 1, m["a"])
	assert.Equal(t, "dangling", m["!BADKEY"])

	m = argsToMap([]any{42, "x"})
	assert.Contains(t, m, "!BADKEY")
}

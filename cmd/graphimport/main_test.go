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
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/workspace"
)

// testConfig writes a config that keeps telemetry off and output plain.
func testConfig(t *testing.T) string {
	t.Helper()
	for _, k := range []string{"GRAPHIMPORT_PASSWORD", "OTEL_TRACES_EXPORTER", "OTEL_METRICS_EXPORTER"} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "graphimport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
output: machine
log:
  level: warn
telemetry:
  trace_exporter: none
  metric_exporter: none
`), 0600))
	return path
}

func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func seedStore(t *testing.T, cfgPath string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "store")
	code, _, stderr := execute(t, "seed", dir, "testdata/people.yaml", "--config", cfgPath)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "OK: seeded "+dir+" with 3 nodes and 2 relationships")
	return dir
}

func TestVersion(t *testing.T) {
	code, stdout, _ := execute(t, "version", "--config", testConfig(t))
	assert.Equal(t, 0, code)
	assert.Equal(t, "graphimport dev\n", stdout)
}

func TestSeedAndImportLocal(t *testing.T) {
	cfg := testConfig(t)
	dir := seedStore(t, cfg)

	code, stdout, stderr := execute(t, "local", dir, "--output", "-", "--config", cfg)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, "SUMMARY: state=done source="+dir)
	assert.Contains(t, stderr, "relationships=2 nodes=3 edges=2")

	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal([]byte(stdout), &snap))
	assert.Equal(t, "Project 1", snap.ProjectName)

	labels := make([]string, 0, len(snap.Nodes))
	for _, n := range snap.Nodes {
		labels = append(labels, n.Label)
	}
	sort.Strings(labels)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, labels)

	require.Len(t, snap.Edges, 2)
	for _, e := range snap.Edges {
		assert.Equal(t, "KNOWS", e.Type)
		assert.True(t, e.Directed)
	}
}

func TestImportLocal_ExportToFile(t *testing.T) {
	cfg := testConfig(t)
	dir := seedStore(t, cfg)
	out := filepath.Join(t.TempDir(), "project.json")

	code, stdout, stderr := execute(t, "local", dir, "-o", out, "--uniqueness", "node", "--config", cfg)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var snap workspace.Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Len(t, snap.Nodes, 3)
}

func TestImportLocal_ServesMetrics(t *testing.T) {
	cfg := testConfig(t)
	dir := seedStore(t, cfg)

	code, _, stderr := execute(t, "local", dir, "--metrics-addr", "127.0.0.1:0", "--config", cfg)
	assert.Equal(t, 0, code, stderr)
}

func TestImportLocal_StdoutTelemetry(t *testing.T) {
	cfg := testConfig(t)
	dir := seedStore(t, cfg)

	code, stdout, stderr := execute(t, "local", dir,
		"--trace-exporter", "stdout", "--metric-exporter", "stdout", "--config", cfg)
	require.Equal(t, 0, code, stderr)
	assert.Empty(t, stdout, "telemetry never writes to stdout")
	assert.Contains(t, stderr, "Importer.Import")
	assert.Contains(t, stderr, "graphimport_total")
}

func TestCommandErrors(t *testing.T) {
	cfg := testConfig(t)
	missing := filepath.Join(t.TempDir(), "missing")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing store", []string{"local", missing}, "cannot connect to local store"},
		{"bad uniqueness", []string{"local", missing, "--uniqueness", "path"}, "unknown uniqueness"},
		{"malformed address", []string{"remote", "localhost:7687"}, "malformed store address"},
		{"bare host", []string{"remote", "graph.example.com"}, "missing scheme"},
		{"bad metrics addr", []string{"local", missing, "--metrics-addr", "nope"}, "metrics listener"},
		{"bad trace exporter", []string{"local", missing, "--trace-exporter", "zipkin"}, "unknown exporter"},
		{"bad fixture", []string{"seed", t.TempDir(), "testdata/absent.yaml"}, "ERROR:"},
		{"bad log level", []string{"version", "--log-level", "loud"}, "invalid configuration"},
		{"wrong arg count", []string{"local"}, "accepts 1 arg"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := execute(t, append(tt.args, "--config", cfg)...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestConfigCommands(t *testing.T) {
	testConfig(t)
	path := filepath.Join(t.TempDir(), "conf", "graphimport.yaml")

	code, _, stderr := execute(t, "config", "init", "--config", path)
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, path)

	code, _, stderr = execute(t, "config", "init", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")

	t.Setenv("GRAPHIMPORT_PASSWORD", "s3cret")
	code, stdout, stderr := execute(t, "config", "show", "--config", path)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "uniqueness: relationship")
	assert.NotContains(t, stdout, "s3cret")
}

func TestRunImport_RegistersSignalHandler(t *testing.T) {
	cfgPath := testConfig(t)
	var out, errOut bytes.Buffer
	c := newCLI(&out, &errOut)

	var notified, stopped int
	c.notifySignals = func(chan<- os.Signal) { notified++ }
	c.stopSignals = func(chan<- os.Signal) { stopped++ }

	root := c.rootCommand()
	root.SetArgs([]string{"local", filepath.Join(t.TempDir(), "missing"), "--config", cfgPath})
	require.Error(t, root.ExecuteContext(context.Background()))
	c.close()

	assert.Equal(t, 1, notified)
	assert.Equal(t, 1, stopped)
}

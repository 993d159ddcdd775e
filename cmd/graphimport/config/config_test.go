// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graphimport.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvPassword, EnvTraceExporter, EnvMetricExporter, EnvOTLPEndpoint} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig_IsValid(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "relationship", cfg.Import.Uniqueness)
	assert.Equal(t, time.Second, cfg.Import.ProgressInterval)
	assert.Equal(t, "graphimport", cfg.Telemetry.ServiceName)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
log:
  level: debug
  json: true
output: machine
import:
  uniqueness: node
  progress_interval: 250ms
  max_nodes: 100
remote:
  login: neo4j
  database: movies
metrics_addr: localhost:9464
telemetry:
  trace_exporter: stdout
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "machine", cfg.Output)
	assert.Equal(t, "node", cfg.Import.Uniqueness)
	assert.Equal(t, 250*time.Millisecond, cfg.Import.ProgressInterval)
	assert.Equal(t, 100, cfg.Import.MaxNodes)
	assert.Equal(t, "neo4j", cfg.Remote.Login)
	assert.Equal(t, "movies", cfg.Remote.Database)
	assert.Equal(t, "localhost:9464", cfg.MetricsAddr)
	assert.Equal(t, "stdout", cfg.Telemetry.TraceExporter)
	assert.Equal(t, "graphimport", cfg.Telemetry.ServiceName, "unset keys keep defaults")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeFile(t, ""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		invalid bool
	}{
		{"unknown key", "colour: teal\n", false},
		{"bad yaml", "log: [\n", false},
		{"bad level", "log:\n  level: loud\n", true},
		{"bad uniqueness", "import:\n  uniqueness: path\n", true},
		{"negative limit", "import:\n  max_edges: -1\n", true},
		{"bad output", "output: fancy\n", true},
		{"bad exporter", "telemetry:\n  trace_exporter: jaeger\n", true},
		{"bad metrics addr", "metrics_addr: nope\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.content))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			}
		})
	}
}

func TestLoad_ExplicitPathMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_DefaultPathMissingUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "relationship", cfg.Import.Uniqueness)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvPassword, "s3cret")
	t.Setenv(EnvTraceExporter, "none")

	cfg, err := Load(writeFile(t, "telemetry:\n  trace_exporter: stdout\n"))
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Remote.Password)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
}

func TestApplyEnv_IgnoresEmpty(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.MetricExporter = "stdout"
	cfg.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, "stdout", cfg.Telemetry.MetricExporter)
	assert.Empty(t, cfg.Remote.Password)
}

func TestWriteDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "graphimport.yaml")
	require.NoError(t, WriteDefault(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), *cfg)

	assert.ErrorIs(t, WriteDefault(path), os.ErrExist, "existing file is not overwritten")
}

func TestMarshal_OmitsPassword(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Remote.Password = "s3cret"
	data, err := cfg.Marshal()
	require.NoError(t, err)
	assert.NotContains(t, string(data), "s3cret")
}

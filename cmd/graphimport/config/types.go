// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the graphimport CLI configuration.
//
// Values are layered: built-in defaults, then the YAML file, then
// environment variables. Command-line flags are applied last by the
// commands themselves.
package config

import (
	"time"

	"github.com/AleutianAI/AleutianGraphImport/pkg/telemetry"
	"github.com/AleutianAI/AleutianGraphImport/services/importer"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/workspace"
)

// Environment variables read by ApplyEnv.
const (
	EnvPassword       = "GRAPHIMPORT_PASSWORD"
	EnvTraceExporter  = "OTEL_TRACES_EXPORTER"
	EnvMetricExporter = "OTEL_METRICS_EXPORTER"
	EnvOTLPEndpoint   = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config is the graphimport configuration file.
type Config struct {
	// Log controls the process logger.
	Log LogConfig `yaml:"log"`

	// Output selects terminal rendering: "auto", "rich" or "machine".
	Output string `yaml:"output" validate:"omitempty,oneof=auto rich machine plain"`

	// Import tunes the traversal and destination limits.
	Import ImportConfig `yaml:"import"`

	// Remote holds defaults for the remote command.
	Remote RemoteConfig `yaml:"remote"`

	// MetricsAddr serves /metrics during an import when set, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr,omitempty" validate:"omitempty,hostname_port"`

	Telemetry telemetry.Config `yaml:"telemetry"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"loglevel"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

type ImportConfig struct {
	// Uniqueness is "relationship" (default) or "node".
	Uniqueness string `yaml:"uniqueness" validate:"omitempty,oneof=relationship node"`

	// ProgressInterval is the minimum time between progress reports.
	ProgressInterval time.Duration `yaml:"progress_interval" validate:"gte=0"`

	// MaxNodes and MaxEdges cap the destination graph. 0 is unlimited.
	MaxNodes int `yaml:"max_nodes" validate:"gte=0"`
	MaxEdges int `yaml:"max_edges" validate:"gte=0"`
}

type RemoteConfig struct {
	Login    string `yaml:"login,omitempty"`
	Database string `yaml:"database,omitempty"`

	// Root is the element id of the traversal root.
	Root string `yaml:"root,omitempty"`

	// Password is only ever read from GRAPHIMPORT_PASSWORD.
	Password string `yaml:"-"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Log:    LogConfig{Level: "info"},
		Output: "auto",
		Import: ImportConfig{
			Uniqueness:       "relationship",
			ProgressInterval: importer.DefaultProgressInterval,
			MaxNodes:         workspace.DefaultMaxNodes,
			MaxEdges:         workspace.DefaultMaxEdges,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

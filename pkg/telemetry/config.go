// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

// Exporter names accepted in Config.
const (
	ExporterNone       = "none"
	ExporterStdout     = "stdout"
	ExporterOTLP       = "otlp"
	ExporterPrometheus = "prometheus"
)

// Config selects exporters and describes the process in exported data.
type Config struct {
	// ServiceName identifies this process in traces and metrics.
	ServiceName string `yaml:"service_name"`

	// ServiceVersion is set by the binary from its build version.
	ServiceVersion string `yaml:"-"`

	// Environment names the deployment, e.g. "production".
	Environment string `yaml:"environment"`

	// TraceExporter is "otlp", "stdout" or "none".
	TraceExporter string `yaml:"trace_exporter" validate:"oneof=otlp stdout none"`

	// MetricExporter is "prometheus", "stdout" or "none".
	MetricExporter string `yaml:"metric_exporter" validate:"oneof=prometheus stdout none"`

	// OTLPEndpoint is the host:port of the OTLP gRPC receiver.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// OTLPInsecure disables TLS towards the receiver.
	OTLPInsecure bool `yaml:"otlp_insecure"`
}

// DefaultConfig returns defaults for a command-line run. A one-shot import
// has no collector to talk to, so traces are off.
func DefaultConfig() Config {
	return Config{
		ServiceName:    "graphimport",
		ServiceVersion: "dev",
		Environment:    "development",
		TraceExporter:  ExporterNone,
		MetricExporter: ExporterPrometheus,
		OTLPEndpoint:   "localhost:4317",
		OTLPInsecure:   true,
	}
}

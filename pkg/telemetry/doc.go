// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up tracing and metrics for graph imports.
//
// Init builds a Provider from a Config: a tracer provider for the chosen
// span exporter, a meter provider for the chosen metric exporter and, for
// Prometheus, the HTTP handler that serves it. The Provider hands out a
// Recorder, which is the only thing the importer talks to: one span and
// one set of measurements per import run.
//
//	Config ──Init──► Provider ──Recorder()──► Recorder ──StartImport──► ImportRun
//	                    │                                                  │
//	                    └── MetricsHandler() ◄── /metrics         End(outcome)
//
// Init leaves the OpenTelemetry globals alone. Code with no Provider uses
// DefaultRecorder, which records through the globals and is a no-op unless
// the host process installed providers.
//
// # Exporters
//
// Traces: "otlp" (gRPC), "stdout" or "none".
// Metrics: "prometheus" (served by MetricsHandler), "stdout" or "none".
// The "stdout" exporters write to the writer given by WithWriter.
package telemetry

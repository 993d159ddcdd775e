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

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer and meter name for import telemetry.
const InstrumentationName = "aleutian.graphimport"

// Recorder creates import spans and records import metrics.
//
// Metrics:
//   - graphimport_duration_seconds: histogram, labels kind and state
//   - graphimport_total: counter, labels kind and state
//   - graphimport_nodes_created: histogram, label kind
//   - graphimport_edges_created: histogram, label kind
//
// Thread Safety: Safe for concurrent use.
type Recorder struct {
	tracer  trace.Tracer
	latency metric.Float64Histogram
	total   metric.Int64Counter
	nodes   metric.Int64Histogram
	edges   metric.Int64Histogram
}

// NewRecorder creates the import instruments on mp and a tracer on tp.
func NewRecorder(tp trace.TracerProvider, mp metric.MeterProvider) (*Recorder, error) {
	meter := mp.Meter(InstrumentationName)
	r := &Recorder{tracer: tp.Tracer(InstrumentationName)}

	var err error
	r.latency, err = meter.Float64Histogram(
		"graphimport_duration_seconds",
		metric.WithDescription("Duration of graph imports"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	r.total, err = meter.Int64Counter(
		"graphimport_total",
		metric.WithDescription("Total number of graph imports by final state"),
	)
	if err != nil {
		return nil, err
	}

	r.nodes, err = meter.Int64Histogram(
		"graphimport_nodes_created",
		metric.WithDescription("Destination nodes created per import"),
	)
	if err != nil {
		return nil, err
	}

	r.edges, err = meter.Int64Histogram(
		"graphimport_edges_created",
		metric.WithDescription("Destination edges created per import"),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

var (
	defaultRecorder     *Recorder
	defaultRecorderOnce sync.Once
)

// DefaultRecorder returns a recorder on the OpenTelemetry global
// providers.
func DefaultRecorder() *Recorder {
	defaultRecorderOnce.Do(func() {
		r, err := NewRecorder(otel.GetTracerProvider(), otel.GetMeterProvider())
		if err != nil {
			r, _ = NewRecorder(tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
		}
		defaultRecorder = r
	})
	return defaultRecorder
}

// ImportOutcome is how an import run ended.
type ImportOutcome struct {
	// State is the importer's final state name.
	State string

	Relationships int
	Nodes         int
	Edges         int

	// Err is set when the import failed. Node and edge counts of failed
	// runs are not recorded.
	Err error
}

// ImportRun is one traced import. End it exactly once; extra calls are
// ignored.
type ImportRun struct {
	rec   *Recorder
	span  trace.Span
	kind  string
	start time.Time
	once  sync.Once
}

// StartImport opens the span for one import of a kind ("local" or
// "remote") from target.
func (r *Recorder) StartImport(ctx context.Context, kind, target string) (context.Context, *ImportRun) {
	ctx, span := r.tracer.Start(ctx, "Importer.Import",
		trace.WithAttributes(
			attribute.String("import.kind", kind),
			attribute.String("import.target", target),
		),
	)
	return ctx, &ImportRun{rec: r, span: span, kind: kind, start: time.Now()}
}

// End sets the outcome on the span, ends it and records the run's
// metrics.
func (run *ImportRun) End(ctx context.Context, out ImportOutcome) {
	run.once.Do(func() {
		run.span.SetAttributes(
			attribute.String("import.state", out.State),
			attribute.Int("import.relationships", out.Relationships),
			attribute.Int("import.nodes", out.Nodes),
			attribute.Int("import.edges", out.Edges),
		)
		if out.Err != nil {
			run.span.RecordError(out.Err)
			run.span.SetStatus(codes.Error, out.Err.Error())
		} else {
			run.span.SetStatus(codes.Ok, "")
		}
		run.span.End()

		kind := attribute.String("kind", run.kind)
		attrs := metric.WithAttributes(kind, attribute.String("state", out.State))
		run.rec.latency.Record(ctx, time.Since(run.start).Seconds(), attrs)
		run.rec.total.Add(ctx, 1, attrs)
		if out.Err == nil {
			run.rec.nodes.Record(ctx, int64(out.Nodes), metric.WithAttributes(kind))
			run.rec.edges.Record(ctx, int64(out.Edges), metric.WithAttributes(kind))
		}
	})
}

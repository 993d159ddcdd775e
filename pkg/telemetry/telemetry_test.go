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
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestRecorder returns a recorder whose spans and metrics can be
// inspected.
func newTestRecorder(t *testing.T) (*Recorder, *tracetest.SpanRecorder, *sdkmetric.ManualReader) {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	rec, err := NewRecorder(tp, mp)
	require.NoError(t, err)
	return rec, spans, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func histogramCount(data metricdata.Aggregation) uint64 {
	h, ok := data.(metricdata.Histogram[int64])
	if !ok {
		return 0
	}
	var n uint64
	for _, dp := range h.DataPoints {
		n += dp.Count
	}
	return n
}

func spanAttr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value
		}
	}
	return attribute.Value{}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "graphimport", cfg.ServiceName)
	assert.Equal(t, ExporterNone, cfg.TraceExporter)
	assert.Equal(t, ExporterPrometheus, cfg.MetricExporter)
	assert.Equal(t, "localhost:4317", cfg.OTLPEndpoint)
}

func TestRecorder_CompletedImport(t *testing.T) {
	rec, spans, reader := newTestRecorder(t)

	ctx, run := rec.StartImport(context.Background(), "local", "/data/graph")

	var buf bytes.Buffer
	LoggerWithTrace(ctx, slog.New(slog.NewTextHandler(&buf, nil))).Info("hello")
	assert.Contains(t, buf.String(), "trace_id=")

	run.End(ctx, ImportOutcome{State: "done", Relationships: 2, Nodes: 3, Edges: 2})
	run.End(ctx, ImportOutcome{State: "failed", Err: errors.New("late")})

	ended := spans.Ended()
	require.Len(t, ended, 1, "only the first End counts")
	span := ended[0]
	assert.Equal(t, "Importer.Import", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	assert.Equal(t, "local", spanAttr(span.Attributes(), "import.kind").AsString())
	assert.Equal(t, "/data/graph", spanAttr(span.Attributes(), "import.target").AsString())
	assert.Equal(t, "done", spanAttr(span.Attributes(), "import.state").AsString())
	assert.Equal(t, int64(3), spanAttr(span.Attributes(), "import.nodes").AsInt64())

	metrics := collect(t, reader)
	total, ok := metrics["graphimport_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, total.DataPoints, 1)
	assert.Equal(t, int64(1), total.DataPoints[0].Value)
	state, _ := total.DataPoints[0].Attributes.Value("state")
	assert.Equal(t, "done", state.AsString())
	kind, _ := total.DataPoints[0].Attributes.Value("kind")
	assert.Equal(t, "local", kind.AsString())

	assert.Equal(t, uint64(1), histogramCount(metrics["graphimport_nodes_created"]))
	assert.Equal(t, uint64(1), histogramCount(metrics["graphimport_edges_created"]))
	assert.Contains(t, metrics, "graphimport_duration_seconds")
}

func TestRecorder_FailedImport(t *testing.T) {
	rec, spans, reader := newTestRecorder(t)

	ctx, run := rec.StartImport(context.Background(), "remote", "neo4j://db:7687")
	run.End(ctx, ImportOutcome{State: "failed", Nodes: 5, Err: errors.New("connection refused")})

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "connection refused", ended[0].Status().Description)
	assert.Len(t, ended[0].Events(), 1, "the error is recorded as an event")

	metrics := collect(t, reader)
	total, ok := metrics["graphimport_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	state, _ := total.DataPoints[0].Attributes.Value("state")
	assert.Equal(t, "failed", state.AsString())
	assert.Zero(t, histogramCount(metrics["graphimport_nodes_created"]), "failed runs record no sizes")
}

func TestDefaultRecorder(t *testing.T) {
	rec := DefaultRecorder()
	require.NotNil(t, rec)
	assert.Same(t, rec, DefaultRecorder())

	ctx, run := rec.StartImport(context.Background(), "local", "p")
	run.End(ctx, ImportOutcome{State: "done"})
}

func TestInit_NilContext(t *testing.T) {
	_, err := Init(nil, DefaultConfig())
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestInit_NoExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterNone
	cfg.MetricExporter = ExporterNone

	p, err := Init(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, p.Recorder())
	assert.Nil(t, p.MetricsHandler())
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestInit_StdoutExporters(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TraceExporter = ExporterStdout
	cfg.MetricExporter = ExporterStdout

	var buf bytes.Buffer
	p, err := Init(context.Background(), cfg, WithWriter(&buf))
	require.NoError(t, err)
	assert.Nil(t, p.MetricsHandler())

	ctx, run := p.Recorder().StartImport(context.Background(), "local", "p")
	run.End(ctx, ImportOutcome{State: "done", Nodes: 1})
	require.NoError(t, p.Shutdown(context.Background()))

	assert.Contains(t, buf.String(), "Importer.Import", "span flushed on shutdown")
	assert.Contains(t, buf.String(), "graphimport_total", "metrics flushed on shutdown")
}

func TestInit_PrometheusServesImportMetrics(t *testing.T) {
	p, err := Init(context.Background(), DefaultConfig())
	require.NoError(t, err)
	defer p.Shutdown(context.Background())

	handler := p.MetricsHandler()
	require.NotNil(t, handler)

	ctx, run := p.Recorder().StartImport(context.Background(), "local", "p")
	run.End(ctx, ImportOutcome{State: "done", Nodes: 2, Edges: 1})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "graphimport_total")
	assert.Contains(t, string(body), "graphimport_duration_seconds")
	assert.Contains(t, string(body), "go_goroutines", "default registry is gathered too")

	require.NoError(t, p.Shutdown(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()), "second shutdown is harmless")
}

func TestInit_UnknownExporter(t *testing.T) {
	tests := []struct {
		name string
		cfg  func(*Config)
	}{
		{"trace", func(c *Config) { c.TraceExporter = "zipkin"; c.MetricExporter = ExporterNone }},
		{"metric", func(c *Config) { c.TraceExporter = ExporterNone; c.MetricExporter = "influx" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.cfg(&cfg)
			_, err := Init(context.Background(), cfg)
			assert.ErrorIs(t, err, ErrUnknownExporter)
		})
	}
}

func TestLoggerWithTrace_NoSpan(t *testing.T) {
	logger := slog.Default()
	assert.Same(t, logger, LoggerWithTrace(context.Background(), logger))
}

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
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Option configures Init.
type Option func(*initOptions)

type initOptions struct {
	writer io.Writer
}

// WithWriter sets where the stdout exporters write. Default os.Stderr,
// which keeps stdout free for exported projects.
func WithWriter(w io.Writer) Option {
	return func(o *initOptions) {
		o.writer = w
	}
}

// Provider owns the tracer and meter providers built by Init.
//
// Thread Safety: Safe for concurrent use.
type Provider struct {
	tracer   *sdktrace.TracerProvider
	meter    *sdkmetric.MeterProvider
	metrics  http.Handler
	recorder *Recorder
}

// Init builds the providers selected by cfg.
//
// Inputs:
//
//	ctx - Context for exporter setup (the OTLP dial).
//	cfg - Exporter selection. Use DefaultConfig() for defaults.
//	opts - WithWriter for the stdout exporters.
//
// Outputs:
//
//	*Provider - Call Shutdown() to flush and stop exporters.
//	error - ErrNilContext, ErrUnknownExporter, or an exporter failure.
//
// Example:
//
//	tp, err := telemetry.Init(ctx, cfg.Telemetry)
//	if err != nil {
//	    return fmt.Errorf("init telemetry: %w", err)
//	}
//	defer tp.Shutdown(context.Background())
//	imp := importer.New(env, importer.WithRecorder(tp.Recorder()))
func Init(ctx context.Context, cfg Config, opts ...Option) (*Provider, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	o := initOptions{writer: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
		attribute.String("deployment.environment", cfg.Environment),
	)

	p := &Provider{}

	spans, err := newSpanExporter(ctx, cfg, o.writer)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	if spans != nil {
		p.tracer = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(spans),
			sdktrace.WithResource(res),
		)
	}

	reader, handler, err := newMetricReader(cfg, o.writer)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}
	if reader != nil {
		p.meter = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		p.metrics = handler
	}

	p.recorder, err = NewRecorder(p.tracerProvider(), p.meterProvider())
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("init recorder: %w", err)
	}
	return p, nil
}

// newSpanExporter returns nil for "none".
func newSpanExporter(ctx context.Context, cfg Config, w io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.TraceExporter {
	case ExporterNone:
		return nil, nil
	case ExporterOTLP:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	case ExporterStdout:
		return stdouttrace.New(stdouttrace.WithWriter(w))
	default:
		return nil, fmt.Errorf("%w: trace exporter %q", ErrUnknownExporter, cfg.TraceExporter)
	}
}

// newMetricReader returns a nil reader for "none". The handler is only
// set for Prometheus.
func newMetricReader(cfg Config, w io.Writer) (sdkmetric.Reader, http.Handler, error) {
	switch cfg.MetricExporter {
	case ExporterNone:
		return nil, nil, nil
	case ExporterPrometheus:
		// The import metrics get their own registry; the handler also
		// gathers the default one, where the cancellation counters live.
		reg := prometheus.NewRegistry()
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		handler := promhttp.HandlerFor(
			prometheus.Gatherers{reg, prometheus.DefaultGatherer},
			promhttp.HandlerOpts{},
		)
		return exporter, handler, nil
	case ExporterStdout:
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exporter), nil, nil
	default:
		return nil, nil, fmt.Errorf("%w: metric exporter %q", ErrUnknownExporter, cfg.MetricExporter)
	}
}

// Recorder returns the import recorder bound to this provider.
func (p *Provider) Recorder() *Recorder {
	return p.recorder
}

// MetricsHandler returns the /metrics handler, or nil unless the
// Prometheus exporter is selected.
func (p *Provider) MetricsHandler() http.Handler {
	return p.metrics
}

// Shutdown flushes pending spans and metrics and stops the exporters.
// Calling it more than once is harmless.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.tracer != nil {
		errs = append(errs, p.tracer.Shutdown(ctx))
	}
	if p.meter != nil {
		err := p.meter.Shutdown(ctx)
		if !errors.Is(err, sdkmetric.ErrReaderShutdown) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Provider) tracerProvider() trace.TracerProvider {
	if p.tracer == nil {
		return otel.GetTracerProvider()
	}
	return p.tracer
}

func (p *Provider) meterProvider() metric.MeterProvider {
	if p.meter == nil {
		return otel.GetMeterProvider()
	}
	return p.meter
}

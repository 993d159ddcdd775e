// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package progress reports the lifecycle of a long-running import.
//
// A Sink sees SetDisplayName and Start once at the beginning and Finish
// once at the end, whatever the outcome. Sinks that also implement
// Reporter receive running counts in between.
package progress

import (
	"log/slog"
	"sync"
	"time"
)

// Sink receives task lifecycle events.
type Sink interface {
	SetDisplayName(name string)
	Start()
	Finish()
}

// Reporter is implemented by sinks that accept running counts.
type Reporter interface {
	Progress(relationships, nodes, edges int)
}

// Report forwards counts to s if it is a Reporter.
func Report(s Sink, relationships, nodes, edges int) {
	if r, ok := s.(Reporter); ok {
		r.Progress(relationships, nodes, edges)
	}
}

// Noop discards every event.
type Noop struct{}

func (Noop) SetDisplayName(string) {}
func (Noop) Start()                {}
func (Noop) Finish()               {}

// LogSink writes lifecycle events to a structured logger.
//
// Thread Safety: Safe for concurrent use.
type LogSink struct {
	logger *slog.Logger

	mu      sync.Mutex
	name    string
	started time.Time
}

// NewLogSink creates a sink logging to logger. nil uses slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// SetDisplayName implements Sink.
func (s *LogSink) SetDisplayName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Start implements Sink.
func (s *LogSink) Start() {
	s.mu.Lock()
	s.started = time.Now()
	name := s.name
	s.mu.Unlock()
	s.logger.Info("task started", slog.String("task", name))
}

// Progress implements Reporter.
func (s *LogSink) Progress(relationships, nodes, edges int) {
	s.mu.Lock()
	name := s.name
	s.mu.Unlock()
	s.logger.Info("task progress",
		slog.String("task", name),
		slog.Int("relationships", relationships),
		slog.Int("nodes", nodes),
		slog.Int("edges", edges))
}

// Finish implements Sink.
func (s *LogSink) Finish() {
	s.mu.Lock()
	name, started := s.name, s.started
	s.mu.Unlock()

	var elapsed time.Duration
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	s.logger.Info("task finished",
		slog.String("task", name),
		slog.Duration("elapsed", elapsed))
}

// Multi fans events out to several sinks in order.
type Multi []Sink

// SetDisplayName implements Sink.
func (m Multi) SetDisplayName(name string) {
	for _, s := range m {
		s.SetDisplayName(name)
	}
}

// Start implements Sink.
func (m Multi) Start() {
	for _, s := range m {
		s.Start()
	}
}

// Progress implements Reporter.
func (m Multi) Progress(relationships, nodes, edges int) {
	for _, s := range m {
		Report(s, relationships, nodes, edges)
	}
}

// Finish implements Sink.
func (m Multi) Finish() {
	for _, s := range m {
		s.Finish()
	}
}

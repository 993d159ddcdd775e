// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package importer copies a source graph store into a destination project.
//
// # Lifecycle
//
// An import opens the store, begins one transaction, creates a fresh
// destination project and walks the store depth-first from its root,
// converting every visited relationship and its endpoints. Afterwards the
// transaction is finished and the connection shut down on every path. A
// completed import opens a workspace on the project; a cancelled one
// leaves the partial project in place without opening it.
//
// # Cancellation
//
// Cancel may be called from any goroutine. The walk checks the flag
// before each relationship, so the relationships converted before the
// flag was seen are kept whole. Nothing is rolled back.
//
// # Thread Safety
//
// One import runs at a time per Importer. State, Cancel and
// SetProgressSink are safe to call concurrently with a running import.
package importer

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AleutianAI/AleutianGraphImport/pkg/telemetry"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/cancel"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/connection"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/destination"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/progress"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/traverse"
)

// Display names handed to the progress sink.
const (
	DisplayNameLocal  = "Importing data from local graph database"
	DisplayNameRemote = "Importing data from remote graph database"
)

// DefaultProgressInterval is the minimum time between progress reports.
const DefaultProgressInterval = time.Second

// ErrImportInProgress is returned when an import is started while another
// one is running on the same Importer.
var ErrImportInProgress = errors.New("import already in progress")

// Result summarizes a finished import.
type Result struct {
	// State is StateDone or StateCancelled.
	State State

	// Project received the imported graph.
	Project destination.Project

	// Workspace is the opened workspace. Nil when cancelled.
	Workspace destination.Workspace

	// Relationships is the number of relationships converted.
	Relationships int

	// Nodes and Edges count the destination entities created.
	Nodes int
	Edges int

	// CancelReason is set when State is StateCancelled.
	CancelReason string

	Duration time.Duration
}

// Option configures an Importer.
type Option func(*Importer)

// WithConnector replaces the connection manager.
func WithConnector(c connection.Connector) Option {
	return func(i *Importer) {
		i.connector = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithProgressSink sets the initial progress sink.
func WithProgressSink(sink progress.Sink) Option {
	return func(i *Importer) {
		if sink != nil {
			i.sink = sink
		}
	}
}

// WithUniqueness selects the traversal uniqueness.
func WithUniqueness(u traverse.Uniqueness) Option {
	return func(i *Importer) {
		i.uniqueness = u
	}
}

// WithCancelMetrics records cancellation into m instead of the process
// default.
func WithCancelMetrics(m *cancel.Metrics) Option {
	return func(i *Importer) {
		i.cancelMetrics = m
	}
}

// WithProgressInterval sets the minimum time between progress reports.
func WithProgressInterval(d time.Duration) Option {
	return func(i *Importer) {
		i.progressEvery = d
	}
}

// WithRecorder sets where import spans and metrics go. Default
// telemetry.DefaultRecorder().
func WithRecorder(r *telemetry.Recorder) Option {
	return func(i *Importer) {
		i.recorder = r
	}
}

// Importer runs graph imports into a destination environment.
type Importer struct {
	env           destination.Environment
	connector     connection.Connector
	logger        *slog.Logger
	uniqueness    traverse.Uniqueness
	cancelMetrics *cancel.Metrics
	progressEvery time.Duration
	recorder      *telemetry.Recorder

	state atomic.Int32

	mu      sync.Mutex
	sink    progress.Sink
	token   *cancel.Token
	running bool
}

// New creates an importer writing into env.
//
// Inputs:
//
//	env - The destination environment. Must not be nil.
//	opts - Options. Without WithConnector a connection.Manager sharing the
//	importer's logger is used.
//
// Outputs:
//
//	*Importer - Ready to import. Never nil.
func New(env destination.Environment, opts ...Option) *Importer {
	i := &Importer{
		env:           env,
		logger:        slog.Default(),
		sink:          progress.Noop{},
		progressEvery: DefaultProgressInterval,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.connector == nil {
		i.connector = connection.NewManager(connection.WithLogger(i.logger))
	}
	if i.recorder == nil {
		i.recorder = telemetry.DefaultRecorder()
	}
	if i.cancelMetrics == nil {
		i.cancelMetrics = cancel.DefaultMetrics()
	}
	i.token = cancel.New(i.cancelMetrics)
	return i
}

// Cancel requests that the running import stop. Always returns true.
func (i *Importer) Cancel() bool {
	return i.CancelWithReason(cancel.CancelReason{Type: cancel.CancelUser})
}

// CancelWithReason is Cancel with an explicit reason.
func (i *Importer) CancelWithReason(reason cancel.CancelReason) bool {
	i.mu.Lock()
	tok := i.token
	i.mu.Unlock()
	return tok.Cancel(reason)
}

// SetProgressSink replaces the progress sink and clears any pending
// cancellation. A nil sink discards progress.
func (i *Importer) SetProgressSink(sink progress.Sink) {
	if sink == nil {
		sink = progress.Noop{}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	i.sink = sink
	if !i.running {
		i.token = cancel.New(i.cancelMetrics)
	}
}

// State returns the current lifecycle state.
func (i *Importer) State() State {
	return State(i.state.Load())
}

func (i *Importer) setState(s State) {
	i.state.Store(int32(s))
}

// begin claims the importer for one run and installs a fresh token.
func (i *Importer) begin() (*cancel.Token, progress.Sink, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		return nil, nil, ErrImportInProgress
	}
	i.running = true
	i.token = cancel.New(i.cancelMetrics)
	return i.token, i.sink, nil
}

func (i *Importer) end() {
	i.mu.Lock()
	i.running = false
	i.mu.Unlock()
}

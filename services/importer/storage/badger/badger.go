// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package badger implements the local embedded graph store on BadgerDB.
//
// A local store is a BadgerDB directory holding nodes, relationships and an
// adjacency index:
//
//	meta:format             → "aleutian-graphstore/v1"
//	meta:root               → root node id
//	node:<id>               → JSON node record
//	rel:<id>                → JSON relationship record
//	adj:<nodeID>:<relID>    → empty (one per endpoint)
//
// Store implements source.Store for the importer and opens the directory
// read-only. Writer creates and populates stores (seed command, tests).
//
// License: BadgerDB is Apache 2.0 licensed (github.com/dgraph-io/badger).
package badger

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dgraph-io/badger/v4"
)

// FormatVersion is written to meta:format by Writer and required by Store.
const FormatVersion = "aleutian-graphstore/v1"

// ErrPathRequired is returned when a persistent database has no path.
var ErrPathRequired = errors.New("path is required for persistent database")

// Config holds configuration for a BadgerDB instance.
type Config struct {
	// Path is the directory for BadgerDB files.
	// Required unless InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence).
	// Useful for testing.
	InMemory bool

	// ReadOnly opens an existing database without write access.
	// The directory is never created in this mode.
	ReadOnly bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives BadgerDB's internal logs.
	// If nil, BadgerDB's internal logging is disabled.
	Logger *slog.Logger

	// NumVersionsToKeep is the number of versions to keep per key.
	NumVersionsToKeep int
}

// DefaultConfig returns defaults for a store on disk.
func DefaultConfig() Config {
	return Config{
		SyncWrites:        true,
		NumVersionsToKeep: 1,
	}
}

// ReadOnlyConfig returns configuration for importing from path.
func ReadOnlyConfig(path string) Config {
	return Config{
		Path:              path,
		ReadOnly:          true,
		NumVersionsToKeep: 1,
	}
}

// InMemoryConfig returns configuration optimized for testing.
func InMemoryConfig() Config {
	return Config{
		InMemory:          true,
		NumVersionsToKeep: 1,
	}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// DB wraps a BadgerDB instance with the settings it was opened with.
type DB struct {
	*badger.DB
	path     string
	inMemory bool
	readOnly bool
}

// Open opens a BadgerDB with the given configuration.
//
// Description:
//
//	In read-write mode the directory is created if missing. In read-only
//	mode the directory must already hold a BadgerDB manifest.
//
// Inputs:
//
//	cfg - Database configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*DB - The opened database. Caller must call Close() when done.
//	error - Non-nil if path is invalid or database cannot be opened.
//
// Thread Safety: The returned *DB is safe for concurrent use.
func Open(cfg Config) (*DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, ErrPathRequired
	}

	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.ReadOnly:
		if err := checkManifest(cfg.Path); err != nil {
			return nil, err
		}
		opts = badger.DefaultOptions(cfg.Path).WithReadOnly(true)
	default:
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	opts = opts.WithSyncWrites(cfg.SyncWrites)
	if cfg.NumVersionsToKeep > 0 {
		opts = opts.WithNumVersionsToKeep(cfg.NumVersionsToKeep)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &DB{
		DB:       db,
		path:     cfg.Path,
		inMemory: cfg.InMemory,
		readOnly: cfg.ReadOnly,
	}, nil
}

// checkManifest verifies that path is an existing BadgerDB directory.
func checkManifest(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	if _, err := os.Stat(filepath.Join(path, badger.ManifestFilename)); err != nil {
		return fmt.Errorf("%s is not a graph store: %w", path, err)
	}
	return nil
}

// Path returns the database path, or empty string for in-memory databases.
func (d *DB) Path() string {
	return d.path
}

// InMemory returns true if this is an in-memory database.
func (d *DB) InMemory() bool {
	return d.inMemory
}

// ReadOnly returns true if the database was opened without write access.
func (d *DB) ReadOnly() bool {
	return d.readOnly
}

// TempDir creates a temporary directory for test databases.
func TempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	return dir, nil
}

// CleanupDir removes a database directory and all its contents.
// Safe to call with empty string (no-op).
func CleanupDir(path string) error {
	if path == "" {
		return nil
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	return os.RemoveAll(absPath)
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package connection opens source graph stores.
//
// The Manager turns a local directory or a remote address into an open
// source.Store. It never retries: a failure is reported once, typed, and
// leaves nothing open behind it.
package connection

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/storage/badger"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/storage/neo4j"
)

// ErrNotDirectory is the cause of a ConnectionError for a local path that
// is a regular file.
var ErrNotDirectory = errors.New("not a directory")

// Connector opens source stores. Manager is the production implementation.
type Connector interface {
	ConnectLocal(ctx context.Context, path string) (source.Store, error)
	ConnectRemote(ctx context.Context, address string) (source.Store, error)
	ConnectRemoteWithCredentials(ctx context.Context, address, login, password string) (source.Store, error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger handed to opened stores.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithDatabase selects the database on multi-database remote servers.
func WithDatabase(name string) Option {
	return func(m *Manager) {
		m.remote.Database = name
	}
}

// WithRootElementID pins the traversal root for remote stores.
func WithRootElementID(id string) Option {
	return func(m *Manager) {
		m.remote.RootElementID = id
	}
}

// Manager opens local and remote stores.
//
// Thread Safety: Safe for concurrent use; it holds no per-connection state.
type Manager struct {
	logger *slog.Logger
	remote neo4j.Options
}

// NewManager creates a connection manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	m.remote.Logger = m.logger.With(slog.String("store", "remote"))
	return m
}

// ConnectLocal opens the embedded store at path read-only.
//
// Description:
//
//	The path must be an existing graph store directory. It is never
//	created or modified.
//
// Outputs:
//
//	source.Store - The open store. Call Shutdown when done.
//	error - *source.ConnectionError if the path is missing, not a
//	directory, or not a graph store.
func (m *Manager) ConnectLocal(ctx context.Context, path string) (source.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, &source.ConnectionError{Target: path, Kind: "local", Cause: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &source.ConnectionError{Target: path, Kind: "local", Cause: err}
	}
	if !info.IsDir() {
		return nil, &source.ConnectionError{Target: path, Kind: "local", Cause: ErrNotDirectory}
	}

	store, err := badger.OpenStore(path, m.logger.With(slog.String("store", "local")))
	if err != nil {
		return nil, &source.ConnectionError{Target: path, Kind: "local", Cause: err}
	}

	m.logger.Info("opened local store", slog.String("path", path))
	return store, nil
}

// ConnectRemote connects to a remote store without authentication.
//
// Outputs:
//
//	source.Store - The open store. Call Shutdown when done.
//	error - *source.AddressFormatError for a malformed address (nothing is
//	dialled), *source.ConnectionError when the server is unreachable.
func (m *Manager) ConnectRemote(ctx context.Context, address string) (source.Store, error) {
	return m.connectRemote(ctx, address, nil)
}

// ConnectRemoteWithCredentials connects to a remote store with basic auth.
//
// The password is sealed immediately and only opened when the driver is
// built. Rejected credentials surface as *source.ConnectionError.
func (m *Manager) ConnectRemoteWithCredentials(ctx context.Context, address, login, password string) (source.Store, error) {
	return m.connectRemote(ctx, address, source.NewCredentials(login, []byte(password)))
}

func (m *Manager) connectRemote(ctx context.Context, address string, creds *source.Credentials) (source.Store, error) {
	if _, err := neo4j.ParseAddress(address); err != nil {
		return nil, err
	}

	store, err := neo4j.Open(ctx, address, creds, m.remote)
	if err != nil {
		return nil, err
	}

	attrs := []any{slog.String("address", address)}
	if creds != nil {
		attrs = append(attrs, slog.String("login", creds.Login()))
	}
	m.logger.Info("connected to remote store", attrs...)
	return store, nil
}

var _ Connector = (*Manager)(nil)

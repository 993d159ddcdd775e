// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package neo4j implements the remote graph store over the Bolt protocol.
//
// One Store owns one driver and at most one read session. Begin opens an
// explicit transaction on that session; Finish commits it when marked
// successful and rolls it back otherwise. For a read-only import both end
// the same way, but the contract is kept so callers never leave a
// transaction dangling on the server.
package neo4j

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// Schemes accepted by ParseAddress.
var supportedSchemes = map[string]bool{
	"neo4j":     true,
	"neo4j+s":   true,
	"neo4j+ssc": true,
	"bolt":      true,
	"bolt+s":    true,
	"bolt+ssc":  true,
}

// Options configures a remote store.
type Options struct {
	// Database selects the database on multi-database servers.
	// Empty uses the server default.
	Database string

	// RootElementID is the element id of the traversal root. When empty
	// the node with the lowest internal id is used.
	RootElementID string

	// Logger receives store logs. nil uses slog.Default().
	Logger *slog.Logger
}

// ParseAddress validates a remote store address.
//
// Description:
//
//	The address must parse as a URL with a Bolt-family scheme and a host,
//	e.g. "neo4j://graph.example.com:7687". A bare "host:port" is rejected
//	because it carries no scheme.
//
// Outputs:
//
//	*url.URL - The parsed address.
//	error - *source.AddressFormatError when malformed.
func ParseAddress(address string) (*url.URL, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, &source.AddressFormatError{Address: address, Reason: "unparseable", Cause: err}
	}
	if u.Scheme == "" {
		return nil, &source.AddressFormatError{Address: address, Reason: "missing scheme"}
	}
	if !supportedSchemes[u.Scheme] {
		return nil, &source.AddressFormatError{Address: address, Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if u.Host == "" {
		return nil, &source.AddressFormatError{Address: address, Reason: "missing host"}
	}
	return u, nil
}

// Store is a source.Store backed by a Neo4j server.
//
// Thread Safety: Safe for concurrent use. At most one transaction may be
// open at a time.
type Store struct {
	driver neo4j.DriverWithContext
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	session neo4j.SessionWithContext
	closed  bool
}

// Open connects to the server at address and verifies connectivity.
//
// Inputs:
//
//	ctx - Context for the connectivity check.
//	address - Bolt-family URL, validated with ParseAddress.
//	creds - Optional credentials. nil connects without auth.
//	opts - Store options.
//
// Outputs:
//
//	*Store - The connected store. Call Shutdown() when done.
//	error - *source.AddressFormatError for a malformed address,
//	*source.ConnectionError when the server cannot be reached.
func Open(ctx context.Context, address string, creds *source.Credentials, opts Options) (*Store, error) {
	if _, err := ParseAddress(address); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	auth := neo4j.NoAuth()
	if creds != nil {
		password := ""
		if creds.HasPassword() {
			pw, err := creds.Password()
			if err != nil {
				return nil, &source.ConnectionError{Target: address, Kind: "remote", Cause: err}
			}
			password = pw
		}
		auth = neo4j.BasicAuth(creds.Login(), password, "")
	}

	driver, err := neo4j.NewDriverWithContext(address, auth)
	if err != nil {
		return nil, &source.ConnectionError{Target: address, Kind: "remote", Cause: err}
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(context.WithoutCancel(ctx))
		return nil, &source.ConnectionError{Target: address, Kind: "remote", Cause: err}
	}

	opts.Logger.Debug("connected to remote store",
		slog.String("address", address),
		slog.String("database", opts.Database),
		slog.Bool("authenticated", creds != nil))

	return &Store{driver: driver, opts: opts, logger: opts.Logger}, nil
}

// Kind implements source.Store.
func (s *Store) Kind() string {
	return "remote"
}

// Begin implements source.Store.
func (s *Store) Begin(ctx context.Context) (source.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, source.ErrStoreClosed
	}
	if s.session != nil {
		return nil, source.ErrTransactionOpen
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: s.opts.Database,
	})
	transaction, err := session.BeginTransaction(ctx)
	if err != nil {
		session.Close(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	s.session = session

	return &tx{store: s, runner: transaction, root: s.opts.RootElementID}, nil
}

// Shutdown implements source.Store.
func (s *Store) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.session != nil {
		s.logger.Warn("shutting down remote store with an open transaction")
		errs = append(errs, s.session.Close(ctx))
		s.session = nil
	}
	errs = append(errs, s.driver.Close(ctx))
	return errors.Join(errs...)
}

func (s *Store) release(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil
	}
	err := s.session.Close(ctx)
	s.session = nil
	return err
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package source defines the contract between the importer and a source
// graph store.
//
// A source store is an external graph database that the importer reads
// from. Two implementations exist:
//
//   - storage/badger: a local embedded store on disk
//   - storage/neo4j: a remote store reached over Bolt
//
// # Ownership
//
// Nodes and relationships returned by a store are owned by that store and
// are read-only for the duration of an import. Callers MUST NOT mutate
// Properties maps.
//
// # Transactions
//
// All reads happen inside a single Tx. A Store permits at most one open Tx
// at a time; Begin returns ErrTransactionOpen otherwise. Finish must be
// called exactly once on every Tx, on every exit path.
package source

import (
	"context"
	"errors"
)

// Sentinel errors shared by all store implementations.
var (
	// ErrRootNotFound is returned by Tx.RootNode when the store holds no nodes.
	ErrRootNotFound = errors.New("root node not found")

	// ErrNodeNotFound is returned when a referenced node does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrTransactionOpen is returned by Store.Begin while another transaction
	// is still open on the same handle.
	ErrTransactionOpen = errors.New("a transaction is already open on this store")

	// ErrTransactionFinished is returned when a finished Tx is used again.
	ErrTransactionFinished = errors.New("transaction already finished")

	// ErrStoreClosed is returned when a store is used after Shutdown.
	ErrStoreClosed = errors.New("store is shut down")
)

// Node is a vertex of the source graph.
type Node struct {
	// ID is the store-assigned identifier. Unique within one store.
	ID string

	// Labels are the node's labels, in store order. May be empty.
	Labels []string

	// Properties are the node's key/value properties. Never nil when
	// produced by a store.
	Properties map[string]any
}

// Relationship is a directed edge of the source graph.
type Relationship struct {
	// ID is the store-assigned identifier. Unique within one store.
	ID string

	// Start is the node the relationship leaves.
	Start Node

	// End is the node the relationship enters.
	End Node

	// Type is the relationship type, e.g. "KNOWS".
	Type string

	// Properties are the relationship's key/value properties.
	Properties map[string]any
}

// Other returns the endpoint opposite nodeID.
//
// For a self-loop both endpoints are nodeID and Start is returned.
func (r Relationship) Other(nodeID string) Node {
	if r.Start.ID == nodeID {
		return r.End
	}
	return r.Start
}

// Store is an open handle to a source graph store.
type Store interface {
	// Begin opens a transaction. Only one transaction may be open at a time.
	Begin(ctx context.Context) (Tx, error)

	// Shutdown releases the handle and any underlying connection.
	// Safe to call more than once.
	Shutdown(ctx context.Context) error

	// Kind identifies the store type: "local" or "remote".
	Kind() string
}

// Tx is a read transaction on a source store.
type Tx interface {
	// RootNode returns the store's designated traversal starting point.
	// Returns ErrRootNotFound when the store is empty.
	RootNode(ctx context.Context) (Node, error)

	// Relationships returns every relationship touching nodeID, of every
	// type, in both directions. Start and End are fully populated.
	Relationships(ctx context.Context, nodeID string) ([]Relationship, error)

	// MarkSuccess flags the transaction so that Finish commits it.
	MarkSuccess()

	// Finish ends the transaction: commits when MarkSuccess was called,
	// rolls back otherwise. Subsequent calls return ErrTransactionFinished.
	Finish(ctx context.Context) error
}

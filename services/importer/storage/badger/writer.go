// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// ErrReadOnly is returned when a writer is requested for a database opened
// without write access.
var ErrReadOnly = errors.New("database is read-only")

// Writer populates a local graph store.
//
// Thread Safety: Safe for concurrent use; every call is its own BadgerDB
// update transaction.
type Writer struct {
	db *DB
}

// Create opens (creating if needed) a writable store and stamps the format
// marker.
//
// Inputs:
//
//	cfg - Database configuration. ReadOnly must be false.
//
// Outputs:
//
//	*Writer - The writer. Call Close() when done.
//	error - Non-nil if the database cannot be opened.
func Create(cfg Config) (*Writer, error) {
	if cfg.ReadOnly {
		return nil, ErrReadOnly
	}
	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	w, err := NewWriter(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return w, nil
}

// NewWriter stamps the format marker on db and returns a writer for it.
// The writer does not take ownership of db unless Close is called.
func NewWriter(db *DB) (*Writer, error) {
	if db.ReadOnly() {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, db.Path())
	}
	err := db.Update(func(txn *badger.Txn) error {
		return txn.Set(keyFormat, []byte(FormatVersion))
	})
	if err != nil {
		return nil, fmt.Errorf("write format marker: %w", err)
	}
	return &Writer{db: db}, nil
}

// DB returns the underlying database.
func (w *Writer) DB() *DB {
	return w.db
}

// PutNode writes or replaces a node.
func (w *Writer) PutNode(_ context.Context, n source.Node) error {
	if err := validID(n.ID); err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	data, err := json.Marshal(nodeRecord{ID: n.ID, Labels: n.Labels, Properties: n.Properties})
	if err != nil {
		return fmt.Errorf("encode node %s: %w", n.ID, err)
	}
	return w.db.Update(func(txn *badger.Txn) error {
		return txn.Set(nodeKey(n.ID), data)
	})
}

// PutRelationship writes a relationship between two existing nodes and
// indexes it on both endpoints.
//
// Returns source.ErrNodeNotFound if either endpoint is missing.
func (w *Writer) PutRelationship(_ context.Context, id, startID, endID, relType string, props map[string]any) error {
	if err := validID(id); err != nil {
		return fmt.Errorf("put relationship: %w", err)
	}
	data, err := json.Marshal(relRecord{ID: id, Start: startID, End: endID, Type: relType, Properties: props})
	if err != nil {
		return fmt.Errorf("encode relationship %s: %w", id, err)
	}

	return w.db.Update(func(txn *badger.Txn) error {
		for _, nodeID := range []string{startID, endID} {
			if _, err := txn.Get(nodeKey(nodeID)); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("relationship %s: %w: %s", id, source.ErrNodeNotFound, nodeID)
				}
				return err
			}
		}
		if err := txn.Set(relKey(id), data); err != nil {
			return err
		}
		if err := txn.Set(adjKey(startID, id), []byte{}); err != nil {
			return err
		}
		if endID == startID {
			return nil
		}
		return txn.Set(adjKey(endID, id), []byte{})
	})
}

// SetRoot designates the traversal starting node.
func (w *Writer) SetRoot(_ context.Context, nodeID string) error {
	return w.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(nodeKey(nodeID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("set root: %w: %s", source.ErrNodeNotFound, nodeID)
			}
			return err
		}
		return txn.Set(keyRoot, []byte(nodeID))
	})
}

// Close closes the underlying database.
func (w *Writer) Close() error {
	return w.db.Close()
}

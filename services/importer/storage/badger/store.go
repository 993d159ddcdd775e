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
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// ErrNotGraphStore is returned when a BadgerDB directory lacks the store
// format marker.
var ErrNotGraphStore = errors.New("database is not an aleutian graph store")

// Store is a source.Store backed by a local BadgerDB directory.
//
// Thread Safety: Safe for concurrent use. At most one transaction may be
// open at a time.
type Store struct {
	db     *DB
	logger *slog.Logger

	mu     sync.Mutex
	txOpen bool
	closed bool
}

// OpenStore opens the graph store at path read-only.
//
// Description:
//
//	Opens the BadgerDB directory without creating it and verifies the
//	format marker.
//
// Inputs:
//
//	path - Store directory.
//	logger - Receives store and BadgerDB logs. nil uses slog.Default().
//
// Outputs:
//
//	*Store - The opened store. Call Shutdown() when done.
//	error - Non-nil if path is missing, not a BadgerDB directory, or not a
//	graph store.
func OpenStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := ReadOnlyConfig(path)
	cfg.Logger = logger.With(slog.String("component", "badger"))

	db, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	store, err := NewStore(db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewStore wraps an already opened database. The store takes ownership of
// db and closes it on Shutdown.
func NewStore(db *DB, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyFormat)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotGraphStore
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if string(val) != FormatVersion {
				return fmt.Errorf("%w: unsupported format %q", ErrNotGraphStore, string(val))
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("local store ready",
		slog.String("path", db.Path()),
		slog.Bool("in_memory", db.InMemory()),
		slog.Bool("read_only", db.ReadOnly()))
	return &Store{db: db, logger: logger}, nil
}

// Kind implements source.Store.
func (s *Store) Kind() string {
	return "local"
}

// Begin implements source.Store.
func (s *Store) Begin(ctx context.Context) (source.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, source.ErrStoreClosed
	}
	if s.txOpen {
		return nil, source.ErrTransactionOpen
	}
	s.txOpen = true

	return &tx{store: s, txn: s.db.NewTransaction(false)}, nil
}

// Shutdown implements source.Store.
func (s *Store) Shutdown(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.txOpen {
		s.logger.Warn("shutting down local store with an open transaction")
	}
	return s.db.Close()
}

func (s *Store) release() {
	s.mu.Lock()
	s.txOpen = false
	s.mu.Unlock()
}

// tx is a read-only BadgerDB transaction.
type tx struct {
	store    *Store
	txn      *badger.Txn
	success  bool
	finished bool
	nodes    map[string]source.Node
}

// RootNode implements source.Tx.
func (t *tx) RootNode(ctx context.Context) (source.Node, error) {
	if err := t.check(ctx); err != nil {
		return source.Node{}, err
	}

	item, err := t.txn.Get(keyRoot)
	switch {
	case err == nil:
		val, err := item.ValueCopy(nil)
		if err != nil {
			return source.Node{}, fmt.Errorf("read root marker: %w", err)
		}
		return t.node(string(val))
	case !errors.Is(err, badger.ErrKeyNotFound):
		return source.Node{}, fmt.Errorf("read root marker: %w", err)
	}

	// No marker: the first node in key order is the root.
	it := t.txn.NewIterator(badger.IteratorOptions{Prefix: prefixNode})
	defer it.Close()
	it.Seek(prefixNode)
	if !it.ValidForPrefix(prefixNode) {
		return source.Node{}, source.ErrRootNotFound
	}
	val, err := it.Item().ValueCopy(nil)
	if err != nil {
		return source.Node{}, fmt.Errorf("read root node: %w", err)
	}
	return t.decodeNode(val)
}

// Relationships implements source.Tx.
func (t *tx) Relationships(ctx context.Context, nodeID string) ([]source.Relationship, error) {
	if err := t.check(ctx); err != nil {
		return nil, err
	}

	prefix := adjPrefix(nodeID)
	var relIDs []string

	it := t.txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		relIDs = append(relIDs, relIDFromAdjKey(prefix, it.Item().Key()))
	}
	it.Close()

	rels := make([]source.Relationship, 0, len(relIDs))
	for _, id := range relIDs {
		rel, err := t.relationship(id)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

// MarkSuccess implements source.Tx.
func (t *tx) MarkSuccess() {
	t.success = true
}

// Finish implements source.Tx.
//
// A read-only transaction has nothing to persist; commit and discard differ
// only in whether read conflicts are checked.
func (t *tx) Finish(_ context.Context) error {
	if t.finished {
		return source.ErrTransactionFinished
	}
	t.finished = true
	defer t.store.release()
	defer t.txn.Discard()

	if t.success {
		if err := t.txn.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	}
	t.store.logger.Debug("local transaction finished without success mark")
	return nil
}

func (t *tx) check(ctx context.Context) error {
	if t.finished {
		return source.ErrTransactionFinished
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	return nil
}

// node loads a node by id, caching it for the life of the transaction.
func (t *tx) node(id string) (source.Node, error) {
	if n, ok := t.nodes[id]; ok {
		return n, nil
	}
	item, err := t.txn.Get(nodeKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return source.Node{}, fmt.Errorf("%w: %s", source.ErrNodeNotFound, id)
	}
	if err != nil {
		return source.Node{}, fmt.Errorf("read node %s: %w", id, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return source.Node{}, fmt.Errorf("read node %s: %w", id, err)
	}
	return t.decodeNode(val)
}

func (t *tx) decodeNode(val []byte) (source.Node, error) {
	var rec nodeRecord
	if err := decodeRecord(val, &rec); err != nil {
		return source.Node{}, fmt.Errorf("decode node: %w", err)
	}
	n := source.Node{ID: rec.ID, Labels: rec.Labels, Properties: rec.Properties}
	if t.nodes == nil {
		t.nodes = make(map[string]source.Node)
	}
	t.nodes[n.ID] = n
	return n, nil
}

func (t *tx) relationship(id string) (source.Relationship, error) {
	item, err := t.txn.Get(relKey(id))
	if err != nil {
		return source.Relationship{}, fmt.Errorf("read relationship %s: %w", id, err)
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return source.Relationship{}, fmt.Errorf("read relationship %s: %w", id, err)
	}
	var rec relRecord
	if err := decodeRecord(val, &rec); err != nil {
		return source.Relationship{}, fmt.Errorf("decode relationship %s: %w", id, err)
	}

	start, err := t.node(rec.Start)
	if err != nil {
		return source.Relationship{}, err
	}
	end, err := t.node(rec.End)
	if err != nil {
		return source.Relationship{}, err
	}
	return source.Relationship{
		ID:         rec.ID,
		Start:      start,
		End:        end,
		Type:       rec.Type,
		Properties: rec.Properties,
	}, nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sourcetest provides an in-memory source.Store for tests.
package sourcetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// Store is an in-memory source.Store that records how it was used.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	nodes  map[string]source.Node
	order  []string
	rels   []source.Relationship
	root   string
	kind   string
	txOpen bool

	// Counters inspected by tests.
	Begins    int
	Commits   int
	Rollbacks int
	Shutdowns int
	Expanded  []string

	// ExpandErr, when set, is returned by Relationships for that node id.
	ExpandErr map[string]error

	// BeginErr, when set, is returned by Begin.
	BeginErr error

	// OnExpand, when set, runs before each Relationships call.
	OnExpand func(nodeID string)
}

// New returns an empty store of the given kind ("local" if empty).
func New(kind string) *Store {
	if kind == "" {
		kind = "local"
	}
	return &Store{nodes: make(map[string]source.Node), kind: kind}
}

// AddNode adds a node. The first node added is the default root.
func (s *Store) AddNode(id string, labels []string, props map[string]any) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[id]; !ok {
		s.order = append(s.order, id)
	}
	s.nodes[id] = source.Node{ID: id, Labels: labels, Properties: props}
	return s
}

// AddRelationship adds a relationship between existing nodes. It panics
// on a missing endpoint.
func (s *Store) AddRelationship(id, start, end, relType string, props map[string]any) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.nodes[start]
	if !ok {
		panic(fmt.Sprintf("sourcetest: missing start node %s", start))
	}
	b, ok := s.nodes[end]
	if !ok {
		panic(fmt.Sprintf("sourcetest: missing end node %s", end))
	}
	s.rels = append(s.rels, source.Relationship{ID: id, Start: a, End: b, Type: relType, Properties: props})
	return s
}

// SetRoot overrides the root node.
func (s *Store) SetRoot(id string) *Store {
	s.mu.Lock()
	s.root = id
	s.mu.Unlock()
	return s
}

// Chain builds n1 -> n2 -> ... -> nN with relType relationships r1..r(N-1).
func Chain(n int, relType string) *Store {
	s := New("")
	for i := 1; i <= n; i++ {
		s.AddNode(fmt.Sprintf("n%d", i), []string{"Node"}, map[string]any{"name": fmt.Sprintf("N%d", i)})
	}
	for i := 1; i < n; i++ {
		s.AddRelationship(fmt.Sprintf("r%d", i), fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", i+1), relType, nil)
	}
	return s
}

// Kind implements source.Store.
func (s *Store) Kind() string { return s.kind }

// Begin implements source.Store.
func (s *Store) Begin(context.Context) (source.Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Shutdowns > 0 {
		return nil, source.ErrStoreClosed
	}
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	if s.txOpen {
		return nil, source.ErrTransactionOpen
	}
	s.txOpen = true
	s.Begins++
	return &Tx{store: s}, nil
}

// Shutdown implements source.Store.
func (s *Store) Shutdown(context.Context) error {
	s.mu.Lock()
	s.Shutdowns++
	s.mu.Unlock()
	return nil
}

// TxOpen reports whether a transaction is open.
func (s *Store) TxOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txOpen
}

// Tx is the transaction returned by Store.Begin.
type Tx struct {
	store    *Store
	success  bool
	finished bool
}

// RootNode implements source.Tx.
func (t *Tx) RootNode(context.Context) (source.Node, error) {
	if t.finished {
		return source.Node{}, source.ErrTransactionFinished
	}
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.root
	if id == "" {
		if len(s.order) == 0 {
			return source.Node{}, source.ErrRootNotFound
		}
		id = s.order[0]
	}
	n, ok := s.nodes[id]
	if !ok {
		return source.Node{}, fmt.Errorf("%w: %s", source.ErrNodeNotFound, id)
	}
	return n, nil
}

// Relationships implements source.Tx. Relationships come back in
// insertion order.
func (t *Tx) Relationships(_ context.Context, nodeID string) ([]source.Relationship, error) {
	if t.finished {
		return nil, source.ErrTransactionFinished
	}
	s := t.store
	if s.OnExpand != nil {
		s.OnExpand(nodeID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.Expanded = append(s.Expanded, nodeID)
	if err := s.ExpandErr[nodeID]; err != nil {
		return nil, err
	}
	var out []source.Relationship
	for _, r := range s.rels {
		if r.Start.ID == nodeID || r.End.ID == nodeID {
			out = append(out, r)
		}
	}
	return out, nil
}

// MarkSuccess implements source.Tx.
func (t *Tx) MarkSuccess() { t.success = true }

// Finish implements source.Tx.
func (t *Tx) Finish(context.Context) error {
	if t.finished {
		return source.ErrTransactionFinished
	}
	t.finished = true
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.success {
		s.Commits++
	} else {
		s.Rollbacks++
	}
	s.txOpen = false
	return nil
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package traverse walks a source graph depth-first from its root.
//
// # Walk
//
// The walk keeps an explicit stack of frames, one per node on the current
// path. A node's relationships are fetched only when its frame first
// reaches the top of the stack, so a walk that is abandoned early never
// reads the rest of the graph. Every relationship type is followed in
// both directions; nothing is pruned or filtered.
//
// # Uniqueness
//
// RelationshipGlobal emits each reachable relationship once.
// NodeGlobal emits only the relationships that reach a node for the first
// time, which yields the depth-first spanning tree.
package traverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// ErrConsumed is returned when Relationships is called a second time.
var ErrConsumed = errors.New("traversal already consumed")

// ErrUnknownUniqueness is returned by ParseUniqueness.
var ErrUnknownUniqueness = errors.New("unknown uniqueness")

// Uniqueness selects which relationships a walk emits.
type Uniqueness int

const (
	// RelationshipGlobal emits every reachable relationship exactly once.
	RelationshipGlobal Uniqueness = iota

	// NodeGlobal emits only relationships that discover a new node.
	NodeGlobal
)

// String returns the flag value for the uniqueness.
func (u Uniqueness) String() string {
	switch u {
	case RelationshipGlobal:
		return "relationship"
	case NodeGlobal:
		return "node"
	default:
		return "unknown"
	}
}

// ParseUniqueness parses "relationship" or "node".
func ParseUniqueness(s string) (Uniqueness, error) {
	switch s {
	case "relationship", "":
		return RelationshipGlobal, nil
	case "node":
		return NodeGlobal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownUniqueness, s)
	}
}

// Options configures a traversal.
type Options struct {
	Uniqueness Uniqueness

	// Logger receives debug logs. nil uses slog.Default().
	Logger *slog.Logger
}

// Traverser produces the one-shot relationship sequence of a transaction.
type Traverser struct {
	tx       source.Tx
	opts     Options
	consumed atomic.Bool
}

// New creates a traverser over tx.
func New(tx source.Tx, opts Options) *Traverser {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Traverser{tx: tx, opts: opts}
}

// Relationships starts the walk.
//
// Description:
//
//	Resolves the root node and returns a cursor positioned before the
//	first relationship. An empty store yields an exhausted cursor, not
//	an error. May be called once per Traverser.
//
// Inputs:
//
//	ctx - Context for the root lookup.
//
// Outputs:
//
//	*Cursor - The lazy relationship sequence.
//	error - ErrConsumed on a second call, or a store error.
//
// Thread Safety: The returned cursor is NOT safe for concurrent use.
func (t *Traverser) Relationships(ctx context.Context) (*Cursor, error) {
	if !t.consumed.CompareAndSwap(false, true) {
		return nil, ErrConsumed
	}

	c := &Cursor{
		tx:         t.tx,
		uniqueness: t.opts.Uniqueness,
		seenNodes:  make(map[string]struct{}),
		seenRels:   make(map[string]struct{}),
	}

	root, err := t.tx.RootNode(ctx)
	if errors.Is(err, source.ErrRootNotFound) {
		t.opts.Logger.Debug("source store is empty")
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	t.opts.Logger.Debug("traversal starting",
		slog.String("root", root.ID),
		slog.String("uniqueness", t.opts.Uniqueness.String()))

	c.seenNodes[root.ID] = struct{}{}
	c.stack = append(c.stack, &frame{node: root})
	return c, nil
}

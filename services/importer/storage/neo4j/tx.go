// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package neo4j

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

const (
	queryRootByID = `MATCH (n) WHERE elementId(n) = $id RETURN n`

	queryRootDefault = `MATCH (n) RETURN n ORDER BY id(n) ASC LIMIT 1`

	// DISTINCT collapses the two rows an undirected pattern yields for a
	// self-loop.
	queryExpand = `
		MATCH (n)-[r]-()
		WHERE elementId(n) = $id
		RETURN DISTINCT r, startNode(r) AS s, endNode(r) AS e
		ORDER BY id(r)`
)

// runner is the subset of neo4j.ExplicitTransaction used by tx.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (neo4j.ResultWithContext, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

// tx is an explicit read transaction on the remote store.
type tx struct {
	store    *Store
	runner   runner
	root     string
	success  bool
	finished bool
}

// RootNode implements source.Tx.
func (t *tx) RootNode(ctx context.Context) (source.Node, error) {
	if t.finished {
		return source.Node{}, source.ErrTransactionFinished
	}

	query, params := queryRootDefault, map[string]any(nil)
	if t.root != "" {
		query, params = queryRootByID, map[string]any{"id": t.root}
	}

	records, err := t.collect(ctx, query, params)
	if err != nil {
		return source.Node{}, fmt.Errorf("query root node: %w", err)
	}
	if len(records) == 0 {
		return source.Node{}, source.ErrRootNotFound
	}
	return nodeFromRecord(records[0], "n")
}

// Relationships implements source.Tx.
func (t *tx) Relationships(ctx context.Context, nodeID string) ([]source.Relationship, error) {
	if t.finished {
		return nil, source.ErrTransactionFinished
	}

	records, err := t.collect(ctx, queryExpand, map[string]any{"id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("expand node %s: %w", nodeID, err)
	}

	rels := make([]source.Relationship, 0, len(records))
	for _, rec := range records {
		rel, err := relationshipFromRecord(rec)
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
func (t *tx) Finish(ctx context.Context) error {
	if t.finished {
		return source.ErrTransactionFinished
	}
	t.finished = true

	var err error
	if t.success {
		err = t.runner.Commit(ctx)
	} else {
		err = t.runner.Rollback(ctx)
	}
	return errors.Join(err, t.runner.Close(ctx), t.store.release(ctx))
}

func (t *tx) collect(ctx context.Context, query string, params map[string]any) ([]*neo4j.Record, error) {
	result, err := t.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return result.Collect(ctx)
}

// =============================================================================
// Record decoding
// =============================================================================

// ErrUnexpectedValue is returned when a record column has the wrong type.
var ErrUnexpectedValue = errors.New("unexpected record value")

func nodeFromRecord(record *neo4j.Record, key string) (source.Node, error) {
	val, ok := record.Get(key)
	if !ok {
		return source.Node{}, fmt.Errorf("%w: missing column %q", ErrUnexpectedValue, key)
	}
	n, ok := val.(neo4j.Node)
	if !ok {
		return source.Node{}, fmt.Errorf("%w: column %q is %T, want node", ErrUnexpectedValue, key, val)
	}
	return convertNode(n), nil
}

func relationshipFromRecord(record *neo4j.Record) (source.Relationship, error) {
	val, ok := record.Get("r")
	if !ok {
		return source.Relationship{}, fmt.Errorf("%w: missing column \"r\"", ErrUnexpectedValue)
	}
	r, ok := val.(neo4j.Relationship)
	if !ok {
		return source.Relationship{}, fmt.Errorf("%w: column \"r\" is %T, want relationship", ErrUnexpectedValue, val)
	}
	start, err := nodeFromRecord(record, "s")
	if err != nil {
		return source.Relationship{}, err
	}
	end, err := nodeFromRecord(record, "e")
	if err != nil {
		return source.Relationship{}, err
	}
	return source.Relationship{
		ID:         elementID(r.ElementId, r.Id),
		Start:      start,
		End:        end,
		Type:       r.Type,
		Properties: props(r.Props),
	}, nil
}

func convertNode(n neo4j.Node) source.Node {
	return source.Node{
		ID:         elementID(n.ElementId, n.Id),
		Labels:     n.Labels,
		Properties: props(n.Props),
	}
}

// elementID prefers the server's element id and falls back to the legacy
// numeric id for servers that do not send one.
func elementID(elementID string, legacy int64) string {
	if elementID != "" {
		return elementID
	}
	return strconv.FormatInt(legacy, 10)
}

func props(p map[string]any) map[string]any {
	if p == nil {
		return map[string]any{}
	}
	return p
}

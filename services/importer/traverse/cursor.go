// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package traverse

import (
	"context"
	"fmt"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// frame is one node on the current depth-first path.
type frame struct {
	node     source.Node
	rels     []source.Relationship
	next     int
	expanded bool
}

// Cursor iterates the relationships of a walk.
//
//	for cur.Next(ctx) {
//	    rel := cur.Relationship()
//	}
//	if err := cur.Err(); err != nil { ... }
type Cursor struct {
	tx         source.Tx
	uniqueness Uniqueness

	stack     []*frame
	seenNodes map[string]struct{}
	seenRels  map[string]struct{}

	current source.Relationship
	visited int
	err     error
}

// Next advances to the next relationship. It returns false when the walk
// is exhausted, ctx is done, or a store read fails; check Err to tell
// them apart.
func (c *Cursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}

	for len(c.stack) > 0 {
		if err := ctx.Err(); err != nil {
			c.err = err
			return false
		}

		top := c.stack[len(c.stack)-1]
		if !top.expanded {
			rels, err := c.tx.Relationships(ctx, top.node.ID)
			if err != nil {
				c.err = fmt.Errorf("expand node %s: %w", top.node.ID, err)
				return false
			}
			top.rels = rels
			top.expanded = true
		}

		if top.next >= len(top.rels) {
			c.stack[len(c.stack)-1] = nil
			c.stack = c.stack[:len(c.stack)-1]
			continue
		}
		rel := top.rels[top.next]
		top.next++

		if c.accept(top.node.ID, rel) {
			c.current = rel
			c.visited++
			return true
		}
	}
	return false
}

// accept applies the uniqueness rule and pushes newly discovered nodes.
func (c *Cursor) accept(from string, rel source.Relationship) bool {
	other := rel.Other(from)
	_, seenNode := c.seenNodes[other.ID]

	switch c.uniqueness {
	case NodeGlobal:
		if seenNode {
			return false
		}
	default:
		if _, ok := c.seenRels[rel.ID]; ok {
			return false
		}
		c.seenRels[rel.ID] = struct{}{}
	}

	if !seenNode {
		c.seenNodes[other.ID] = struct{}{}
		c.stack = append(c.stack, &frame{node: other})
	}
	return true
}

// Relationship returns the relationship Next moved to.
func (c *Cursor) Relationship() source.Relationship {
	return c.current
}

// Err returns the error that stopped the walk, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Visited returns how many relationships have been emitted.
func (c *Cursor) Visited() int {
	return c.visited
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package convert maps source graph entities onto destination entities.
//
// A Convertor owns the identity map for one import: each source node id
// maps to exactly one destination node, however many relationships touch
// it. Relationships are never deduplicated; each call to CreateEdge adds
// an edge.
package convert

import (
	"fmt"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/destination"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// Attribute keys added to every destination node.
const (
	AttrSourceID = "source_id"
	AttrLabels   = "labels"
)

// Convertor translates source nodes and relationships into one
// destination graph.
//
// Thread Safety: NOT safe for concurrent use. One import, one goroutine.
type Convertor struct {
	graph    destination.GraphModel
	identity map[string]*destination.Node
	edges    int
}

// New creates a convertor writing into graph with an empty identity map.
func New(graph destination.GraphModel) *Convertor {
	return &Convertor{
		graph:    graph,
		identity: make(map[string]*destination.Node),
	}
}

// GetOrCreateNode returns the destination node for n, creating it on
// first sight.
//
// Description:
//
//	Idempotent per source id. The first call creates a node labelled by
//	Label(n) with translated attributes; later calls return the same
//	pointer without touching the graph.
//
// Outputs:
//
//	*destination.Node - The mapped node.
//	error - Non-nil only if the destination graph refuses the node.
func (c *Convertor) GetOrCreateNode(n source.Node) (*destination.Node, error) {
	if existing, ok := c.identity[n.ID]; ok {
		return existing, nil
	}

	created, err := c.graph.NewNode(Label(n), NodeAttributes(n))
	if err != nil {
		return nil, fmt.Errorf("create node for %s: %w", n.ID, err)
	}
	c.identity[n.ID] = created
	return created, nil
}

// CreateEdge adds a directed edge for r.
//
// Description:
//
//	Resolves both endpoints through GetOrCreateNode, then always creates
//	a new edge typed r.Type from start to end. Converting the same
//	relationship twice yields two edges.
//
// Outputs:
//
//	*destination.Edge - The created edge.
//	error - Non-nil if the destination graph refuses a node or the edge.
func (c *Convertor) CreateEdge(r source.Relationship) (*destination.Edge, error) {
	src, err := c.GetOrCreateNode(r.Start)
	if err != nil {
		return nil, err
	}
	dst, err := c.GetOrCreateNode(r.End)
	if err != nil {
		return nil, err
	}

	e, err := c.graph.NewEdge(src, dst, r.Type, Properties(r.Properties))
	if err != nil {
		return nil, fmt.Errorf("create edge for %s: %w", r.ID, err)
	}
	c.edges++
	return e, nil
}

// Lookup returns the destination node mapped to a source id.
func (c *Convertor) Lookup(sourceID string) (*destination.Node, bool) {
	n, ok := c.identity[sourceID]
	return n, ok
}

// NodeCount returns the number of nodes created.
func (c *Convertor) NodeCount() int {
	return len(c.identity)
}

// EdgeCount returns the number of edges created.
func (c *Convertor) EdgeCount() int {
	return c.edges
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workspace

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/destination"
)

// Default limits.
const (
	// DefaultMaxNodes is the default maximum number of nodes a graph can hold.
	DefaultMaxNodes = 1_000_000

	// DefaultMaxEdges is the default maximum number of edges a graph can hold.
	DefaultMaxEdges = 10_000_000
)

// GraphOptions configures graph limits.
type GraphOptions struct {
	// MaxNodes is the maximum number of nodes a graph can hold.
	// Zero or negative disables the limit.
	MaxNodes int

	// MaxEdges is the maximum number of edges a graph can hold.
	// Zero or negative disables the limit.
	MaxEdges int
}

// DefaultGraphOptions returns the default limits.
func DefaultGraphOptions() GraphOptions {
	return GraphOptions{
		MaxNodes: DefaultMaxNodes,
		MaxEdges: DefaultMaxEdges,
	}
}

// GraphOption is a functional option for configuring graphs.
type GraphOption func(*GraphOptions)

// WithMaxNodes sets the maximum number of nodes per graph.
func WithMaxNodes(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxNodes = n
	}
}

// WithMaxEdges sets the maximum number of edges per graph.
func WithMaxEdges(n int) GraphOption {
	return func(o *GraphOptions) {
		o.MaxEdges = n
	}
}

// Graph is an in-memory destination.GraphModel.
//
// Nodes and edges keep their creation order.
//
// Thread Safety: Safe for concurrent use.
type Graph struct {
	opts GraphOptions

	mu    sync.RWMutex
	nodes map[string]*destination.Node
	order []*destination.Node
	edges []*destination.Edge
}

func newGraph(opts GraphOptions) *Graph {
	return &Graph{
		opts:  opts,
		nodes: make(map[string]*destination.Node),
	}
}

// NewNode implements destination.GraphModel.
func (g *Graph) NewNode(label string, attrs map[string]any) (*destination.Node, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.opts.MaxNodes > 0 && len(g.order) >= g.opts.MaxNodes {
		return nil, fmt.Errorf("%w: limit %d", destination.ErrMaxNodesExceeded, g.opts.MaxNodes)
	}

	n := &destination.Node{
		ID:         uuid.NewString(),
		Label:      label,
		Attributes: attrs,
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n)
	return n, nil
}

// NewEdge implements destination.GraphModel.
//
// Both endpoints must be the exact nodes this graph returned from NewNode.
func (g *Graph) NewEdge(src, dst *destination.Node, edgeType string, attrs map[string]any) (*destination.Edge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.ownsLocked(src) {
		return nil, fmt.Errorf("%w: source", destination.ErrNodeNotFound)
	}
	if !g.ownsLocked(dst) {
		return nil, fmt.Errorf("%w: target", destination.ErrNodeNotFound)
	}
	if g.opts.MaxEdges > 0 && len(g.edges) >= g.opts.MaxEdges {
		return nil, fmt.Errorf("%w: limit %d", destination.ErrMaxEdgesExceeded, g.opts.MaxEdges)
	}

	e := &destination.Edge{
		ID:         uuid.NewString(),
		Source:     src,
		Target:     dst,
		Type:       edgeType,
		Directed:   true,
		Attributes: attrs,
	}
	g.edges = append(g.edges, e)
	return e, nil
}

func (g *Graph) ownsLocked(n *destination.Node) bool {
	if n == nil {
		return false
	}
	return g.nodes[n.ID] == n
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (*destination.Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*destination.Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*destination.Node, len(g.order))
	copy(out, g.order)
	return out
}

// Edges returns the edges in creation order.
func (g *Graph) Edges() []*destination.Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*destination.Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.order)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

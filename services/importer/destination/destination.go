// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package destination defines the contract of the graph-visualization
// environment an import writes into.
//
// The environment owns projects and workspaces. A project exposes the
// GraphModel its imported entities are created in. Implementations must
// assign entity ids themselves; callers never choose them.
package destination

import "errors"

var (
	// ErrNodeNotFound is returned by GraphModel.NewEdge when an endpoint
	// was not created by the same graph.
	ErrNodeNotFound = errors.New("endpoint node not found in graph")

	// ErrMaxNodesExceeded is returned when a graph's node limit is reached.
	ErrMaxNodesExceeded = errors.New("maximum node count exceeded")

	// ErrMaxEdgesExceeded is returned when a graph's edge limit is reached.
	ErrMaxEdgesExceeded = errors.New("maximum edge count exceeded")
)

// Node is a node entity in the destination graph.
type Node struct {
	// ID is assigned by the destination graph.
	ID string `json:"id"`

	// Label is the display label.
	Label string `json:"label"`

	// Attributes holds translated source properties.
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Edge is an edge entity in the destination graph.
//
// Source and Target point at nodes of the same graph.
type Edge struct {
	ID         string         `json:"id"`
	Source     *Node          `json:"-"`
	Target     *Node          `json:"-"`
	Type       string         `json:"type"`
	Directed   bool           `json:"directed"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// GraphModel creates entities in one project's graph.
type GraphModel interface {
	// NewNode creates a node with a fresh id.
	NewNode(label string, attrs map[string]any) (*Node, error)

	// NewEdge creates a directed edge between two nodes of this graph.
	// Returns ErrNodeNotFound if either endpoint belongs elsewhere.
	NewEdge(source, target *Node, edgeType string, attrs map[string]any) (*Edge, error)
}

// Project is a container for an imported graph.
type Project interface {
	ID() string
	Name() string
	Graph() GraphModel
}

// Workspace is a view onto a project.
type Workspace interface {
	ID() string
	Project() Project
}

// Environment is the destination application.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Environment interface {
	// CreateNewProject creates and returns a new, empty project.
	CreateNewProject() Project

	// CurrentWorkspace returns the open workspace, or nil if none.
	CurrentWorkspace() Workspace

	// CreateWorkspace creates a new workspace in project.
	CreateWorkspace(project Project) Workspace

	// OpenWorkspace makes ws the current workspace.
	OpenWorkspace(ws Workspace)
}

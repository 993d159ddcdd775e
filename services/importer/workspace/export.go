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
	"encoding/json"
	"fmt"
	"io"
)

// Snapshot is a serializable copy of a project graph.
type Snapshot struct {
	ProjectID   string       `json:"project_id"`
	ProjectName string       `json:"project_name"`
	Nodes       []NodeRecord `json:"nodes"`
	Edges       []EdgeRecord `json:"edges"`
}

// NodeRecord is one exported node.
type NodeRecord struct {
	ID         string         `json:"id"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// EdgeRecord is one exported edge, endpoints given by node id.
type EdgeRecord struct {
	ID         string         `json:"id"`
	Source     string         `json:"source"`
	Target     string         `json:"target"`
	Type       string         `json:"type"`
	Directed   bool           `json:"directed"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Snapshot copies the project's graph.
func (p *Project) Snapshot() Snapshot {
	nodes := p.graph.Nodes()
	edges := p.graph.Edges()

	s := Snapshot{
		ProjectID:   p.id,
		ProjectName: p.name,
		Nodes:       make([]NodeRecord, 0, len(nodes)),
		Edges:       make([]EdgeRecord, 0, len(edges)),
	}
	for _, n := range nodes {
		s.Nodes = append(s.Nodes, NodeRecord{ID: n.ID, Label: n.Label, Attributes: n.Attributes})
	}
	for _, e := range edges {
		s.Edges = append(s.Edges, EdgeRecord{
			ID:         e.ID,
			Source:     e.Source.ID,
			Target:     e.Target.ID,
			Type:       e.Type,
			Directed:   e.Directed,
			Attributes: e.Attributes,
		})
	}
	return s
}

// WriteJSON writes the project's snapshot to w as indented JSON.
func (p *Project) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Snapshot()); err != nil {
		return fmt.Errorf("encode project %s: %w", p.id, err)
	}
	return nil
}

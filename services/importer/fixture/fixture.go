// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package fixture reads YAML graph fixtures and writes them into stores.
//
// A fixture looks like:
//
//	root: alice
//	nodes:
//	  - id: alice
//	    labels: [Person]
//	    properties: {name: Alice}
//	  - id: bob
//	    labels: [Person]
//	relationships:
//	  - id: r1
//	    start: alice
//	    end: bob
//	    type: KNOWS
//
// Node and relationship ids must be non-empty and may not contain ':'.
package fixture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/source"
)

// ErrInvalidFixture wraps every validation failure.
var ErrInvalidFixture = errors.New("invalid fixture")

// fixtureValidate is the validator instance for fixtures.
var fixtureValidate *validator.Validate

func init() {
	fixtureValidate = validator.New()
	_ = fixtureValidate.RegisterValidation("storeid", validateStoreID)
}

// validateStoreID rejects ids the local store cannot key.
func validateStoreID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	return id != "" && !strings.Contains(id, ":")
}

// Graph is a fixture document.
type Graph struct {
	Root          string         `yaml:"root,omitempty"`
	Nodes         []Node         `yaml:"nodes" validate:"dive"`
	Relationships []Relationship `yaml:"relationships,omitempty" validate:"dive"`
}

// Node is a fixture node.
type Node struct {
	ID         string         `yaml:"id" validate:"storeid"`
	Labels     []string       `yaml:"labels,omitempty"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// Relationship is a fixture relationship.
type Relationship struct {
	ID         string         `yaml:"id" validate:"storeid"`
	Start      string         `yaml:"start" validate:"required"`
	End        string         `yaml:"end" validate:"required"`
	Type       string         `yaml:"type" validate:"required"`
	Properties map[string]any `yaml:"properties,omitempty"`
}

// Load decodes and validates a fixture. Unknown fields are rejected.
func Load(r io.Reader) (*Graph, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var g Graph
	if err := dec.Decode(&g); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode fixture: %w", err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}

// LoadFile reads a fixture from path.
func LoadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Validate checks field rules, id uniqueness and that every reference
// names a declared node.
func (g *Graph) Validate() error {
	if err := fixtureValidate.Struct(g); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFixture, err)
	}

	nodes := make(map[string]struct{}, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := nodes[n.ID]; dup {
			return fmt.Errorf("%w: duplicate node id %q", ErrInvalidFixture, n.ID)
		}
		nodes[n.ID] = struct{}{}
	}

	rels := make(map[string]struct{}, len(g.Relationships))
	for _, r := range g.Relationships {
		if _, dup := rels[r.ID]; dup {
			return fmt.Errorf("%w: duplicate relationship id %q", ErrInvalidFixture, r.ID)
		}
		rels[r.ID] = struct{}{}
		for _, end := range []string{r.Start, r.End} {
			if _, ok := nodes[end]; !ok {
				return fmt.Errorf("%w: relationship %q references unknown node %q", ErrInvalidFixture, r.ID, end)
			}
		}
	}

	if g.Root != "" {
		if _, ok := nodes[g.Root]; !ok {
			return fmt.Errorf("%w: root %q is not a node", ErrInvalidFixture, g.Root)
		}
	}
	return nil
}

// Target receives fixture contents. The local store writer implements it.
type Target interface {
	PutNode(ctx context.Context, n source.Node) error
	PutRelationship(ctx context.Context, id, startID, endID, relType string, props map[string]any) error
	SetRoot(ctx context.Context, nodeID string) error
}

// Apply writes every node, then every relationship, then the root.
func (g *Graph) Apply(ctx context.Context, t Target) error {
	for _, n := range g.Nodes {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.PutNode(ctx, source.Node{ID: n.ID, Labels: n.Labels, Properties: n.Properties}); err != nil {
			return fmt.Errorf("apply node %s: %w", n.ID, err)
		}
	}
	for _, r := range g.Relationships {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := t.PutRelationship(ctx, r.ID, r.Start, r.End, r.Type, r.Properties); err != nil {
			return fmt.Errorf("apply relationship %s: %w", r.ID, err)
		}
	}
	if g.Root != "" {
		if err := t.SetRoot(ctx, g.Root); err != nil {
			return fmt.Errorf("apply root: %w", err)
		}
	}
	return nil
}

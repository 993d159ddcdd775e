// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workspace is an in-memory destination environment.
//
// A Controller holds projects. Creating a project also creates its first
// workspace and makes it current, so an import that never reaches the
// workspace step still leaves its project reachable. Current is not the
// same as opened: only OpenWorkspace surfaces a workspace, and Opened
// reports the last one surfaced. Every workspace of a project shares the
// project's graph.
package workspace

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/destination"
)

// Controller implements destination.Environment.
//
// Thread Safety: Safe for concurrent use.
type Controller struct {
	opts GraphOptions

	mu       sync.Mutex
	projects []*Project
	current  *Workspace
	opened   *Workspace
}

// NewController creates an empty environment.
//
// Inputs:
//
//	opts - Limits applied to every project graph.
//
// Outputs:
//
//	*Controller - The environment. Never nil.
func NewController(opts ...GraphOption) *Controller {
	o := DefaultGraphOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Controller{opts: o}
}

// CreateNewProject implements destination.Environment.
//
// The project's first workspace becomes current but is not opened.
func (c *Controller) CreateNewProject() destination.Project {
	c.mu.Lock()
	defer c.mu.Unlock()

	p := &Project{
		id:    uuid.NewString(),
		name:  fmt.Sprintf("Project %d", len(c.projects)+1),
		graph: newGraph(c.opts),
	}
	ws := p.addWorkspace()
	c.projects = append(c.projects, p)
	c.current = ws
	return p
}

// CurrentWorkspace implements destination.Environment.
func (c *Controller) CurrentWorkspace() destination.Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current
}

// CreateWorkspace implements destination.Environment.
//
// Projects not created by this controller are adopted so the workspace
// always has a graph to show.
func (c *Controller) CreateWorkspace(project destination.Project) destination.Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := project.(*Project)
	if !ok || !c.ownsLocked(p) {
		p = &Project{id: uuid.NewString(), graph: newGraph(c.opts)}
		if project != nil {
			p.id, p.name = project.ID(), project.Name()
		}
		c.projects = append(c.projects, p)
	}
	return p.addWorkspace()
}

// OpenWorkspace implements destination.Environment. It makes ws both
// current and opened.
func (c *Controller) OpenWorkspace(ws destination.Workspace) {
	w, ok := ws.(*Workspace)
	if !ok {
		return
	}
	c.mu.Lock()
	c.current = w
	c.opened = w
	c.mu.Unlock()
}

// Opened returns the workspace last passed to OpenWorkspace, or nil if
// none has been opened.
func (c *Controller) Opened() *Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opened
}

// Projects returns every project in creation order.
func (c *Controller) Projects() []*Project {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*Project, len(c.projects))
	copy(out, c.projects)
	return out
}

func (c *Controller) ownsLocked(p *Project) bool {
	for _, q := range c.projects {
		if q == p {
			return true
		}
	}
	return false
}

// Project implements destination.Project.
type Project struct {
	id    string
	name  string
	graph *Graph

	mu         sync.Mutex
	workspaces []*Workspace
}

// ID implements destination.Project.
func (p *Project) ID() string { return p.id }

// Name implements destination.Project.
func (p *Project) Name() string { return p.name }

// Graph implements destination.Project.
func (p *Project) Graph() destination.GraphModel { return p.graph }

// Data returns the project's concrete graph.
func (p *Project) Data() *Graph { return p.graph }

// Workspaces returns the project's workspaces in creation order.
func (p *Project) Workspaces() []*Workspace {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Workspace, len(p.workspaces))
	copy(out, p.workspaces)
	return out
}

func (p *Project) addWorkspace() *Workspace {
	p.mu.Lock()
	defer p.mu.Unlock()
	ws := &Workspace{id: uuid.NewString(), project: p}
	p.workspaces = append(p.workspaces, ws)
	return ws
}

// Workspace implements destination.Workspace.
type Workspace struct {
	id      string
	project *Project
}

// ID implements destination.Workspace.
func (w *Workspace) ID() string { return w.id }

// Project implements destination.Workspace.
func (w *Workspace) Project() destination.Project { return w.project }

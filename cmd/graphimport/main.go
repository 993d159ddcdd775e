// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command graphimport copies a graph database into a fresh in-memory
// project by walking it depth-first from a root node.
//
// Usage:
//
//	graphimport local /data/graph.db
//	graphimport remote neo4j://localhost:7687 --login neo4j
//	graphimport seed /data/graph.db testdata/people.yaml
//
// The remote password is read from GRAPHIMPORT_PASSWORD. Ctrl+C cancels a
// running import and keeps whatever was imported so far.
package main

import (
	"context"
	"io"
	"os"

	"github.com/awnumar/memguard"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	code := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
	memguard.Purge()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cli := newCLI(stdout, stderr)
	defer cli.close()
	root := cli.rootCommand()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		cli.printer().Error(err.Error())
		return 1
	}
	return 0
}

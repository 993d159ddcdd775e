// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraphImport/services/importer/fixture"
	"github.com/AleutianAI/AleutianGraphImport/services/importer/storage/badger"
)

func (c *cli) seedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <store-dir> <fixture.yaml>",
		Short: "Create or extend a local graph store from a YAML fixture",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, path := args[0], args[1]

			g, err := fixture.LoadFile(path)
			if err != nil {
				return err
			}

			cfg := badger.DefaultConfig()
			cfg.Path = dir
			cfg.Logger = c.slog()
			w, err := badger.Create(cfg)
			if err != nil {
				return fmt.Errorf("create store %s: %w", dir, err)
			}
			if err := g.Apply(cmd.Context(), w); err != nil {
				return errors.Join(err, w.Close())
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("close store: %w", err)
			}

			c.printer().Success(fmt.Sprintf("seeded %s with %d nodes and %d relationships",
				dir, len(g.Nodes), len(g.Relationships)))
			return nil
		},
	}
}

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
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianGraphImport/cmd/graphimport/config"
)

func (c *cli) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				data, err := c.cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = c.stdout.Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:         "init",
			Short:       "Write the default configuration file",
			Annotations: map[string]string{annotationConfig: "skip"},
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := c.configPath
				if path == "" {
					p, err := config.DefaultPath()
					if err != nil {
						return err
					}
					path = p
				}
				if err := config.WriteDefault(path); err != nil {
					if errors.Is(err, os.ErrExist) {
						return fmt.Errorf("%s already exists", path)
					}
					return err
				}
				c.printer().Success("wrote " + path)
				return nil
			},
		},
	)
	return cmd
}
